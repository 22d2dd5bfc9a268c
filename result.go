package ctcdecode

import (
	"fmt"

	"github.com/alongwithyou/ctcdecode-go/ctc"
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
	"github.com/alongwithyou/ctcdecode-go/posterior"
)

// Result is one decoded sequence in the public label space.
type Result struct {
	// ID echoes the utterance identifier of the input matrix.
	ID string
	// Labels are public label ids: the internal class space with the
	// blank slot removed, so ids run over [0, vocabSize-1).
	Labels []int
	// Score is the raw log probability of the winning prefix. Length
	// normalization affects selection only, never this value.
	Score float64
	// Frames holds each label's onset frame when the algorithm attributes
	// one (greedy); nil under beam decoding.
	Frames []int
	// Posteriors is the consumed slice of the input matrix, attached only
	// when the decoder was built with WithTrace.
	Posteriors mathutil.Mat
}

// assemble converts an internal hypothesis to the public label space: every
// class index above the blank shifts down one so the blank slot vanishes
// from the id range. For the usual blank 0 this is the classic subtract-one.
func (d *Decoder) assemble(m posterior.Matrix, hyp ctc.Hypothesis) (*Result, error) {
	r := &Result{
		ID:    m.ID,
		Score: hyp.Score,
	}
	if len(hyp.Labels) > 0 {
		r.Labels = make([]int, len(hyp.Labels))
		for i, c := range hyp.Labels {
			switch {
			case c == d.blank:
				return nil, fmt.Errorf("ctcdecode: blank class %d in decoded output at position %d", c, i)
			case c > d.blank:
				r.Labels[i] = c - 1
			default:
				r.Labels[i] = c
			}
		}
	}
	if len(hyp.Frames) > 0 {
		r.Frames = make([]int, len(hyp.Frames))
		copy(r.Frames, hyp.Frames)
	}
	if d.trace {
		r.Posteriors = m.LogProbs[:m.Length]
	}
	return r, nil
}
