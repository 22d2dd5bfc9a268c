// Package ctcdecode turns per-frame class posteriors into label sequences
// under the Connectionist Temporal Classification formulation. A Decoder is
// built once with an immutable configuration (vocabulary size, blank index,
// beam width, length penalty) and then decodes single utterances or whole
// batches; batches run one worker per sequence and report per-sequence
// failures without discarding the rest.
//
// Posteriors arrive as log-probability matrices (see the posterior package
// for conversion from probabilities or raw logits). Output label ids are in
// the public space with the blank slot removed: an internal class index c
// maps to c-1 when c is above the blank index, unchanged otherwise.
package ctcdecode

import (
	"context"
	"fmt"
	"runtime"

	"github.com/alongwithyou/ctcdecode-go/ctc"
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
	"github.com/alongwithyou/ctcdecode-go/posterior"
)

// searcher is the decoding algorithm, chosen once at construction. A beam
// width of 1 selects the greedy algorithm, so the beam-1 and greedy outputs
// are identical by construction.
type searcher interface {
	SearchN(ctx context.Context, logProbs mathutil.Mat, length, n int) ([]ctc.Hypothesis, error)
}

// greedySearcher adapts the frame-argmax decoder to the searcher interface.
// It yields exactly one hypothesis regardless of n.
type greedySearcher struct {
	blank int
}

func (g greedySearcher) SearchN(ctx context.Context, logProbs mathutil.Mat, length, _ int) ([]ctc.Hypothesis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []ctc.Hypothesis{ctc.Greedy(logProbs, length, g.blank)}, nil
}

// Decoder decodes CTC posteriors for one vocabulary. It is immutable after
// New and safe for concurrent use; per-call search state never leaves the
// call.
type Decoder struct {
	vocabSize    int
	blank        int
	beamWidth    int
	alpha        float64
	workers      int
	sortByLength bool
	trace        bool
	search       searcher
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithBeamWidth sets the number of prefixes kept per frame. Width 1 (the
// default) decodes greedily.
func WithBeamWidth(w int) Option {
	return func(d *Decoder) {
		d.beamWidth = w
	}
}

// WithBlankIndex sets the class index reserved for blank. Default 0.
func WithBlankIndex(i int) Option {
	return func(d *Decoder) {
		d.blank = i
	}
}

// WithLengthPenalty sets the exponent alpha of the final-selection score
// normalization score/len^alpha. Default 0 (disabled).
func WithLengthPenalty(alpha float64) Option {
	return func(d *Decoder) {
		d.alpha = alpha
	}
}

// WithWorkers sets the batch worker pool size. Default runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Decoder) {
		d.workers = n
	}
}

// WithLengthSort controls whether batches are processed in descending
// length order, the order the upstream padded encoder produces them in.
// Results always return in caller order either way. Default on.
func WithLengthSort(enabled bool) Option {
	return func(d *Decoder) {
		d.sortByLength = enabled
	}
}

// WithTrace attaches the consumed posterior rows to each Result, unmodified,
// for downstream visualization. Default off.
func WithTrace(enabled bool) Option {
	return func(d *Decoder) {
		d.trace = enabled
	}
}

// New builds a Decoder for a posterior space of vocabSize classes including
// the blank. Invalid configuration fails here, before anything decodes.
func New(vocabSize int, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		vocabSize:    vocabSize,
		blank:        0,
		beamWidth:    1,
		workers:      runtime.NumCPU(),
		sortByLength: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.vocabSize < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrVocabSize, d.vocabSize)
	}
	if d.beamWidth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBeamWidth, d.beamWidth)
	}
	if d.blank < 0 || d.blank >= d.vocabSize {
		return nil, fmt.Errorf("%w: blank %d, vocabulary %d", ErrBlankIndex, d.blank, d.vocabSize)
	}
	if d.workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrWorkers, d.workers)
	}

	if d.beamWidth == 1 {
		d.search = greedySearcher{blank: d.blank}
	} else {
		d.search = &ctc.BeamSearch{Width: d.beamWidth, Blank: d.blank, LengthPenalty: d.alpha}
	}
	return d, nil
}

// Decode decodes one utterance and returns its best hypothesis. Input
// errors (wrong row width, length beyond frames, non-finite score) are
// returned as-is; match them with the ctc package sentinels.
func (d *Decoder) Decode(ctx context.Context, m posterior.Matrix) (*Result, error) {
	results, err := d.DecodeNBest(ctx, m, 1)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// DecodeNBest decodes one utterance and returns up to n hypotheses in
// selection order. Beam decoding caps n at the beam width; greedy decoding
// always yields one.
func (d *Decoder) DecodeNBest(ctx context.Context, m posterior.Matrix, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("ctcdecode: n must be at least 1, got %d", n)
	}
	if err := m.Validate(d.vocabSize); err != nil {
		return nil, err
	}
	hyps, err := d.search.SearchN(ctx, m.LogProbs, m.Length, n)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, len(hyps))
	for i, hyp := range hyps {
		results[i], err = d.assemble(m, hyp)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
