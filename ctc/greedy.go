package ctc

import (
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// Greedy decodes by taking the best class at every frame and collapsing the
// resulting path: consecutive duplicates merge into one label, blanks are
// removed. length is the sequence's true frame count; frames beyond it are
// padding and never read. The score is the summed log probability of the
// argmax path. A zero-length or all-blank input yields an empty hypothesis.
func Greedy(logProbs mathutil.Mat, length, blank int) Hypothesis {
	var hyp Hypothesis
	prev := -1
	for t := 0; t < length; t++ {
		row := logProbs[t]
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		hyp.Score += row[best]
		if best != blank && best != prev {
			hyp.Labels = append(hyp.Labels, best)
			hyp.Frames = append(hyp.Frames, t)
		}
		prev = best
	}
	return hyp
}

// Collapse reduces a frame-level class path to its label sequence: runs of
// the same class become a single label and blank entries are dropped. A
// repeated label separated by a blank stays two labels.
func Collapse(path []int, blank int) []int {
	var out []int
	prev := -1
	for _, c := range path {
		if c != blank && c != prev {
			out = append(out, c)
		}
		prev = c
	}
	return out
}
