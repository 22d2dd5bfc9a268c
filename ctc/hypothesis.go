// Package ctc implements greedy and prefix beam search decoding for
// Connectionist Temporal Classification posteriors. Inputs are log-domain
// posterior matrices of T frames by V classes with one class reserved for
// blank; outputs are collapsed label sequences with blanks removed.
package ctc

// Hypothesis is one decoded label sequence with its total log probability.
// Labels are class indices into the posterior matrix; the blank class never
// appears. Frames holds the onset frame of each label when the decoding
// algorithm can attribute one (greedy argmax); beam search leaves it nil
// because merged prefixes have no single onset.
type Hypothesis struct {
	Labels []int
	Score  float64
	Frames []int
}

// Empty reports whether the hypothesis carries no labels.
func (h Hypothesis) Empty() bool {
	return len(h.Labels) == 0
}
