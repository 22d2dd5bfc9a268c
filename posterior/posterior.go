// Package posterior carries the decoder's input boundary: per-utterance
// log-probability matrices, conversion from the probability and logit
// domains, and a versioned container format for sets of utterances.
package posterior

import (
	"github.com/alongwithyou/ctcdecode-go/ctc"
	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// Matrix is one utterance's posterior sequence: T frames by V classes in
// the log domain, with the true frame count separate from the padded shape.
type Matrix struct {
	// ID identifies the utterance to callers when a batch reports
	// per-sequence failures.
	ID string
	// LogProbs holds T rows of V log-probabilities each.
	LogProbs mathutil.Mat
	// Length is the true frame count; rows at or past it are padding.
	Length int
}

// Frames returns the padded row count.
func (m *Matrix) Frames() int {
	return len(m.LogProbs)
}

// Validate checks the matrix against the decoder input contract for the
// given vocabulary size.
func (m *Matrix) Validate(vocabSize int) error {
	return ctc.CheckMatrix(m.LogProbs, vocabSize, m.Length)
}
