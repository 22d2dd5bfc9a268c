package ctc

import (
	"errors"
	"fmt"

	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// Sentinel errors for invalid posterior input. Batch callers match on these
// to report which sequence failed and why.
var (
	// ErrRowWidth is returned when a frame row length differs from the
	// vocabulary size.
	ErrRowWidth = errors.New("ctc: posterior row width differs from vocabulary size")
	// ErrTrueLength is returned when the claimed true length exceeds the
	// number of frames.
	ErrTrueLength = errors.New("ctc: true length exceeds frame count")
	// ErrNonFinite is returned when a posterior entry is NaN or infinite.
	ErrNonFinite = errors.New("ctc: posterior contains NaN or Inf")
)

// CheckMatrix validates a log-posterior matrix against the decoder's input
// contract: length ∈ [0, len(logProbs)], every row of the first length
// frames has exactly vocabSize entries, and all scanned entries are finite.
func CheckMatrix(logProbs mathutil.Mat, vocabSize, length int) error {
	if length < 0 || length > len(logProbs) {
		return fmt.Errorf("%w: length %d, frames %d", ErrTrueLength, length, len(logProbs))
	}
	for t := 0; t < length; t++ {
		row := logProbs[t]
		if len(row) != vocabSize {
			return fmt.Errorf("%w: frame %d has %d entries, want %d", ErrRowWidth, t, len(row), vocabSize)
		}
		for c, v := range row {
			if !mathutil.Finite(v) {
				return fmt.Errorf("%w: frame %d class %d", ErrNonFinite, t, c)
			}
		}
	}
	return nil
}
