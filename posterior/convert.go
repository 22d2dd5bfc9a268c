package posterior

import (
	"math"

	"github.com/alongwithyou/ctcdecode-go/internal/mathutil"
)

// probFloor keeps log() finite when a producer emits an exact zero.
const probFloor = 1e-10

// FromProbs converts a probability-domain matrix into log domain. Every
// entry is mapped to log(p + probFloor), so hard zeros become a large
// negative score instead of -Inf. Probabilities are expected nonnegative;
// anything else surfaces later as a validation failure.
func FromProbs(id string, probs mathutil.Mat, length int) Matrix {
	out := make(mathutil.Mat, len(probs))
	for t, row := range probs {
		out[t] = make(mathutil.Vec, len(row))
		for c, p := range row {
			out[t][c] = math.Log(p + probFloor)
		}
	}
	return Matrix{ID: id, LogProbs: out, Length: length}
}

// FromLogits converts raw scores into log-probabilities with a per-row
// max-subtracted log-softmax. temperature divides the logits first;
// values above 1 flatten the distribution, below 1 sharpen it, and
// anything not positive behaves as 1.
func FromLogits(id string, logits mathutil.Mat, length int, temperature float64) Matrix {
	if temperature <= 0 {
		temperature = 1
	}
	out := make(mathutil.Mat, len(logits))
	for t, row := range logits {
		out[t] = make(mathutil.Vec, len(row))
		if len(row) == 0 {
			continue
		}
		maxVal := math.Inf(-1)
		for c, z := range row {
			z /= temperature
			out[t][c] = z
			if z > maxVal {
				maxVal = z
			}
		}
		sumExp := 0.0
		for _, z := range out[t] {
			sumExp += math.Exp(z - maxVal)
		}
		logSumExp := maxVal + math.Log(sumExp)
		for c := range out[t] {
			out[t][c] -= logSumExp
		}
	}
	return Matrix{ID: id, LogProbs: out, Length: length}
}
