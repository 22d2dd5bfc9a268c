package mathutil

import "math"

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
const LogZero = -1e30

// minLogExp is the threshold below which the smaller operand of a log-domain
// sum contributes less than float64 precision (exp(-36) ≈ 2.3e-16).
const minLogExp = -36.0

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Beam merges accumulate many contributions per prefix, so the common
// cases (one operand LogZero, operands far apart) exit early.
func LogAdd(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if b == LogZero {
		return a
	}
	d := b - a
	if d < minLogExp {
		return a
	}
	return a + math.Log1p(math.Exp(d))
}

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
