// Package barrier implements the smoothly clamped log barrier used as the
// contact potential. The barrier is parameterised in squared distance: both
// the evaluation point and the activation threshold are squared distances,
// so callers pass d = |x|^2 and dhat = d̂^2.
//
//	b(d) = -(d - dhat)^2 * ln(d / dhat)  for 0 < d < dhat
//	b(d) = 0                             for d >= dhat
//
// The value, first, and second derivatives are all continuous at d = dhat.
package barrier

import "math"

// Barrier computes the barrier potential at squared distance d with squared
// activation distance dhat. It is +Inf at d <= 0.
func Barrier(d, dhat float64) float64 {
	if d <= 0 {
		return math.Inf(1)
	}
	if d >= dhat {
		return 0
	}
	t := d - dhat
	return -t * t * math.Log(d/dhat)
}

// FirstDerivative computes db/dd.
func FirstDerivative(d, dhat float64) float64 {
	if d <= 0 || d >= dhat {
		return 0
	}
	t := d - dhat
	return -(2*math.Log(d/dhat)*t + t*t/d)
}

// SecondDerivative computes d²b/dd².
func SecondDerivative(d, dhat float64) float64 {
	if d <= 0 || d >= dhat {
		return 0
	}
	t := d - dhat
	return -(2*math.Log(d/dhat) + 4*t/d - t*t/(d*d))
}
