package nominate

import "math"

// invPhi is the inverse golden ratio, the interval reduction per step.
var invPhi = (math.Sqrt(5) - 1) / 2

// MaximizeScalar finds the maximizer of f on [lo, hi] by golden-section
// search. It is derivative-free and fully deterministic, which keeps the
// coordinate-descent sweeps reproducible under a fixed seed.
func MaximizeScalar(f func(float64) float64, lo, hi, tol float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)

	// 80 iterations shrink the interval below any practical tolerance.
	for iter := 0; iter < 80 && b-a > tol; iter++ {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}
