package ivsolver

import "math"

// brentResult is the state the root finder stopped in.
type brentResult struct {
	root       float64
	lo, hi     float64 // final bracket, ordered
	iterations int
	converged  bool
}

// brent finds a root of f in [xa, xb] using Brent's method.
//
// fa and fb are f(xa) and f(xb); they must be non-zero with opposite signs.
// Iteration stops once the bracket is narrower than xtol + rtol·|x| or a
// function value is exactly zero. At most maxIter further evaluations of f are made.
func brent(f func(float64) float64, xa, xb, fa, fb, xtol, rtol float64, maxIter int) brentResult {
	xpre, xcur := xa, xb
	fpre, fcur := fa, fb
	var xblk, fblk, spre, scur float64

	for i := 0; i < maxIter; i++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		// keep xcur as the best estimate
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + rtol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return brentResult{root: xcur, lo: math.Min(xcur, xblk), hi: math.Max(xcur, xblk), iterations: i, converged: true}
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic interpolation
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}
		fcur = f(xcur)
	}

	lo, hi := xcur, xblk
	if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
		hi = xpre
	}
	if fcur == 0 {
		return brentResult{root: xcur, lo: xcur, hi: xcur, iterations: maxIter, converged: true}
	}
	return brentResult{root: xcur, lo: math.Min(lo, hi), hi: math.Max(lo, hi), iterations: maxIter}
}
