package codec

import (
	"math"
)

// rateTolerance is the relative deviation under which two sample rates
// are considered equal.
const rateTolerance = 0.0001

// NominalRate returns the sample rate described by a header rate factor
// and multiplier. A positive factor is samples per second, a negative
// one seconds per sample; the multiplier scales or divides likewise.
func NominalRate(factor, multiplier int16) float64 {
	f, m := float64(factor), float64(multiplier)
	switch {
	case factor > 0 && multiplier > 0:
		return f * m
	case factor > 0 && multiplier < 0:
		return -f / m
	case factor < 0 && multiplier > 0:
		return -m / f
	case factor < 0 && multiplier < 0:
		return 1 / (f * m)
	}
	return 0
}

// RateFactorMultiplier encodes rate as a header factor and multiplier.
// exact is false when the pair only approximates rate, in which case a
// 100 blockette should carry the precise value.
func RateFactorMultiplier(rate float64) (factor, multiplier int16, exact bool) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, 0, rate == 0
	}

	if rate == math.Trunc(rate) && rate <= math.MaxInt16 {
		return int16(rate), 1, true
	}
	if period := 1 / rate; period == math.Trunc(period) && period <= math.MaxInt16 {
		return -int16(period), 1, true
	}

	num, den := ratApprox(rate, math.MaxInt16)
	if num == 0 || den == 0 {
		return 0, 0, false
	}
	factor, multiplier = int16(num), -int16(den)
	return factor, multiplier, NominalRate(factor, multiplier) == rate
}

// ratApprox finds the continued fraction convergent of x closest to x
// whose numerator and denominator both stay within limit.
func ratApprox(x float64, limit int64) (num, den int64) {
	// Convergents h/k with the two previous terms.
	h1, h2 := int64(1), int64(0)
	k1, k2 := int64(0), int64(1)
	r := x

	for i := 0; i < 64; i++ {
		a := int64(math.Floor(r))
		h := a*h1 + h2
		k := a*k1 + k2
		if h > limit || k > limit {
			break
		}
		num, den = h, k
		h1, h2 = h, h1
		k1, k2 = k, k1

		frac := r - float64(a)
		if frac < 1e-12 || math.Abs(x-float64(num)/float64(den)) <= x*1e-12 {
			break
		}
		r = 1 / frac
	}
	return num, den
}

// RateTolerable reports whether two sample rates are equal within the
// default relative tolerance. Two zero rates are tolerable.
func RateTolerable(a, b float64) bool {
	if a == b {
		return true
	}
	if b == 0 {
		return false
	}
	return math.Abs(1-a/b) < rateTolerance
}
