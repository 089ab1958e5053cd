package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

// GammaCurve is the dcraw/libraw style (power, slope) curve, e.g. (2.222, 4.5)
// for BT.709: a linear toe of the given slope joins a 1/power segment, with
// both the value and the first derivative continuous at the join.
func GammaCurve(f, power, slope float64) float64 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 1
	}
	g := 1.0 / power
	if slope <= 0 {
		return math.Pow(f, g)
	}

	b := gammaBreakpoint(g, slope)
	if f < b {
		return slope * f
	}
	a := (slope*b - 1) / (math.Pow(b, g) - 1)
	return a*math.Pow(f, g) - (a - 1)
}

// gammaBreakpoint finds b in (0, 1/slope) where the power segment's slope
// matches the toe. The mismatch is monotonic there, so bisect.
func gammaBreakpoint(g, slope float64) float64 {
	mismatch := func(b float64) float64 {
		return g*math.Pow(b, g-1)*(slope*b-1)/(math.Pow(b, g)-1) - slope
	}

	lo, hi := 0.0, 1.0/slope
	for i := 0; i < 64; i++ {
		mid := (lo + hi) / 2
		if mismatch(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func ClampF64(f, min, max float64) float64 {
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

// ClampToByte rounds and clamps a [0,255] float into a byte
func ClampToByte(f float64) uint8 {
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(f + 0.5)
}
