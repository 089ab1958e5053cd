package exposure

import (
	"math"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

// Shift is the linear gain for an exposure change of ev stops.
func Shift(ev float64) float64 {
	return math.Pow(2.0, ev)
}

// Preservation says how hard to protect highlights for a given gain;
// bigger pushes get a softer shoulder. 0 means a hard clip at white.
func Preservation(shift float64) float64 {
	switch {
	case shift >= 4.0:
		return 0.7
	case shift >= 2.0:
		return 0.5
	case shift >= 1.5:
		return 0.3
	}
	return 0.0
}

// Apply returns a copy of buf with the exposure moved by ev stops:
// black + (v-black)*2^ev, clipped at white. Samples are scaled in the
// same black-relative space that Analyze bins them in, so a correction
// from Estimate lands the median where it was aimed. A zero ev still
// returns a copy.
func Apply(buf *bayer.Buffer, levels bayer.Levels, ev float64) *bayer.Buffer {
	return apply(buf, levels, Shift(ev), 0)
}

// ApplyPreserving is Apply with a highlight shoulder: when brightening,
// values that would clip are rolled off towards white instead, with the
// shoulder width picked by Preservation.
func ApplyPreserving(buf *bayer.Buffer, levels bayer.Levels, ev float64) *bayer.Buffer {
	shift := Shift(ev)
	return apply(buf, levels, shift, Preservation(shift))
}

func apply(buf *bayer.Buffer, levels bayer.Levels, shift, preserve float64) *bayer.Buffer {
	out := buf.Compact()
	out.Rect = buf.Rect

	rng := float64(levels.Range())
	if rng <= 0 {
		return out
	}

	// Samples only take 65536 values, so build the mapping once
	var lut [math.MaxUint16 + 1]uint16
	for v := range lut {
		x := float64(levels.Sub(uint16(v))) / rng * shift
		if preserve > 0 && shift > 1 {
			x = shoulder(x, 1.0-preserve)
		}
		x = math.Min(x, 1.0)
		lut[v] = levels.Black + uint16(math.Round(x*rng))
	}

	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// shoulder is the identity below knee, and above it an exponential
// roll-off that meets the line with the same slope and approaches 1.
func shoulder(x, knee float64) float64 {
	if x <= knee {
		return x
	}
	w := 1.0 - knee
	return knee + w*(1.0-math.Exp(-(x-knee)/w))
}
