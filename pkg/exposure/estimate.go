// Package exposure picks an exposure correction for a raw mosaic by
// looking at where its median sits, and applies it to the raw samples
// before demosaicing.
package exposure

import (
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

const (
	TargetMedian  = 118.0 // middle grey, on the 0-255 scale
	MinEV         = -2.0
	MaxEV         = 3.0
	DeadBand      = 0.3 // corrections this small are left alone
	DefaultStride = 10
	NumBins       = 256
)

// A Report is what the estimator saw. Percentiles are histogram bins,
// 0-255.
type Report struct {
	Samples int64
	P1      int
	P50     int
	P99     int
	EV      float64
}

func (r Report) String() string {
	return fmt.Sprintf("%d samples, p1=%d p50=%d p99=%d -> %+.2f EV", r.Samples, r.P1, r.P50, r.P99, r.EV)
}

// Estimate returns the exposure correction, in stops, that would move the
// median of buf to TargetMedian. See Analyze.
func Estimate(buf *bayer.Buffer, levels bayer.Levels, stride int) float64 {
	return Analyze(buf, levels, stride).EV
}

// Analyze samples every stride'th photosite in each direction, bins it
// into 256 levels between black and white, and works out an EV shift from
// the median: log2(target/median), clamped to [MinEV,MaxEV]. Anything
// inside the dead band comes back as exactly 0. An empty or unusable
// buffer gets 0 too, since there's nothing to go on.
//
// The sampling ignores the CFA, so all three channels feed the histogram.
func Analyze(buf *bayer.Buffer, levels bayer.Levels, stride int) Report {
	if stride <= 0 {
		stride = DefaultStride
	}
	if buf == nil || buf.Rect.Empty() || levels.Validate() != nil {
		return Report{}
	}

	// Bins are recorded off by one, as the histogram can't hold zero
	h := hdrhistogram.New(1, NumBins, 3)
	for y := buf.Rect.Min.Y; y < buf.Rect.Max.Y; y += stride {
		row := buf.Row(y)
		for x := 0; x < len(row); x += stride {
			h.RecordValue(int64(Bin(row[x], levels)) + 1)
		}
	}

	r := Report{
		Samples: h.TotalCount(),
		P1:      quantile(h, 1),
		P50:     quantile(h, 50),
		P99:     quantile(h, 99),
	}
	r.EV = EVForMedian(r.P50)

	return r
}

func quantile(h *hdrhistogram.Histogram, q float64) int {
	// With few samples, a low quantile can round down to "before the first
	// value", which comes back as 0
	v := h.ValueAtQuantile(q)
	if min := h.Min(); v < min {
		v = min
	}
	if v < 1 {
		return 0
	}
	return int(v) - 1
}

// Bin maps a raw sample onto the 0-255 histogram scale.
func Bin(v uint16, levels bayer.Levels) int {
	bin := int(levels.Sub(v)) * NumBins / (levels.Range() + 1)
	if bin > NumBins-1 {
		bin = NumBins - 1
	}
	return bin
}

// EVForMedian is the correction for a given median bin. A median of zero
// (a black frame) wants as much boost as we'll give it.
func EVForMedian(median int) float64 {
	if median <= 0 {
		return MaxEV
	}

	ev := math.Log2(TargetMedian / float64(median))
	ev = math.Max(MinEV, math.Min(MaxEV, ev))
	if math.Abs(ev) <= DeadBand {
		return 0.0
	}
	return ev
}
