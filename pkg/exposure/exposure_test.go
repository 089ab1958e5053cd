package exposure

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

var levels12bit = bayer.Levels{Black: 0, White: 4095}

// flatAt makes a mosaic whose every sample lands in the given bin.
func flatAt(bin int) *bayer.Buffer {
	buf := bayer.NewBuffer(50, 40)
	for i := range buf.Pix {
		buf.Pix[i] = uint16(bin * 16)
	}
	return buf
}

func TestBin(t *testing.T) {
	assert.Equal(t, 0, Bin(0, levels12bit))
	assert.Equal(t, 118, Bin(1888, levels12bit))
	assert.Equal(t, 255, Bin(4095, levels12bit))
	assert.Equal(t, 255, Bin(65535, levels12bit))

	withBlack := bayer.Levels{Black: 512, White: 4095}
	assert.Equal(t, 0, Bin(100, withBlack))
	assert.Equal(t, 0, Bin(512, withBlack))
	assert.Equal(t, 255, Bin(4095, withBlack))
}

// Already close enough to the target means no correction at all.
func TestEstimateInsideDeadBand(t *testing.T) {
	for _, bin := range []int{100, 110, 118, 125, 145} {
		assert.Equal(t, 0.0, Estimate(flatAt(bin), levels12bit, 10), "median %d", bin)
	}
}

func TestEstimateDirectionAndMagnitude(t *testing.T) {
	below := []int{80, 59, 30, 20}
	prev := 0.0
	for _, bin := range below {
		ev := Estimate(flatAt(bin), levels12bit, 10)
		assert.True(t, ev > prev, "median %d gave %f, want more than %f", bin, ev, prev)
		prev = ev
	}

	above := []int{160, 200, 236, 255}
	prev = 0.0
	for _, bin := range above {
		ev := Estimate(flatAt(bin), levels12bit, 10)
		assert.True(t, ev < prev, "median %d gave %f, want less than %f", bin, ev, prev)
		prev = ev
	}

	assert.InDelta(t, 1.0, Estimate(flatAt(59), levels12bit, 10), 1e-9)
	assert.InDelta(t, -1.0, Estimate(flatAt(236), levels12bit, 10), 1e-9)
}

func TestEstimateClamps(t *testing.T) {
	assert.Equal(t, MaxEV, Estimate(flatAt(10), levels12bit, 10))
	assert.Equal(t, MaxEV, Estimate(flatAt(0), levels12bit, 10))

	// A 0-255 median can't ask for less than -2, but the clamp is still there
	assert.Equal(t, MinEV, EVForMedian(1000))
}

func TestAnalyzePercentiles(t *testing.T) {
	// Row y holds bin 2y; stride 10 samples rows 0,10,...,90, ten each
	buf := bayer.NewBuffer(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			buf.Set(x, y, uint16(2*y*16))
		}
	}

	r := Analyze(buf, levels12bit, 10)
	assert.Equal(t, int64(100), r.Samples)
	assert.Equal(t, 0, r.P1)
	assert.Equal(t, 80, r.P50)
	assert.Equal(t, 180, r.P99)
	assert.InDelta(t, math.Log2(118.0/80.0), r.EV, 1e-9)
	assert.Contains(t, r.String(), "p50=80")
}

func TestAnalyzeStride(t *testing.T) {
	buf := flatAt(59)
	assert.Equal(t, int64(50*40), Analyze(buf, levels12bit, 1).Samples)
	assert.Equal(t, int64(5*4), Analyze(buf, levels12bit, 10).Samples)
	assert.Equal(t, int64(5*4), Analyze(buf, levels12bit, 0).Samples)

	// A view only samples what it can see
	sub := buf.SubImage(image.Rect(10, 10, 30, 30))
	assert.Equal(t, int64(2*2), Analyze(sub, levels12bit, 10).Samples)

	r := Analyze(buf, levels12bit, 10)
	assert.Equal(t, 59, r.P1)
	assert.Equal(t, 59, r.P99)
}

func TestAnalyzeUnusable(t *testing.T) {
	assert.Equal(t, Report{}, Analyze(nil, levels12bit, 10))
	assert.Equal(t, Report{}, Analyze(&bayer.Buffer{}, levels12bit, 10))
	assert.Equal(t, Report{}, Analyze(flatAt(10), bayer.Levels{Black: 10, White: 10}, 10))
}

func TestShift(t *testing.T) {
	assert.Equal(t, 1.0, Shift(0))
	assert.Equal(t, 2.0, Shift(1))
	assert.Equal(t, 0.25, Shift(-2))
	assert.Equal(t, 8.0, Shift(3))
}

func TestApply(t *testing.T) {
	levels := bayer.Levels{Black: 100, White: 4095}
	buf, err := bayer.BufferFromSamples([]uint16{1100, 3000, 50, 100}, 2, 2)
	require.NoError(t, err)

	up := Apply(buf, levels, 1)
	assert.Equal(t, []uint16{2100, 4095, 100, 100}, up.Pix)

	down := Apply(buf, levels, -1)
	assert.Equal(t, []uint16{600, 1550, 100, 100}, down.Pix)

	same := Apply(buf, levels, 0)
	assert.Equal(t, []uint16{1100, 3000, 100, 100}, same.Pix)

	// The input is left alone
	assert.Equal(t, []uint16{1100, 3000, 50, 100}, buf.Pix)
}

func TestApplyKeepsCoordinates(t *testing.T) {
	buf := flatAt(59)
	sub := buf.SubImage(image.Rect(3, 5, 13, 9))
	out := Apply(sub, levels12bit, 1)
	assert.Equal(t, sub.Rect, out.Rect)
	assert.Equal(t, uint16(59*16*2), out.At(3, 5))
	assert.Equal(t, uint16(59*16*2), out.At(12, 8))
}

// Estimating, applying, and estimating again has nothing left to do.
func TestEstimateThenApply(t *testing.T) {
	buf := flatAt(59)
	ev := Estimate(buf, levels12bit, 10)
	require.InDelta(t, 1.0, ev, 1e-9)

	fixed := Apply(buf, levels12bit, ev)
	assert.Equal(t, 118, Bin(fixed.Pix[0], levels12bit))
	assert.Equal(t, 0.0, Estimate(fixed, levels12bit, 10))
}

func TestPreservation(t *testing.T) {
	assert.Equal(t, 0.0, Preservation(1.0))
	assert.Equal(t, 0.0, Preservation(1.4))
	assert.Equal(t, 0.3, Preservation(1.5))
	assert.Equal(t, 0.5, Preservation(2.0))
	assert.Equal(t, 0.5, Preservation(3.9))
	assert.Equal(t, 0.7, Preservation(4.0))
	assert.Equal(t, 0.7, Preservation(8.0))
}

func TestApplyPreserving(t *testing.T) {
	buf, err := bayer.BufferFromSamples([]uint16{1000, 2500, 3000, 4095}, 4, 1)
	require.NoError(t, err)

	out := ApplyPreserving(buf, levels12bit, 1)

	// Below the knee it's the same as a plain shift
	assert.Equal(t, uint16(2000), out.Pix[0])

	// Above it, highlights roll off instead of clipping, and stay in order
	assert.True(t, out.Pix[1] < 4095)
	assert.True(t, out.Pix[1] < out.Pix[2])
	assert.True(t, out.Pix[2] <= out.Pix[3])
	assert.True(t, out.Pix[3] <= 4095)

	// Darkening never needs a shoulder
	assert.Equal(t, Apply(buf, levels12bit, -1).Pix, ApplyPreserving(buf, levels12bit, -1).Pix)
}
