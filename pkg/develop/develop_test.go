package develop

import (
	"image"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawpreview/pkg/emath"
	"github.com/abworrall/rawpreview/pkg/tiles"
)

func onePixel(r, g, b uint8) *tiles.RGBImage {
	img := tiles.NewRGBImage(1, 1)
	img.SetRGB(0, 0, r, g, b)
	return img
}

func develop1(t *testing.T, p Profile, cameraWB emath.Vec3, r, g, b uint8) [3]uint8 {
	out, err := p.Develop(onePixel(r, g, b), cameraWB, 0)
	require.NoError(t, err)
	r2, g2, b2 := out.RGBAt(0, 0)
	return [3]uint8{r2, g2, b2}
}

func assertPixel(t *testing.T, want, have [3]uint8) {
	for i := range want {
		assert.InDelta(t, int(want[i]), int(have[i]), 1, "channel %d: want %v, have %v", i, want, have)
	}
}

func linearProfile() Profile {
	p := NewProfile()
	p.WhiteBalance = "none"
	p.Tone = "linear"
	return p
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewProfile().Validate())
	assert.NoError(t, Profile{}.Validate())

	p := NewProfile()
	p.Tone = "filmic"
	assert.Error(t, p.Validate())

	p = NewProfile()
	p.WhiteBalance = "tungsten"
	assert.Error(t, p.Validate())

	p = NewProfile()
	p.WhiteBalance = "custom"
	assert.Error(t, p.Validate())

	p = NewProfile()
	p.Tone = "gamma"
	p.Gamma = [2]float64{0, 4.5}
	assert.Error(t, p.Validate())

	_, err := p.Develop(onePixel(1, 2, 3), emath.Vec3{}, 0)
	assert.Error(t, err)
}

func TestLinearIsIdentity(t *testing.T) {
	assert.Equal(t, [3]uint8{51, 102, 204}, develop1(t, linearProfile(), emath.Vec3{}, 51, 102, 204))
	assert.Equal(t, [3]uint8{0, 0, 0}, develop1(t, linearProfile(), emath.Vec3{}, 0, 0, 0))
	assert.Equal(t, [3]uint8{255, 255, 255}, develop1(t, linearProfile(), emath.Vec3{}, 255, 255, 255))
}

func TestSRGBTone(t *testing.T) {
	p := linearProfile()
	p.Tone = "srgb"
	assertPixel(t, [3]uint8{124, 124, 124}, develop1(t, p, emath.Vec3{}, 51, 51, 51))
	assert.Equal(t, [3]uint8{255, 255, 255}, develop1(t, p, emath.Vec3{}, 255, 255, 255))
}

func TestGammaTone(t *testing.T) {
	p := linearProfile()
	p.Tone = "gamma"

	prev := uint8(0)
	for v := 0; v < 256; v += 15 {
		out := develop1(t, p, emath.Vec3{}, uint8(v), uint8(v), uint8(v))
		assert.True(t, out[0] >= prev)
		assert.True(t, int(out[0]) >= v, "gamma brightens: %d -> %d", v, out[0])
		prev = out[0]
	}
	assert.Equal(t, uint8(255), develop1(t, p, emath.Vec3{}, 255, 255, 255)[0])
}

func TestCustomWhiteBalance(t *testing.T) {
	p := linearProfile()
	p.WhiteBalance = "custom"
	p.Multipliers = emath.Vec3{4, 2, 1} // relative to green, this is 2,1,0.5
	assertPixel(t, [3]uint8{204, 102, 51}, develop1(t, p, emath.Vec3{}, 102, 102, 102))

	// Gains that push past white clip
	assert.Equal(t, uint8(255), develop1(t, p, emath.Vec3{}, 200, 200, 200)[0])
}

func TestCameraWhiteBalance(t *testing.T) {
	p := linearProfile()
	p.WhiteBalance = "camera"
	assertPixel(t, [3]uint8{102, 102, 51}, develop1(t, p, emath.Vec3{2, 2, 1}, 102, 102, 102))

	// Nothing from the camera and no matrix to fall back on
	assertPixel(t, [3]uint8{102, 102, 102}, develop1(t, p, emath.Vec3{}, 102, 102, 102))
}

func TestGreyWorld(t *testing.T) {
	img := tiles.NewRGBImage(3, 1)
	img.SetRGB(0, 0, 50, 100, 200)
	img.SetRGB(1, 0, 255, 255, 255) // clipped, ignored
	img.SetRGB(2, 0, 1, 0, 2)       // black, ignored

	gains := GreyWorld(img)
	assert.InDelta(t, 2.0, gains[0], 1e-9)
	assert.InDelta(t, 1.0, gains[1], 1e-9)
	assert.InDelta(t, 0.5, gains[2], 1e-9)

	p := linearProfile()
	p.WhiteBalance = "auto"
	out, err := p.Develop(img, emath.Vec3{}, 0)
	require.NoError(t, err)
	r, g, b := out.RGBAt(0, 0)
	assertPixel(t, [3]uint8{100, 100, 100}, [3]uint8{r, g, b})

	assert.Equal(t, emath.Vec3{1, 1, 1}, GreyWorld(tiles.NewRGBImage(2, 2)))
	assert.Equal(t, emath.Vec3{1, 1, 1}, GreyWorld(nil))
}

func TestSaturation(t *testing.T) {
	p := linearProfile()
	p.Saturation = 0 // unset
	assert.Equal(t, [3]uint8{102, 51, 51}, develop1(t, p, emath.Vec3{}, 102, 51, 51))

	p.Saturation = 2
	assertPixel(t, [3]uint8{138, 36, 36}, develop1(t, p, emath.Vec3{}, 102, 51, 51))

	// Greys have no saturation to change
	assert.Equal(t, [3]uint8{80, 80, 80}, develop1(t, p, emath.Vec3{}, 80, 80, 80))
}

func TestMatrix(t *testing.T) {
	p := linearProfile()
	p.Matrix = emath.Mat3{
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
	}
	assertPixel(t, [3]uint8{0, 51, 102}, develop1(t, p, emath.Vec3{}, 102, 51, 0))
}

func TestCurveAndContrast(t *testing.T) {
	p := linearProfile()
	p.Curve = []CurvePoint{{0, 0}, {0.5, 0.25}, {1, 1}}
	assertPixel(t, [3]uint8{51, 51, 51}, develop1(t, p, emath.Vec3{}, 102, 102, 102))
	assertPixel(t, [3]uint8{255, 255, 255}, develop1(t, p, emath.Vec3{}, 255, 255, 255))

	p = linearProfile()
	p.Contrast = 0.5
	assertPixel(t, [3]uint8{13, 13, 13}, develop1(t, p, emath.Vec3{}, 51, 51, 51))
	assertPixel(t, [3]uint8{128, 128, 128}, develop1(t, p, emath.Vec3{}, 128, 128, 128))
}

func assertMat3InDelta(t *testing.T, want, have emath.Mat3) {
	for i := range want {
		assert.InDelta(t, want[i], have[i], 1e-6, "element %d: want %v, have %v", i, want, have)
	}
}

// A "camera" that sees in sRGB should come out as the identity.
func TestFromCamXYZIdentity(t *testing.T) {
	xyzToRGB, err := LinearSRGB_to_XYZD65.Inverse()
	require.NoError(t, err)

	m, daylight, err := FromCamXYZ(xyzToRGB)
	require.NoError(t, err)
	assertMat3InDelta(t, emath.Identity3(), m)
	assert.InDelta(t, 1.0, daylight[0], 1e-6)
	assert.InDelta(t, 1.0, daylight[2], 1e-6)

	// Published tables are scaled by 10000; that doesn't matter
	scaled := xyzToRGB
	for i := range scaled {
		scaled[i] *= 10000
	}
	m2, daylight2, err := FromCamXYZ(scaled)
	require.NoError(t, err)
	assertMat3InDelta(t, m, m2)
	assert.InDelta(t, daylight[0], daylight2[0], 1e-6)
}

func TestFromCamXYZRealCamera(t *testing.T) {
	// dcraw's table entry for the Nikon D90
	d90 := emath.Mat3{7309, -1403, -519, -8474, 16008, 2622, -2434, 2826, 8064}

	m, daylight, err := FromCamXYZ(d90)
	require.NoError(t, err)

	// White balanced camera white is sRGB white
	white := m.Apply(emath.Vec3{1, 1, 1})
	for i := range white {
		assert.InDelta(t, 1.0, white[i], 1e-6)
	}

	assert.Equal(t, 1.0, daylight[1])
	assert.True(t, daylight[0] > 0)
	assert.True(t, daylight[2] > 0)

	_, _, err = FromCamXYZ(emath.Mat3{})
	assert.Error(t, err)
}

func TestCamXYZProfile(t *testing.T) {
	xyzToRGB, err := LinearSRGB_to_XYZD65.Inverse()
	require.NoError(t, err)

	p := linearProfile()
	p.WhiteBalance = "camera"
	p.CamXYZ = xyzToRGB
	d, err := p.NewDeveloper(onePixel(0, 0, 0), emath.Vec3{})
	require.NoError(t, err)
	assertMat3InDelta(t, emath.Identity3(), d.ToSRGB)
	assert.InDelta(t, 1.0, d.Gains[0], 1e-6)
}

func TestFromForwardMatrix(t *testing.T) {
	assert.Equal(t, XYZD50_to_linear_sRGBD65, FromForwardMatrix(emath.Identity3()))
}

func TestApplyLinear(t *testing.T) {
	img := tiles.NewRGBImage(2, 1)
	img.SetRGB(0, 0, 51, 102, 255)
	img.SetRGB(1, 0, 0, 0, 0)

	d, err := linearProfile().NewDeveloper(img, emath.Vec3{})
	require.NoError(t, err)

	li := d.ApplyLinear(img)
	assert.Equal(t, image.Rect(0, 0, 2, 1), li.Bounds())
	assert.Equal(t, 2, li.Size())

	c := li.HDRAt(0, 0).(hdrcolor.RGB)
	assert.InDelta(t, 0.2, c.R, 1e-9)
	assert.InDelta(t, 0.4, c.G, 1e-9)
	assert.InDelta(t, 1.0, c.B, 1e-9)
	assert.Equal(t, hdrcolor.RGB{}, li.HDRAt(5, 5))
}
