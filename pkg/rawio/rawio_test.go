package rawio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawpreview/pkg/bayer"
	"github.com/abworrall/rawpreview/pkg/emath"
)

// writeMosaic writes a 16-bit grey image whose samples count up from 0
// to max, in whatever format the extension names.
func writeMosaic(t *testing.T, name string, w, h int, max uint16) string {
	t.Helper()

	img := image.NewGray16(image.Rect(0, 0, w, h))
	n := w*h - 1
	for i := 0; i <= n; i++ {
		img.SetGray16(i%w, i/w, color.Gray16{Y: uint16(i * int(max) / n)})
	}

	filename := filepath.Join(t.TempDir(), name)
	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()

	if filepath.Ext(name) == ".png" {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, tiff.Encode(f, img, nil))
	}
	return filename
}

func captureLogs(t *testing.T) *bytes.Buffer {
	var b bytes.Buffer
	log.SetOutput(&b)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &b
}

func needCommand(t *testing.T, name string) {
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestIsRaw(t *testing.T) {
	assert.True(t, IsRaw("a/b/DSC_0001.NEF"))
	assert.True(t, IsRaw("x.cr2"))
	assert.False(t, IsRaw("x.tif"))
	assert.False(t, IsRaw("nef"))
}

func TestGuessWhite(t *testing.T) {
	buf := bayer.NewBuffer(2, 1)
	assert.Equal(t, uint16(255), GuessWhite(buf, 0xFFFF))

	buf.Set(1, 0, 1000)
	assert.Equal(t, uint16(1023), GuessWhite(buf, 0xFFFF))
	assert.Equal(t, uint16(255), GuessWhite(buf, 0xFF))

	buf.Set(0, 0, 16000)
	assert.Equal(t, uint16(16383), GuessWhite(buf, 0xFFFF))

	buf.Set(0, 0, 0xFFFF)
	assert.Equal(t, uint16(0xFFFF), GuessWhite(buf, 0xFFFF))
}

func TestBufferFromImage(t *testing.T) {
	g := image.NewGray(image.Rect(10, 10, 12, 11))
	g.SetGray(11, 10, color.Gray{Y: 200})
	buf, limit, err := bufferFromImage(g)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFF), limit)
	assert.Equal(t, image.Rect(0, 0, 2, 1), buf.Rect)
	assert.Equal(t, uint16(200), buf.At(1, 0))

	_, _, err = bufferFromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.Error(t, err)

	_, _, err = bufferFromImage(image.NewGray16(image.Rectangle{}))
	assert.Error(t, err)
}

func TestImageDecoderTIFF(t *testing.T) {
	filename := writeMosaic(t, "mosaic.tif", 6, 4, 4000)

	m, err := ImageDecoder{}.Decode(context.Background(), filename)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 6, 4), m.Buffer.Rect)
	assert.Equal(t, uint16(4000), m.Buffer.At(5, 3))
	assert.Equal(t, bayer.Levels{Black: 0, White: 4095}, m.Levels)
	assert.Equal(t, bayer.RGGB, m.Pattern)
	assert.Equal(t, "default", m.PatternSource)
	assert.Contains(t, m.String(), "mosaic.tif")
}

func TestImageDecoderPNGWithOverrides(t *testing.T) {
	filename := writeMosaic(t, "mosaic.png", 8, 4, 1000)

	d := ImageDecoder{Sensor: Sensor{
		Pattern:    "gr/bg",
		BlackLevel: 64,
		WhiteLevel: 900,
		Crop:       [4]int{3, 1, 7, 4},
	}}
	m, err := d.Decode(context.Background(), filename)
	require.NoError(t, err)

	assert.Equal(t, bayer.GRBG, m.Pattern)
	assert.Equal(t, "sensor", m.PatternSource)
	assert.Equal(t, bayer.Levels{Black: 64, White: 900}, m.Levels)

	// Cropping keeps sensor coordinates
	assert.Equal(t, image.Rect(3, 1, 7, 4), m.Buffer.Rect)
}

func TestImageDecoderErrors(t *testing.T) {
	_, err := ImageDecoder{}.Decode(context.Background(), filepath.Join(t.TempDir(), "missing.tif"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not a png"), 0644))
	_, err = ImageDecoder{}.Decode(context.Background(), junk)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ImageDecoder{}.Decode(ctx, writeMosaic(t, "m.tif", 2, 2, 100))
	assert.True(t, errors.Is(err, context.Canceled))
}

func testMosaic() *Mosaic {
	return &Mosaic{
		Filename: "test",
		Buffer:   bayer.NewBuffer(8, 6),
		Levels:   bayer.Levels{Black: 0, White: 4095},
	}
}

func TestResolvePatternOrder(t *testing.T) {
	grbg := [4]byte{1, 0, 2, 1}

	// EXIF beats the decoder
	m := testMosaic()
	m.Pattern, m.PatternSource = bayer.BGGR, "decoder"
	m.Meta.CFAPattern = &grbg
	require.NoError(t, Sensor{}.Resolve(m))
	assert.Equal(t, bayer.GRBG, m.Pattern)
	assert.Equal(t, "exif", m.PatternSource)

	// The override beats EXIF
	m = testMosaic()
	m.Meta.CFAPattern = &grbg
	require.NoError(t, Sensor{Pattern: "GBRG"}.Resolve(m))
	assert.Equal(t, bayer.GBRG, m.Pattern)
	assert.Equal(t, "sensor", m.PatternSource)

	// The decoder's answer survives when nothing else says otherwise
	m = testMosaic()
	m.Pattern, m.PatternSource = bayer.BGGR, "decoder"
	require.NoError(t, Sensor{}.Resolve(m))
	assert.Equal(t, bayer.BGGR, m.Pattern)
	assert.Equal(t, "decoder", m.PatternSource)
}

func TestResolveMalformedPatterns(t *testing.T) {
	logs := captureLogs(t)

	bad := [4]byte{0, 0, 3, 1}
	m := testMosaic()
	m.Meta.CFAPattern = &bad
	require.NoError(t, Sensor{Pattern: "RGBW"}.Resolve(m))

	assert.Equal(t, bayer.RGGB, m.Pattern)
	assert.Equal(t, "default", m.PatternSource)
	assert.Contains(t, logs.String(), "RGBW")
	assert.Contains(t, logs.String(), "exif")
}

func TestResolveErrors(t *testing.T) {
	m := testMosaic()
	assert.Error(t, Sensor{BlackLevel: 5000}.Resolve(m))

	m = testMosaic()
	assert.Error(t, Sensor{Crop: [4]int{4, 4, 10, 6}}.Resolve(m))
}

func TestIsMalformedPattern(t *testing.T) {
	_, err := bayer.ParsePattern("nope")
	assert.True(t, IsMalformedPattern(err))
	assert.False(t, IsMalformedPattern(errors.New("nope")))
	assert.False(t, IsMalformedPattern(nil))
}

func TestParseCFAPattern(t *testing.T) {
	cfa, ok := parseCFAPattern([]byte{0, 2, 0, 2, 0, 1, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, [4]byte{0, 1, 1, 2}, cfa)

	cfa, ok = parseCFAPattern([]byte{2, 0, 2, 0, 2, 1, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, [4]byte{2, 1, 1, 0}, cfa)

	_, ok = parseCFAPattern([]byte{0, 3, 0, 3, 0, 1, 2, 1, 0, 2, 1, 2, 0})
	assert.False(t, ok)

	_, ok = parseCFAPattern([]byte{0, 2})
	assert.False(t, ok)
}

func TestMetadataString(t *testing.T) {
	md := Metadata{
		Make:         "NIKON CORPORATION",
		Model:        "NIKON D90",
		ISO:          200,
		ApertureX10:  56,
		ShutterSpeed: [2]int64{1, 250},
		ExposureBias: -0.7,
	}
	assert.Equal(t, "NIKON CORPORATION NIKON D90 ISO200 f/5.6 1/250s -0.7EV", md.String())
	assert.Equal(t, "", Metadata{}.String())
}

const dcrawInfo = `Filename: DSC_0001.NEF
Timestamp: Sat Aug 14 10:02:11 2021
Camera: Nikon D90
ISO speed: 200
Filter pattern: BG/GR
Daylight multipliers: 2.087 0.945 1.173
Camera multipliers: 1.796875 1.000000 1.484375 1.000000
Darkness: 0
Saturation: 3880
`

func TestParseDcrawInfo(t *testing.T) {
	info := ParseDcrawInfo(strings.NewReader(dcrawInfo))
	assert.Equal(t, "Nikon D90", info.Camera)
	assert.Equal(t, "BG/GR", info.Pattern)
	assert.Equal(t, emath.Vec3{1.796875, 1, 1.484375}, info.Multipliers)
	assert.Equal(t, uint16(0), info.Black)
	assert.Equal(t, uint16(3880), info.White)

	info = ParseDcrawInfo(strings.NewReader("Camera multipliers: 1 x 2\nSaturation: lots\nnonsense\n"))
	assert.Equal(t, DcrawInfo{}, info)
}

func TestNewExecDecoder(t *testing.T) {
	d := NewExecDecoder(nil, Sensor{})
	assert.Equal(t, DefaultCommand, d.Command)
	assert.Equal(t, DefaultInfoCommand, d.InfoCommand)

	d = NewExecDecoder([]string{"unpack", "{input}"}, Sensor{})
	assert.Equal(t, []string{"unpack", "{input}"}, d.Command)
	assert.Empty(t, d.InfoCommand)

	assert.Equal(t, []string{"-c", "a/b.nef"}, expandArgs([]string{"-c", "{input}"}, "a/b.nef"))
}

func TestExecDecoder(t *testing.T) {
	needCommand(t, "cat")
	needCommand(t, "printf")

	// A "raw" file that is really a TIFF, so cat can stand in for dcraw
	filename := writeMosaic(t, "DSC_0001.nef", 6, 4, 3000)

	d := ExecDecoder{
		Command:     []string{"cat", "{input}"},
		InfoCommand: []string{"printf", "Filter pattern: BG/GR\nCamera multipliers: 2 1 1.5 1\nDarkness: 64\nSaturation: 4000\n"},
	}
	m, err := d.Decode(context.Background(), filename)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 6, 4), m.Buffer.Rect)
	assert.Equal(t, bayer.BGGR, m.Pattern)
	assert.Equal(t, "decoder", m.PatternSource)
	assert.Equal(t, emath.Vec3{2, 1, 1.5}, m.CameraWB)
	assert.Equal(t, bayer.Levels{Black: 64, White: 4000}, m.Levels)
}

func TestExecDecoderNoInfo(t *testing.T) {
	needCommand(t, "cat")

	filename := writeMosaic(t, "DSC_0002.nef", 4, 4, 3000)
	m, err := ExecDecoder{Command: []string{"cat", "{input}"}}.Decode(context.Background(), filename)
	require.NoError(t, err)
	assert.Equal(t, bayer.RGGB, m.Pattern)
	assert.Equal(t, "default", m.PatternSource)
	assert.Equal(t, uint16(4095), m.Levels.White)
}

func TestExecDecoderErrors(t *testing.T) {
	needCommand(t, "false")
	needCommand(t, "cat")

	_, err := ExecDecoder{Command: []string{"false"}}.Decode(context.Background(), "x.nef")
	assert.Error(t, err)

	_, err = ExecDecoder{}.Decode(context.Background(), "x.nef")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ExecDecoder{Command: []string{"cat", "{input}"}}.Decode(ctx, writeMosaic(t, "m.nef", 2, 2, 100))
	assert.True(t, errors.Is(err, context.Canceled))
}
