// Package rawio gets raw sensor data off disk: it runs or reads whatever
// unpacked the camera's file, and hands back a typed mosaic with the
// sensor metadata needed to demosaic it.
package rawio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"path/filepath"
	"strings"

	"github.com/abworrall/rawpreview/pkg/bayer"
	"github.com/abworrall/rawpreview/pkg/emath"
)

// A Mosaic is one decoded raw frame.
type Mosaic struct {
	Filename string
	Buffer   *bayer.Buffer
	Pattern  bayer.Pattern
	Levels   bayer.Levels

	// As-shot white balance multipliers (R,G,B), if the decoder found
	// them; zero otherwise.
	CameraWB emath.Vec3

	// Where Pattern came from: "sensor", "exif", "decoder" or "default".
	PatternSource string

	Meta Metadata
}

func (m *Mosaic) String() string {
	return fmt.Sprintf("%s: %s %s (from %s) levels%s wb%v",
		filepath.Base(m.Filename), m.Buffer, m.Pattern, m.PatternSource, m.Levels, m.CameraWB)
}

// A Decoder produces a mosaic from a file. Implementations must not
// demosaic or scale the samples.
type Decoder interface {
	Decode(ctx context.Context, filename string) (*Mosaic, error)
}

// RawExtensions are the camera raw formats the external decoder is
// pointed at. Anything else goes to the image decoder.
var RawExtensions = []string{
	".arw", ".cr2", ".cr3", ".crw", ".dng", ".erf", ".kdc", ".mef", ".mos", ".mrw", ".nef",
	".nrw", ".orf", ".pef", ".raf", ".raw", ".rw2", ".sr2", ".srf", ".srw", ".x3f",
}

func IsRaw(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range RawExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// bufferFromImage copies the samples of a greyscale image into a Buffer.
// 8-bit images are kept at their 8-bit values.
func bufferFromImage(img image.Image) (*bayer.Buffer, uint16, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, 0, fmt.Errorf("empty image")
	}
	buf := bayer.NewBuffer(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				buf.Pix[y*buf.Stride+x] = src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
		return buf, 0xFFFF, nil

	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				buf.Pix[y*buf.Stride+x] = uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return buf, 0xFF, nil
	}

	// Some encoders write a single channel mosaic as RGB with equal channels
	if img.ColorModel() == color.RGBA64Model || img.ColorModel() == color.NRGBA64Model {
		log.Printf("rawio: %T is not greyscale, using the red channel as the mosaic", img)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				buf.Pix[y*buf.Stride+x] = uint16(r)
			}
		}
		return buf, 0xFFFF, nil
	}

	return nil, 0, fmt.Errorf("%T with %T is not a raw mosaic, want 16-bit greyscale", img, img.ColorModel())
}

// GuessWhite picks a white level when nothing says what it is: the
// smallest all-ones bit pattern that holds the brightest sample (so a
// 14-bit sensor gets 16383), capped at limit.
func GuessWhite(buf *bayer.Buffer, limit uint16) uint16 {
	max := uint16(0)
	for y := buf.Rect.Min.Y; y < buf.Rect.Max.Y; y++ {
		for _, v := range buf.Row(y) {
			if v > max {
				max = v
			}
		}
	}

	white := uint16(0xFF)
	for white < max && white < limit {
		white = white<<1 | 1
	}
	if white > limit {
		white = limit
	}
	return white
}

// levelsFor fills in whichever level the decoder didn't report. A
// missing white level is guessed from the samples.
func levelsFor(buf *bayer.Buffer, black, white, limit uint16) bayer.Levels {
	if white == 0 {
		white = GuessWhite(buf, limit)
	}
	return bayer.Levels{Black: black, White: white}
}
