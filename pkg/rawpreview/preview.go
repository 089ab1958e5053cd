package rawpreview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"time"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"

	"github.com/abworrall/rawpreview/pkg/rawio"
	"github.com/abworrall/rawpreview/pkg/tiles"
)

// Cameras often embed only a tiny EXIF thumbnail; below this size we
// render instead.
const MinEmbeddedDimension = 1024

// Orient applies an EXIF orientation (1-8), so the image displays upright.
// Unknown values leave it alone.
func Orient(img image.Image, orientation int) image.Image {
	var f gift.Filter
	switch orientation {
	case 2:
		f = gift.FlipHorizontal()
	case 3:
		f = gift.Rotate180()
	case 4:
		f = gift.FlipVertical()
	case 5:
		f = gift.Transpose()
	case 6:
		f = gift.Rotate270() // 90 clockwise
	case 7:
		f = gift.Transverse()
	case 8:
		f = gift.Rotate90()
	default:
		return img
	}

	g := gift.New(f)
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// Downscale shrinks img to fit in maxDim x maxDim, keeping the aspect
// ratio. Images that already fit, or a maxDim of 0, are returned as is.
func Downscale(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	return resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
}

func longSide(r image.Rectangle) int {
	if r.Dx() > r.Dy() {
		return r.Dx()
	}
	return r.Dy()
}

// Embedded returns the camera's own JPEG preview, if it has one big
// enough to be worth using.
func (r *Renderer) Embedded(filename string) (image.Image, error) {
	thumb, err := rawio.Thumbnail(filename)
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(thumb))
	if err != nil {
		return nil, fmt.Errorf("embedded preview '%s': %w", filename, err)
	}

	need := MinEmbeddedDimension
	if r.Preview.MaxDimension > 0 && r.Preview.MaxDimension < need {
		need = r.Preview.MaxDimension
	}
	if longSide(img.Bounds()) < need {
		return nil, fmt.Errorf("embedded preview '%s' is only %v", filename, img.Bounds().Size())
	}
	return img, nil
}

// PreviewImage produces a display-ready image: upright, and no bigger than
// Preview.MaxDimension. If allowed it uses the embedded preview, falling
// back to a full render.
func (r *Renderer) PreviewImage(ctx context.Context, filename string) (image.Image, *Result, error) {
	if r.Preview.PreferEmbedded {
		start := time.Now()
		if img, err := r.Embedded(filename); err != nil {
			if r.Verbosity > 0 {
				log.Printf("%s: not using embedded preview: %v", filename, err)
			}
		} else {
			md, _ := rawio.ReadMetadata(filename)
			res := &Result{
				Filename: filename,
				Image:    tiles.RGBImageFrom(img),
				Embedded: true,
				Elapsed:  time.Since(start),
			}
			return Downscale(Orient(img, md.Orientation), r.Preview.MaxDimension), res, nil
		}
	}

	res, err := r.Render(ctx, filename)
	if err != nil {
		return nil, nil, err
	}
	return Downscale(Orient(res.Image, res.Mosaic.Meta.Orientation), r.Preview.MaxDimension), res, nil
}
