package develop

import (
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/rawpreview/pkg/tiles"
)

// LinearImage is a developed image before the tone curve: linear sRGB
// floats, not clamped. It implements hdr.Image, so it can be written as
// a Radiance .hdr for tools that want to do their own tonemapping.
type LinearImage struct {
	Pix  []hdrcolor.RGB
	Rect image.Rectangle
}

// Implement image.Image
func (li *LinearImage) ColorModel() color.Model { return hdrcolor.RGBModel }
func (li *LinearImage) Bounds() image.Rectangle { return li.Rect }
func (li *LinearImage) At(x, y int) color.Color { return li.HDRAt(x, y) }

// Implement hdr.Image
func (li *LinearImage) HDRAt(x, y int) hdrcolor.Color {
	if !(image.Point{x, y}.In(li.Rect)) {
		return hdrcolor.RGB{}
	}
	return li.Pix[(y-li.Rect.Min.Y)*li.Rect.Dx()+(x-li.Rect.Min.X)]
}
func (li *LinearImage) Size() int { return li.Rect.Dx() * li.Rect.Dy() }

// ApplyLinear runs the color stages, stopping short of the tone curve.
func (d *Developer) ApplyLinear(img *tiles.RGBImage) *LinearImage {
	out := &LinearImage{
		Pix:  make([]hdrcolor.RGB, img.Width*img.Height),
		Rect: img.Bounds(),
	}
	for i := range out.Pix {
		o := i * 3
		r, g, b := d.Linear(float64(img.Pix[o])/255.0, float64(img.Pix[o+1])/255.0, float64(img.Pix[o+2])/255.0)
		out.Pix[i] = hdrcolor.RGB{R: r, G: g, B: b}
	}
	return out
}
