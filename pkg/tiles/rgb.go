package tiles

import (
	"image"
	"image/color"
)

// RGBImage is a packed 8-bit RGB image, 3 bytes per pixel with no row
// padding. It implements image.Image so it can go straight to an encoder.
type RGBImage struct {
	Pix    []uint8
	Width  int
	Height int
}

func NewRGBImage(w, h int) *RGBImage {
	return &RGBImage{
		Pix:    make([]uint8, w*h*3),
		Width:  w,
		Height: h,
	}
}

// Implement image.Image
func (im *RGBImage) ColorModel() color.Model { return color.RGBAModel }
func (im *RGBImage) Bounds() image.Rectangle { return image.Rect(0, 0, im.Width, im.Height) }
func (im *RGBImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= im.Width || y >= im.Height {
		return color.RGBA{}
	}
	r, g, b := im.RGBAt(x, y)
	return color.RGBA{r, g, b, 0xff}
}

func (im *RGBImage) PixOffset(x, y int) int { return (y*im.Width + x) * 3 }

func (im *RGBImage) RGBAt(x, y int) (uint8, uint8, uint8) {
	i := im.PixOffset(x, y)
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
}

func (im *RGBImage) SetRGB(x, y int, r, g, b uint8) {
	i := im.PixOffset(x, y)
	im.Pix[i], im.Pix[i+1], im.Pix[i+2] = r, g, b
}

// ToRGBA converts into the stdlib's image type, for the filters and
// encoders that special-case it.
func (im *RGBImage) ToRGBA() *image.RGBA {
	out := image.NewRGBA(im.Bounds())
	for i, j := 0, 0; i < len(im.Pix); i, j = i+3, j+4 {
		out.Pix[j+0] = im.Pix[i+0]
		out.Pix[j+1] = im.Pix[i+1]
		out.Pix[j+2] = im.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// RGBImageFrom copies any image.Image into packed RGB, dropping alpha.
func RGBImageFrom(src image.Image) *RGBImage {
	b := src.Bounds()
	out := NewRGBImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return out
}
