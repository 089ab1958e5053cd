package bayer

import (
	"fmt"
	"image"
)

// A Buffer holds raw 16-bit photosite values, laid out like the stdlib's
// image.Gray16 (but native-endian uint16s). Rect is in sensor coordinates,
// so a SubImage keeps the coordinates of the buffer it came from.
type Buffer struct {
	Pix    []uint16
	Stride int
	Rect   image.Rectangle
}

func NewBuffer(w, h int) *Buffer {
	return &Buffer{
		Pix:    make([]uint16, w*h),
		Stride: w,
		Rect:   image.Rect(0, 0, w, h),
	}
}

// BufferFromSamples wraps samples without copying; len(pix) must be w*h.
func BufferFromSamples(pix []uint16, w, h int) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bayer buffer %dx%d: dimensions must be positive", w, h)
	}
	if len(pix) != w*h {
		return nil, fmt.Errorf("bayer buffer %dx%d: have %d samples, want %d", w, h, len(pix), w*h)
	}
	return &Buffer{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}, nil
}

func (b *Buffer) Bounds() image.Rectangle { return b.Rect }
func (b *Buffer) Width() int              { return b.Rect.Dx() }
func (b *Buffer) Height() int             { return b.Rect.Dy() }

func (b *Buffer) PixOffset(x, y int) int {
	return (y-b.Rect.Min.Y)*b.Stride + (x - b.Rect.Min.X)
}

func (b *Buffer) At(x, y int) uint16 {
	if !(image.Point{x, y}.In(b.Rect)) {
		return 0
	}
	return b.Pix[b.PixOffset(x, y)]
}

func (b *Buffer) Set(x, y int, v uint16) {
	if !(image.Point{x, y}.In(b.Rect)) {
		return
	}
	b.Pix[b.PixOffset(x, y)] = v
}

// Row returns the samples of row y that lie inside the buffer.
func (b *Buffer) Row(y int) []uint16 {
	i := b.PixOffset(b.Rect.Min.X, y)
	return b.Pix[i : i+b.Rect.Dx()]
}

// SubImage returns a view of the samples visible through r. It shares
// the underlying samples. Decoders use it to drop masked border pixels.
func (b *Buffer) SubImage(r image.Rectangle) *Buffer {
	r = r.Intersect(b.Rect)
	if r.Empty() {
		return &Buffer{}
	}
	i := b.PixOffset(r.Min.X, r.Min.Y)
	return &Buffer{
		Pix:    b.Pix[i:],
		Stride: b.Stride,
		Rect:   r,
	}
}

// Compact copies the samples into a fresh buffer with its origin at (0,0)
// and no row padding.
func (b *Buffer) Compact() *Buffer {
	out := NewBuffer(b.Width(), b.Height())
	for y := b.Rect.Min.Y; y < b.Rect.Max.Y; y++ {
		copy(out.Pix[(y-b.Rect.Min.Y)*out.Stride:], b.Row(y))
	}
	return out
}

func (b *Buffer) String() string {
	return fmt.Sprintf("bayer.Buffer%s", b.Rect)
}
