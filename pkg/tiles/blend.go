package tiles

import (
	"fmt"
	"image"

	"github.com/abworrall/rawpreview/pkg/emath"
)

// A CoverageGapError means some output pixels received no weight from any
// tile. That is a bug in the tile geometry, not in the data, so the whole
// blend is thrown away rather than handing back black holes.
type CoverageGapError struct {
	Uncovered int
	First     image.Point
}

func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("tile coverage gap: %d pixels have no weight, first at %v", e.Uncovered, e.First)
}

// ramp is the weight at distance d (in pixels) from a tile edge that is
// shared with a neighbour. It rises linearly from 0 at the edge to 1 at
// the far side of the overlap band.
func ramp(d, overlap int) float64 {
	if overlap <= 0 {
		return 1.0
	}
	return emath.ClampF64(float64(d)/float64(overlap), 0.0, 1.0)
}

// tileWeight is the blend weight for pixel (tx,ty) of a tile, in tile
// coordinates. Only edges that face another tile ramp down; an edge on the
// image boundary has no neighbour to hand over to, so it keeps full weight.
// Distances are counted so that the tile's own outermost pixel, which the
// demosaicer leaves black, gets weight 0.
func tileWeight(t *DemosaicedTile, tx, ty, outW, outH int) float64 {
	wx, wy := 1.0, 1.0

	if t.X > 0 {
		wx = min64(wx, ramp(tx, t.Overlap))
	}
	if t.X+t.Width < outW {
		wx = min64(wx, ramp(t.Width-1-tx, t.Overlap))
	}
	if t.Y > 0 {
		wy = min64(wy, ramp(ty, t.Overlap))
	}
	if t.Y+t.Height < outH {
		wy = min64(wy, ramp(t.Height-1-ty, t.Overlap))
	}

	return wx * wy
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Blend merges demosaiced tiles into one width x height image. Each pixel
// is a running weighted average of every tile that covers it:
//
//	out = (out*acc + tile*w) / (acc + w);  acc += w
//
// The order of the tiles doesn't matter. Pixels with no weight at the end
// mean the tiles didn't cover the image, which returns a *CoverageGapError
// and no image.
func Blend(tiles []DemosaicedTile, width, height int) (*RGBImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("blend into %dx%d: %w", width, height, ErrInvalidGeometry)
	}

	// Both of these only live for the duration of the blend
	weights := emath.NewFloatGrid(width, height)
	accum := make([]float64, width*height*3)

	for i := range tiles {
		t := &tiles[i]
		if len(t.RGB) < t.Width*t.Height*3 {
			return nil, fmt.Errorf("tile at (%d,%d) has %d bytes, want %d: %w",
				t.X, t.Y, len(t.RGB), t.Width*t.Height*3, ErrInvalidGeometry)
		}

		for ty := 0; ty < t.Height; ty++ {
			gy := t.Y + ty
			if gy < 0 || gy >= height {
				continue
			}
			for tx := 0; tx < t.Width; tx++ {
				gx := t.X + tx
				if gx < 0 || gx >= width {
					continue
				}

				w := tileWeight(t, tx, ty, width, height)
				if w == 0.0 {
					continue
				}

				acc := weights.Get(gx, gy)
				src := (ty*t.Width + tx) * 3
				dst := (gy*width + gx) * 3
				for c := 0; c < 3; c++ {
					accum[dst+c] = (accum[dst+c]*acc + float64(t.RGB[src+c])*w) / (acc + w)
				}
				weights.Set(gx, gy, acc+w)
			}
		}
	}

	if n, first := weights.Zeros(); n > 0 {
		return nil, &CoverageGapError{Uncovered: n, First: first}
	}

	out := NewRGBImage(width, height)
	for i, v := range accum {
		out.Pix[i] = emath.ClampToByte(v)
	}

	return out, nil
}

// FillBorder copies the nearest interior pixel into the outermost ring of
// the image. No tile can reconstruct that ring (there are no neighbours
// past the sensor edge), so without this it stays black.
func FillBorder(im *RGBImage) {
	w, h := im.Width, im.Height
	if w < MinTileDim || h < MinTileDim {
		return
	}

	copyPix := func(dx, dy, sx, sy int) {
		r, g, b := im.RGBAt(sx, sy)
		im.SetRGB(dx, dy, r, g, b)
	}

	for x := 1; x < w-1; x++ {
		copyPix(x, 0, x, 1)
		copyPix(x, h-1, x, h-2)
	}
	for y := 0; y < h; y++ {
		sy := y
		if sy == 0 {
			sy = 1
		} else if sy == h-1 {
			sy = h - 2
		}
		copyPix(0, y, 1, sy)
		copyPix(w-1, y, w-2, sy)
	}
}
