package tiles

import (
	"fmt"

	"github.com/abworrall/rawpreview/pkg/bayer"
	"github.com/abworrall/rawpreview/pkg/emath"
)

// InterpolationRadius is how far the bilinear kernel reaches. Tiles must
// overlap by at least this much, or the zeroed ring around each tile
// shows up as a seam.
const InterpolationRadius = 1

// MinTileDim is the smallest tile that has any pixel with a full 3x3
// neighbourhood.
const MinTileDim = 2*InterpolationRadius + 1

// A DemosaicedTile is the RGB reconstruction of a Tile: 3 bytes per
// pixel, interleaved R,G,B, at the same position as its source.
type DemosaicedTile struct {
	X, Y          int
	Width, Height int
	Overlap       int
	RGB           []uint8
}

// A DegenerateTileError is returned alongside an all-zero tile, when the
// tile is too small to hold a single full neighbourhood. It is a warning:
// it points at a tile size / overlap combo that cuts slivers, but the
// other tiles are still good.
type DegenerateTileError struct {
	Tile Tile
}

func (e *DegenerateTileError) Error() string {
	return fmt.Sprintf("degenerate %s: %dx%d is smaller than %dx%d", e.Tile, e.Tile.Width, e.Tile.Height, MinTileDim, MinTileDim)
}

// DemosaicTile reconstructs RGB for one tile with bilinear interpolation
// of same-colored neighbours. The pattern must describe the image the
// tile's X,Y live in.
//
// The outermost ring of the tile has no full neighbourhood, so it is left
// black; the blender gives those pixels no weight, and the neighbouring
// tile's overlap covers them.
func DemosaicTile(t Tile, pattern bayer.Pattern, levels bayer.Levels) (DemosaicedTile, error) {
	out := DemosaicedTile{
		X:       t.X,
		Y:       t.Y,
		Width:   t.Width,
		Height:  t.Height,
		Overlap: t.Overlap,
		RGB:     make([]uint8, t.Width*t.Height*3),
	}

	if t.Width < MinTileDim || t.Height < MinTileDim {
		return out, &DegenerateTileError{Tile: t}
	}
	if err := levels.Validate(); err != nil {
		return out, fmt.Errorf("%s: %v: %w", t, err, ErrInvalidLevels)
	}

	scale := 255.0 / float64(levels.Range())
	w := t.Width

	// Samples with black subtracted
	px := func(i int) float64 { return float64(levels.Sub(t.Pix[i])) }
	cross := func(i int) float64 { return (px(i-1) + px(i+1) + px(i-w) + px(i+w)) / 4 }
	diag := func(i int) float64 { return (px(i-w-1) + px(i-w+1) + px(i+w-1) + px(i+w+1)) / 4 }
	horiz := func(i int) float64 { return (px(i-1) + px(i+1)) / 2 }
	vert := func(i int) float64 { return (px(i-w) + px(i+w)) / 2 }

	for y := 1; y < t.Height-1; y++ {
		gy := t.Y + y
		for x := 1; x < t.Width-1; x++ {
			gx := t.X + x
			i := y*w + x

			var r, g, b float64
			switch pattern.ColorAt(gx, gy) {
			case bayer.Red:
				r, g, b = px(i), cross(i), diag(i)

			case bayer.Blue:
				r, g, b = diag(i), cross(i), px(i)

			case bayer.Green:
				g = px(i)
				// Which axis has the red neighbours depends on the pattern and the
				// row, so ask rather than assume.
				if pattern.ColorAt(gx+1, gy) == bayer.Red {
					r, b = horiz(i), vert(i)
				} else {
					r, b = vert(i), horiz(i)
				}
			}

			o := i * 3
			out.RGB[o+0] = emath.ClampToByte(r * scale)
			out.RGB[o+1] = emath.ClampToByte(g * scale)
			out.RGB[o+2] = emath.ClampToByte(b * scale)
		}
	}

	return out, nil
}
