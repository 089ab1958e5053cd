// Package tiles demosaics a Bayer mosaic by cutting it into overlapping
// tiles, reconstructing RGB for each tile in parallel, and blending the
// tiles back together with weights that fade out across the overlaps.
package tiles

import (
	"errors"
	"fmt"
	"image"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

var (
	ErrInvalidGeometry = errors.New("invalid tile geometry")
	ErrInvalidLevels   = errors.New("invalid black/white levels")
)

// A Tile is a rectangle of raw samples, copied out of the mosaic. X,Y are
// the position of its top-left sample in image coordinates; Core is the
// region the tile is responsible for, and the samples extend up to Overlap
// past the core on each side (less where the image ends).
type Tile struct {
	X, Y          int
	Width, Height int
	Overlap       int
	Core          image.Rectangle
	Pix           []uint16
}

func (t Tile) Bounds() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height)
}

func (t Tile) String() string {
	return fmt.Sprintf("tile%s core%s", t.Bounds(), t.Core)
}

// Grid says how many tiles Extract will cut an image into.
func Grid(width, height, tileSize int) (int, int) {
	return (width + tileSize - 1) / tileSize, (height + tileSize - 1) / tileSize
}

// Extract cuts buf into a row-major grid of tiles. The tile coordinates
// are relative to buf's top-left corner, so they line up with the output
// image. The final row and column of tiles are smaller when tileSize does
// not divide the image evenly; nothing is padded.
func Extract(buf *bayer.Buffer, tileSize, overlap int) ([]Tile, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size %d: %w", tileSize, ErrInvalidGeometry)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap %d: %w", overlap, ErrInvalidGeometry)
	}
	if buf == nil || buf.Rect.Empty() {
		return nil, fmt.Errorf("empty mosaic: %w", ErrInvalidGeometry)
	}

	width, height := buf.Width(), buf.Height()
	tilesX, tilesY := Grid(width, height, tileSize)

	tiles := make([]Tile, 0, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			tiles = append(tiles, extractTile(buf, tileSize, overlap, tx, ty))
		}
	}

	return tiles, nil
}

func extractTile(buf *bayer.Buffer, tileSize, overlap, tx, ty int) Tile {
	width, height := buf.Width(), buf.Height()

	core := image.Rect(tx*tileSize, ty*tileSize, (tx+1)*tileSize, (ty+1)*tileSize)
	core = core.Intersect(image.Rect(0, 0, width, height))

	// Grow by the overlap, then clip back to the image; Intersect does the
	// saturating at both ends for us.
	span := core.Inset(-overlap).Intersect(image.Rect(0, 0, width, height))

	t := Tile{
		X:       span.Min.X,
		Y:       span.Min.Y,
		Width:   span.Dx(),
		Height:  span.Dy(),
		Overlap: overlap,
		Core:    core,
		Pix:     make([]uint16, span.Dx()*span.Dy()),
	}

	origin := buf.Rect.Min
	for y := 0; y < t.Height; y++ {
		row := buf.Row(origin.Y + t.Y + y)
		copy(t.Pix[y*t.Width:(y+1)*t.Width], row[t.X:t.X+t.Width])
	}

	return t
}
