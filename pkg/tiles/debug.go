package tiles

import (
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/abworrall/rawpreview/pkg/emath"
)

// WeightMap returns the total blend weight each output pixel would get
// from a set of tiles. Anything at zero is a coverage gap.
func WeightMap(tiles []DemosaicedTile, width, height int) emath.FloatGrid {
	fg := emath.NewFloatGrid(width, height)
	for i := range tiles {
		t := &tiles[i]
		for ty := 0; ty < t.Height; ty++ {
			for tx := 0; tx < t.Width; tx++ {
				gx, gy := t.X+tx, t.Y+ty
				if gx < 0 || gy < 0 || gx >= width || gy >= height {
					continue
				}
				fg.Add(gx, gy, tileWeight(t, tx, ty, width, height))
			}
		}
	}
	return fg
}

// DrawTiles draws the tile layout over an image: each core in green, the
// extent including overlap in red, and the tile index in the corner.
func DrawTiles(img image.Image, tiles []Tile, filename string) error {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1)

	for i, t := range tiles {
		b := t.Bounds()
		dc.SetRGB(1, 0, 0)
		dc.DrawRectangle(float64(b.Min.X)+0.5, float64(b.Min.Y)+0.5, float64(b.Dx()-1), float64(b.Dy()-1))
		dc.Stroke()

		dc.SetRGB(0, 1, 0)
		dc.DrawRectangle(float64(t.Core.Min.X)+0.5, float64(t.Core.Min.Y)+0.5, float64(t.Core.Dx()-1), float64(t.Core.Dy()-1))
		dc.Stroke()

		dc.DrawString(fmt.Sprintf("%d", i), float64(t.Core.Min.X+4), float64(t.Core.Min.Y+14))
	}

	return dc.SavePNG(filename)
}

// dumpDebug writes the tile overlay and the weight map into dir. Failures
// only get logged; debug output never fails a render.
func dumpDebug(dir string, img *RGBImage, tiles []Tile, done []DemosaicedTile) {
	overlay := filepath.Join(dir, "tiles-overlay.png")
	if err := DrawTiles(img, tiles, overlay); err != nil {
		log.Printf("tiles: debug overlay: %v", err)
	}

	weights := WeightMap(done, img.Width, img.Height)
	if err := weights.ToImg(weights.Stats(), filepath.Join(dir, "tiles-weights.png")); err != nil {
		log.Printf("tiles: debug weights: %v", err)
	}
}
