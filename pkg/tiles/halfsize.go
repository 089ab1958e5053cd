package tiles

import (
	"fmt"

	"github.com/abworrall/rawpreview/pkg/bayer"
	"github.com/abworrall/rawpreview/pkg/emath"
)

// HalfSize is the quick and dirty render: every 2x2 Bayer cell becomes one
// RGB pixel, with the two greens averaged. No interpolation, no tiles, no
// seams; the output is half the width and height (an odd last row or
// column is dropped).
func HalfSize(buf *bayer.Buffer, pattern bayer.Pattern, levels bayer.Levels) (*RGBImage, error) {
	if err := levels.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidLevels)
	}
	if buf == nil || buf.Width() < 2 || buf.Height() < 2 {
		return nil, fmt.Errorf("half size of %v: %w", buf, ErrInvalidGeometry)
	}

	pattern = pattern.Shift(buf.Rect.Min.X, buf.Rect.Min.Y)
	scale := 255.0 / float64(levels.Range())
	out := NewRGBImage(buf.Width()/2, buf.Height()/2)

	for oy := 0; oy < out.Height; oy++ {
		rows := [2][]uint16{buf.Row(buf.Rect.Min.Y + 2*oy), buf.Row(buf.Rect.Min.Y + 2*oy + 1)}
		for ox := 0; ox < out.Width; ox++ {
			var sum [3]float64
			var n [3]int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					c := pattern.ColorAt(2*ox+dx, 2*oy+dy)
					sum[c] += float64(levels.Sub(rows[dy][2*ox+dx]))
					n[c]++
				}
			}

			var rgb [3]uint8
			for c := range rgb {
				if n[c] > 0 {
					rgb[c] = emath.ClampToByte(sum[c] / float64(n[c]) * scale)
				}
			}
			out.SetRGB(ox, oy, rgb[0], rgb[1], rgb[2])
		}
	}

	return out, nil
}
