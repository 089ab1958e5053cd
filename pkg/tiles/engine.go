package tiles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

const (
	DefaultTileSize = 512
	DefaultOverlap  = 16
)

// An Engine runs the whole tiled demosaic: extract, demosaic every tile
// on a pool of workers, then blend. A zero TileSize means DefaultTileSize;
// Overlap is used as given, but never below InterpolationRadius.
type Engine struct {
	TileSize  int
	Overlap   int
	Workers   int // <= 0 means one per CPU
	Verbosity int
	DebugDir  string // if set, tile overlay and weight map PNGs go here

	Stats Stats // filled in by Demosaic
}

// Stats describes what the most recent Demosaic call did.
type Stats struct {
	Tiles            int
	TilesX, TilesY   int
	DegenerateTiles  int
	EffectiveOverlap int
	Workers          int
	Elapsed          time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d tiles (%dx%d, %d degenerate), overlap %d, %d workers, %s",
		s.Tiles, s.TilesX, s.TilesY, s.DegenerateTiles, s.EffectiveOverlap, s.Workers, s.Elapsed)
}

func (e *Engine) tileSize() int {
	if e.TileSize <= 0 {
		return DefaultTileSize
	}
	return e.TileSize
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return runtime.NumCPU()
	}
	return e.Workers
}

// overlap returns the overlap to actually use. Less than the kernel
// radius would leave a seam of zero-weight pixels between tiles, so it
// gets bumped up, loudly.
func (e *Engine) overlap() int {
	if e.Overlap < InterpolationRadius {
		log.Printf("tiles: overlap %d is below the interpolation radius %d; using %d",
			e.Overlap, InterpolationRadius, InterpolationRadius)
		return InterpolationRadius
	}
	return e.Overlap
}

// Demosaic turns a mosaic into RGB. The pattern describes the sensor that
// buf's coordinates refer to; if buf is a cropped view, the pattern is
// re-phased to the crop origin here.
//
// Tiles are independent, so they run on a fixed-size pool with no shared
// state; each result lands in its own slot. Blending waits for all of
// them. If ctx is cancelled, or a tile fails outright, nothing is
// returned but the error. An Engine runs one Demosaic at a time.
func (e *Engine) Demosaic(ctx context.Context, buf *bayer.Buffer, pattern bayer.Pattern, levels bayer.Levels) (*RGBImage, error) {
	start := time.Now()
	e.Stats = Stats{Workers: e.workers()}
	stats := &e.Stats

	if err := levels.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidLevels)
	}

	stats.EffectiveOverlap = e.overlap()
	tiles, err := Extract(buf, e.tileSize(), stats.EffectiveOverlap)
	if err != nil {
		return nil, err
	}
	stats.Tiles = len(tiles)
	stats.TilesX, stats.TilesY = Grid(buf.Width(), buf.Height(), e.tileSize())

	if e.Verbosity > 0 {
		log.Printf("tiles: %s -> %dx%d tiles (%dpx + %dpx overlap), pattern %s",
			buf.Rect, stats.TilesX, stats.TilesY, e.tileSize(), stats.EffectiveOverlap, pattern)
	}

	pattern = pattern.Shift(buf.Rect.Min.X, buf.Rect.Min.Y)

	results := make([]DemosaicedTile, len(tiles))
	degenerate := make([]bool, len(tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stats.Workers)

	for i := range tiles {
		i := i
		if gctx.Err() != nil {
			break // something failed or we were cancelled; stop handing out work
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v", tiles[i], r)
				}
			}()

			if err := gctx.Err(); err != nil {
				return err
			}

			dt, err := DemosaicTile(tiles[i], pattern, levels)
			var dte *DegenerateTileError
			if errors.As(err, &dte) {
				degenerate[i] = true
				return nil
			} else if err != nil {
				return err
			}

			results[i] = dt
			tiles[i].Pix = nil // done with the samples
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("demosaic: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("demosaic: %w", err)
	}

	// Degenerate tiles are all black; blending them in would darken the
	// pixels they touch, so leave them out and let the coverage check
	// catch any real hole.
	usable := results[:0]
	warn := newLogLimiter()
	for i := range results {
		if degenerate[i] {
			stats.DegenerateTiles++
			warn.Printf("tiles: skipping degenerate %s (tile size %d, overlap %d)", tiles[i], e.tileSize(), stats.EffectiveOverlap)
			continue
		}
		usable = append(usable, results[i])
	}
	warn.Flush()

	img, err := Blend(usable, buf.Width(), buf.Height())
	if err != nil {
		return nil, fmt.Errorf("blend: %w", err)
	}
	FillBorder(img)

	if e.DebugDir != "" {
		dumpDebug(e.DebugDir, img, tiles, usable)
	}

	stats.Elapsed = time.Since(start)
	if e.Verbosity > 0 {
		log.Printf("tiles: %s", stats)
	}

	return img, nil
}
