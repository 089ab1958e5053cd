package rawpreview

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/abworrall/rawpreview/pkg/develop"
	"github.com/abworrall/rawpreview/pkg/exposure"
	"github.com/abworrall/rawpreview/pkg/rawio"
	"github.com/abworrall/rawpreview/pkg/tiles"
	"github.com/abworrall/rawpreview/pkg/tonemap"
)

// A Result is one rendered raw, and how it got that way.
type Result struct {
	Filename string
	Mosaic   *rawio.Mosaic

	Exposure exposure.Report // zero if AutoExposure was off
	EV       float64         // total exposure change applied to the mosaic
	Stats    tiles.Stats     // zero for half-size renders

	Image    *tiles.RGBImage      // developed, 8-bit sRGB
	Linear   *develop.LinearImage // developed but not tonemapped; only if KeepLinear
	Embedded bool                 // Image is the camera's own preview, not a render

	Elapsed time.Duration
}

func (r *Result) String() string {
	s := fmt.Sprintf("%s: %dx%d", filepath.Base(r.Filename), r.Image.Width, r.Image.Height)
	if r.Mosaic != nil {
		s += fmt.Sprintf(", %s (from %s), %s", r.Mosaic.Pattern, r.Mosaic.PatternSource, EVString(r.Mosaic.Meta))
	}
	if r.Embedded {
		return s + ", embedded preview"
	}
	s += fmt.Sprintf(", exposure %+.2f", r.EV)
	if r.Exposure.Samples > 0 {
		s += fmt.Sprintf(" [%s]", r.Exposure)
	}
	if r.Stats.Tiles > 0 {
		s += fmt.Sprintf(", %s", r.Stats)
	}
	return s + fmt.Sprintf(", took %s", r.Elapsed.Round(time.Millisecond))
}

// A Renderer turns raw files into developed images, per its Config. It
// holds no state between renders, so one can be shared.
type Renderer struct {
	Config

	// Keep the pre-tonemap image in the Result, for .hdr output
	KeepLinear bool
}

func NewRenderer(c Config) (*Renderer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{Config: c}, nil
}

func (r *Renderer) Render(ctx context.Context, filename string) (*Result, error) {
	m, err := r.DecoderFor(filename).Decode(ctx, filename)
	if err != nil {
		return nil, err
	}
	if r.Verbosity > 0 {
		log.Printf("decoded %s", m)
	}
	return r.RenderMosaic(ctx, m)
}

// exposureFor sums up the exposure change for the mosaic.
func (r *Renderer) exposureFor(m *rawio.Mosaic) (float64, exposure.Report) {
	ev := 0.0
	report := exposure.Report{}

	if r.AutoExposure {
		report = exposure.Analyze(m.Buffer, m.Levels, r.SampleStride)
		ev += report.EV
		if r.Verbosity > 0 {
			log.Printf("%s: auto exposure %s", filepath.Base(m.Filename), report)
		}
	}

	ev += r.ExposureCompensation
	if r.UseCameraCompensation {
		ev += m.Meta.ExposureBias
	}

	return ev, report
}

// RenderMosaic does everything after the decode: exposure, demosaic, and
// development.
func (r *Renderer) RenderMosaic(ctx context.Context, m *rawio.Mosaic) (*Result, error) {
	start := time.Now()
	res := &Result{Filename: m.Filename, Mosaic: m}

	res.EV, res.Exposure = r.exposureFor(m)

	buf := m.Buffer
	if res.EV != 0 {
		if r.PreserveHighlights {
			buf = exposure.ApplyPreserving(buf, m.Levels, res.EV)
		} else {
			buf = exposure.Apply(buf, m.Levels, res.EV)
		}
	}

	var rgb *tiles.RGBImage
	var err error
	if r.HalfSize {
		rgb, err = tiles.HalfSize(buf, m.Pattern, m.Levels)
	} else {
		engine := r.Engine()
		rgb, err = engine.Demosaic(ctx, buf, m.Pattern, m.Levels)
		res.Stats = engine.Stats
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Filename, err)
	}

	d, err := r.Develop.NewDeveloper(rgb, m.CameraWB)
	if err != nil {
		return nil, fmt.Errorf("%s: develop: %w", m.Filename, err)
	}
	if r.Verbosity > 0 {
		log.Printf("%s: develop %s, gains %v", filepath.Base(m.Filename), r.Develop, d.Gains)
	}

	if r.Tonemapper != "" || r.KeepLinear {
		res.Linear = d.ApplyLinear(rgb)
	}

	if r.Tonemapper != "" {
		op, err := tonemap.New(r.Tonemapper, res.Linear, r.DebugTiles)
		if err != nil {
			return nil, err
		}
		res.Image = tiles.RGBImageFrom(op.Perform())
	} else {
		res.Image = d.Apply(rgb)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}
