package rawpreview

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// OutputName is where the render of input goes: same base name, new
// extension, in outDir (or next to the input if outDir is empty).
func OutputName(input, outDir, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, base+"."+format)
}

// Run renders every input, one after the other; each render already uses
// all the CPUs. A failed input is logged and skipped, and the error
// reports how many failed.
func (b *Batch) Run(ctx context.Context, outDir, format string) ([]*Result, error) {
	if _, err := OutputFormat("x." + format); err != nil {
		return nil, err
	}
	r, err := NewRenderer(b.Config)
	if err != nil {
		return nil, err
	}
	r.KeepLinear = format == "hdr"

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("output dir: %v", err)
		}
	}

	results := []*Result{}
	failed := 0
	for _, input := range b.Inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := r.renderTo(ctx, input, OutputName(input, outDir, format), format)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			log.Printf("%s: %v", input, err)
			failed++
			continue
		}
		log.Printf("%s", res)
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d inputs failed", failed, len(b.Inputs))
	}
	return results, nil
}

func (r *Renderer) renderTo(ctx context.Context, input, output, format string) (*Result, error) {
	if format == "hdr" {
		res, err := r.Render(ctx, input)
		if err != nil {
			return nil, err
		}
		return res, WriteHDR(res.Linear, output)
	}

	img, res, err := r.PreviewImage(ctx, input)
	if err != nil {
		return nil, err
	}
	return res, WriteImage(img, output, r.Preview.Quality)
}
