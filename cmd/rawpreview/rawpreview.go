package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	arg "github.com/alexflint/go-arg"

	"github.com/abworrall/rawpreview/pkg/rawpreview"
	"github.com/abworrall/rawpreview/pkg/tonemap"
)

var version = "<not set>"

// Optional settings are pointers, so that only flags actually given
// override whatever the YAML config says.
type Args struct {
	Verbosity  int      `arg:"-v" help:"how verbose to get"`
	Preset     string   `arg:"-p" help:"start from a preset: fastpreview, maximum, recovery"`
	OutputDir  string   `arg:"-o,--out" help:"where to write renders; next to the inputs if empty"`
	Format     string   `arg:"-f" help:"output format: jpg, png, tif, hdr"`
	TileSize   *int     `arg:"--tilesize" help:"tile size, in pixels"`
	Overlap    *int     `arg:"--overlap" help:"tile overlap, in pixels"`
	Workers    *int     `arg:"-j,--workers" help:"demosaic workers; 0 for one per CPU"`
	HalfSize   *bool    `arg:"--halfsize" help:"fast half resolution render"`
	EV         *float64 `arg:"--ev" help:"exposure compensation, in stops"`
	AutoEV     *bool    `arg:"--auto" help:"estimate the exposure from the histogram"`
	Tonemapper string   `arg:"-t" help:"tonemap with this operator instead of the tone curve"`
	Embedded   *bool    `arg:"--embedded" help:"use the camera's embedded preview when it's big enough"`
	DebugDir   string   `arg:"--debugdir" help:"write tile overlays and tonemap intermediates here"`
	Inputs     []string `arg:"positional,required" help:"raw files, unpacked mosaics, directories, and .yaml configs"`
}

func (Args) Version() string {
	return version
}

func (Args) Description() string {
	return "rawpreview renders camera raw files into previews. Tonemappers: " + tonemap.List()
}

func procArgs() Args {
	var args Args
	args.Format = "jpg"
	arg.MustParse(&args)
	return args
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	b := rawpreview.NewBatch()
	if args.Preset != "" {
		c, err := rawpreview.ConfigForPreset(args.Preset)
		if err != nil {
			return err
		}
		b.Config = c
	}
	if err := b.LoadFilesAndDirs(args.Inputs...); err != nil {
		return err
	}
	if len(b.Inputs) == 0 {
		return fmt.Errorf("nothing to render in %s", strings.Join(args.Inputs, " "))
	}

	applyArgs(&b.Config, args)

	if b.Verbosity > 0 {
		log.Printf("%s, final configuration:-\n\n%s\n", b, b.AsYaml())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := b.Run(ctx, args.OutputDir, strings.ToLower(args.Format))
	log.Printf("rendered %d of %d", len(results), len(b.Inputs))
	return err
}

func applyArgs(c *rawpreview.Config, args Args) {
	if args.Verbosity > 0 {
		c.Verbosity = args.Verbosity
	}
	if args.TileSize != nil {
		c.TileSize = *args.TileSize
	}
	if args.Overlap != nil {
		c.Overlap = *args.Overlap
	}
	if args.Workers != nil {
		c.Workers = *args.Workers
	}
	if args.HalfSize != nil {
		c.HalfSize = *args.HalfSize
	}
	if args.EV != nil {
		c.ExposureCompensation = *args.EV
	}
	if args.AutoEV != nil {
		c.AutoExposure = *args.AutoEV
	}
	if args.Tonemapper != "" {
		c.Tonemapper = args.Tonemapper
	}
	if args.Embedded != nil {
		c.Preview.PreferEmbedded = *args.Embedded
	}
	if args.DebugDir != "" {
		c.DebugTiles = args.DebugDir
	}
}
