package rawpreview

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abworrall/rawpreview/pkg/rawio"
)

// A Batch is a set of input files, and the config to render them with.
type Batch struct {
	Config
	Inputs []string
}

func NewBatch() *Batch {
	return &Batch{Config: NewConfig()}
}

func (b *Batch) String() string {
	return fmt.Sprintf("Batch[%d inputs, preset %q]", len(b.Inputs), b.Preset)
}

// LoadFilesAndDirs walks the args, recursing into directories. Raw files
// and unpacked mosaics are queued as inputs; a .yaml file replaces the
// config, so it should come first.
func (b *Batch) LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := b.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := b.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (b *Batch) loadFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {

	case ext == ".yaml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %v", filename, err)
		}
		b.Config = cfg
		log.Printf("Loaded base configuration from %s\n", filename)

	case rawio.IsRaw(filename), ext == ".tif", ext == ".tiff", ext == ".png":
		b.Inputs = append(b.Inputs, filename)

	default:
		if b.Verbosity > 1 {
			log.Printf("Skipping %s", filename)
		}
	}

	return nil
}

// loadConfig reads a YAML config. A preset named in the file is applied
// first, and the rest of the file overrides it.
func loadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	c, err := newConfigFromYaml(contents)
	if err != nil || c.Preset == "" {
		return c, err
	}

	base, err := ConfigForPreset(c.Preset)
	if err != nil {
		return c, err
	}
	return base, yamlUnmarshalInto(contents, &base)
}
