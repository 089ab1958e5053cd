package rawpreview

import (
	"fmt"
	"log"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/rawpreview/pkg/develop"
	"github.com/abworrall/rawpreview/pkg/exposure"
	"github.com/abworrall/rawpreview/pkg/rawio"
	"github.com/abworrall/rawpreview/pkg/tiles"
	"github.com/abworrall/rawpreview/pkg/tonemap"
)

type PreviewConfig struct {
	PreferEmbedded bool `yaml:"prefer_embedded"` // use the camera's JPEG if there is one
	MaxDimension   int  `yaml:"max_dimension"`   // 0 for no downscale
	Quality        int  `yaml:"quality"`         // JPEG quality, 1-100
}

type DecoderConfig struct {
	// argv for the external raw unpacker; "{input}" is the filename.
	// Empty means dcraw.
	Command []string `yaml:"command,flow,omitempty"`
}

type Config struct {
	Verbosity int    `yaml:"verbosity"`
	Preset    string `yaml:"preset,omitempty"`

	// Tile engine
	TileSize int  `yaml:"tile_size"`
	Overlap  int  `yaml:"overlap"`
	Workers  int  `yaml:"workers"` // 0 means one per CPU
	HalfSize bool `yaml:"half_size"`

	// Exposure, in EV stops. The estimate (if AutoExposure), the manual
	// compensation and the in-camera compensation (if
	// UseCameraCompensation) are summed.
	AutoExposure          bool    `yaml:"auto_exposure"`
	ExposureCompensation  float64 `yaml:"exposure_compensation"`
	UseCameraCompensation bool    `yaml:"use_camera_compensation"`
	PreserveHighlights    bool    `yaml:"preserve_highlights"`
	SampleStride          int     `yaml:"sample_stride"`

	Sensor  rawio.Sensor    `yaml:"sensor"`
	Develop develop.Profile `yaml:"develop"`

	// If set, replaces the develop profile's tone curve with this
	// operator; see tonemap.Operators.
	Tonemapper string `yaml:"tonemapper,omitempty"`

	Preview PreviewConfig `yaml:"preview"`
	Decoder DecoderConfig `yaml:"decoder"`

	// Directory for tile overlays and weight maps; empty for none.
	DebugTiles string `yaml:"debug_tiles,omitempty"`
}

func NewConfig() Config {
	return Config{
		TileSize:              tiles.DefaultTileSize,
		Overlap:               tiles.DefaultOverlap,
		AutoExposure:          true,
		UseCameraCompensation: true,
		SampleStride:          exposure.DefaultStride,
		Develop:               develop.NewProfile(),
		Preview: PreviewConfig{
			PreferEmbedded: true,
			MaxDimension:   2048,
			Quality:        92,
		},
	}
}

var presets = map[string]func(c *Config){
	// As-shot look, as fast as possible: for culling and thumbnails
	"fastpreview": func(c *Config) {
		c.HalfSize = true
		c.AutoExposure = false
		c.UseCameraCompensation = false
		c.Develop.WhiteBalance = "camera"
	},

	// Keep everything the sensor recorded, for later processing
	"maximum": func(c *Config) {
		c.AutoExposure = false
		c.UseCameraCompensation = true
		c.PreserveHighlights = true
		c.Develop.WhiteBalance = "none"
		c.Develop.Tone = "linear"
		c.Preview.PreferEmbedded = false
		c.Preview.MaxDimension = 0
	},

	// Backlit, silhouetted or badly underexposed shots
	"recovery": func(c *Config) {
		c.AutoExposure = true
		c.UseCameraCompensation = true
		c.ExposureCompensation = 1.0
		c.PreserveHighlights = true
		c.Develop.WhiteBalance = "auto"
		c.Develop.Tone = "gamma"
		c.Develop.Gamma = [2]float64{1.2, 2.0}
		c.Preview.PreferEmbedded = false
	},
}

func Presets() []string {
	names := []string{}
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigForPreset is NewConfig with the named preset applied on top.
func ConfigForPreset(name string) (Config, error) {
	c := NewConfig()
	if name == "" {
		return c, nil
	}
	f, exists := presets[name]
	if !exists {
		return c, fmt.Errorf("no preset named '%s', want one of %v", name, Presets())
	}
	f(&c)
	c.Preset = name
	return c, nil
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yamlUnmarshalInto(b, &c)
	return c, err
}

// yamlUnmarshalInto only touches the fields the YAML mentions.
func yamlUnmarshalInto(b []byte, c *Config) error {
	return yaml.Unmarshal(b, c)
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config) Validate() error {
	if c.TileSize < 0 {
		return fmt.Errorf("tile_size %d is negative", c.TileSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap %d is negative", c.Overlap)
	}
	if c.Preview.Quality < 0 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview quality %d is not in 1-100", c.Preview.Quality)
	}
	if c.Tonemapper != "" && !tonemap.Valid(c.Tonemapper) {
		return fmt.Errorf("tonemapper %q not recognized, want one of %s", c.Tonemapper, tonemap.List())
	}
	if err := c.Develop.Validate(); err != nil {
		return fmt.Errorf("develop: %w", err)
	}
	return nil
}

func (c Config) Engine() *tiles.Engine {
	return &tiles.Engine{
		TileSize:  c.TileSize,
		Overlap:   c.Overlap,
		Workers:   c.Workers,
		Verbosity: c.Verbosity,
		DebugDir:  c.DebugTiles,
	}
}

// DecoderFor picks how to unpack a file: camera raws go through the
// external command, anything else is read as an already unpacked mosaic.
func (c Config) DecoderFor(filename string) rawio.Decoder {
	if rawio.IsRaw(filename) {
		d := rawio.NewExecDecoder(c.Decoder.Command, c.Sensor)
		d.Verbosity = c.Verbosity
		return d
	}
	return rawio.ImageDecoder{Sensor: c.Sensor, Verbosity: c.Verbosity}
}
