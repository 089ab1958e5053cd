package rawio

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/abworrall/rawpreview/pkg/bayer"
)

// Sensor holds overrides for what the decoder reports, for files with
// missing or wrong metadata. Zero values leave the decoded values alone.
type Sensor struct {
	Pattern    string `yaml:"pattern"`     // e.g. RGGB, GR/BG
	BlackLevel uint16 `yaml:"black_level"` // 0 means use the decoder's
	WhiteLevel uint16 `yaml:"white_level"`
	Crop       [4]int `yaml:"crop,flow"` // x0,y0,x1,y1 in sensor coords; all zero for none
}

func (s Sensor) CropRect() image.Rectangle {
	return image.Rect(s.Crop[0], s.Crop[1], s.Crop[2], s.Crop[3])
}

// Resolve settles the mosaic's pattern, levels and visible area. The
// pattern comes from, in order: the Sensor override, the EXIF
// CFAPattern, whatever the decoder found, and finally RGGB. A malformed
// pattern anywhere along the way is logged and skipped over rather than
// failing the decode.
func (s Sensor) Resolve(m *Mosaic) error {
	resolved := false

	if s.Pattern != "" {
		if p, err := bayer.ParsePattern(s.Pattern); err != nil {
			log.Printf("rawio: %s: sensor override: %v", m.Filename, err)
		} else {
			m.Pattern, m.PatternSource, resolved = p, "sensor", true
		}
	}

	if !resolved && m.Meta.CFAPattern != nil {
		if p, err := bayer.PatternFromCFA(*m.Meta.CFAPattern); err != nil {
			log.Printf("rawio: %s: exif: %v", m.Filename, err)
		} else {
			m.Pattern, m.PatternSource, resolved = p, "exif", true
		}
	}

	if !resolved && m.PatternSource != "decoder" {
		m.Pattern, m.PatternSource = bayer.RGGB, "default"
	}

	if s.BlackLevel != 0 {
		m.Levels.Black = s.BlackLevel
	}
	if s.WhiteLevel != 0 {
		m.Levels.White = s.WhiteLevel
	}
	if err := m.Levels.Validate(); err != nil {
		return fmt.Errorf("%s: %w", m.Filename, err)
	}

	if crop := s.CropRect(); !crop.Empty() {
		if !crop.In(m.Buffer.Rect) {
			return fmt.Errorf("%s: crop %v is outside the sensor %v", m.Filename, crop, m.Buffer.Rect)
		}
		// The buffer keeps sensor coordinates, so the demosaicer re-phases
		// the pattern itself
		m.Buffer = m.Buffer.SubImage(crop)
	}

	return nil
}

// IsMalformedPattern is true if err came from an unparseable CFA layout.
func IsMalformedPattern(err error) bool {
	var mpe *bayer.MalformedPatternError
	return errors.As(err, &mpe)
}
