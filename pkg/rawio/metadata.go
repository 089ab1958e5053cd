package rawio

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata is the subset of EXIF that matters for rendering a preview,
// plus a few fields worth showing the user.
type Metadata struct {
	Make         string
	Model        string
	Lens         string
	ISO          int64
	ApertureX10  int64  // f/5.6 is 56
	ShutterSpeed [2]int64 // num/denom seconds
	FocalLength  float64
	ExposureBias float64 // in-camera exposure compensation, EV
	Orientation  int     // 1-8, 0 if unknown
	Taken        time.Time
	CFAPattern   *[4]byte // 2x2 repeat, row-major, 0=R 1=G 2=B; nil if absent
}

func (md Metadata) String() string {
	s := strings.TrimSpace(md.Make + " " + md.Model)
	if md.ISO > 0 {
		s += fmt.Sprintf(" ISO%d", md.ISO)
	}
	if md.ApertureX10 > 0 {
		s += fmt.Sprintf(" f/%.1f", float64(md.ApertureX10)/10.0)
	}
	if md.ShutterSpeed[1] > 0 {
		s += fmt.Sprintf(" %d/%ds", md.ShutterSpeed[0], md.ShutterSpeed[1])
	}
	if md.ExposureBias != 0 {
		s += fmt.Sprintf(" %+.1fEV", md.ExposureBias)
	}
	return s
}

// ReadMetadata pulls what it can out of the file's EXIF. Missing tags
// are left at zero; only a file with no EXIF at all is an error.
func ReadMetadata(filename string) (Metadata, error) {
	md := Metadata{}

	reader, err := os.Open(filename)
	if err != nil {
		return md, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return md, fmt.Errorf("exif parsing '%s': %w", filename, err)
	}

	return metadataFromExif(ex), nil
}

func metadataFromExif(ex *exif.Exif) Metadata {
	md := Metadata{}

	str := func(name exif.FieldName) string {
		if tag, err := ex.Get(name); err == nil {
			if s, err := tag.StringVal(); err == nil {
				return strings.TrimSpace(strings.TrimRight(s, "\x00"))
			}
		}
		return ""
	}
	rat := func(name exif.FieldName) (int64, int64, bool) {
		if tag, err := ex.Get(name); err != nil {
			return 0, 0, false
		} else if num, denom, err := tag.Rat2(0); err != nil || denom == 0 {
			return 0, 0, false
		} else {
			return num, denom, true
		}
	}

	md.Make = str(exif.Make)
	md.Model = str(exif.Model)
	md.Lens = str(exif.LensModel)

	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		if val, err := tag.Int64(0); err == nil {
			md.ISO = val
		}
	}

	if num, denom, ok := rat(exif.FNumber); ok {
		md.ApertureX10 = (num*10 + denom/2) / denom
	}
	if num, denom, ok := rat(exif.ExposureTime); ok {
		md.ShutterSpeed = [2]int64{num, denom}
	}
	if num, denom, ok := rat(exif.FocalLength); ok {
		md.FocalLength = float64(num) / float64(denom)
	}
	if num, denom, ok := rat(exif.ExposureBiasValue); ok {
		md.ExposureBias = float64(num) / float64(denom)
	}

	if tag, err := ex.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			md.Orientation = val
		}
	}

	if t, err := ex.DateTime(); err == nil {
		md.Taken = t
	}

	if tag, err := ex.Get(exif.CFAPattern); err == nil {
		if cfa, ok := parseCFAPattern(tag.Val); ok {
			md.CFAPattern = &cfa
		}
	}

	return md
}

// parseCFAPattern reads the EXIF CFAPattern blob: two 16-bit repeat
// counts (in either byte order; the tag is UNDEFINED, so writers
// disagree) then one byte per cell. Only 2x2 repeats are any use to us.
func parseCFAPattern(val []byte) ([4]byte, bool) {
	cfa := [4]byte{}
	if len(val) < 8 {
		return cfa, false
	}

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		if order.Uint16(val[0:2]) == 2 && order.Uint16(val[2:4]) == 2 {
			copy(cfa[:], val[4:8])
			return cfa, true
		}
	}
	return cfa, false
}

// Thumbnail returns the JPEG preview the camera embedded in the file.
func Thumbnail(filename string) ([]byte, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r thumbnail '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("exif parsing '%s': %w", filename, err)
	}

	thumb, err := ex.JpegThumbnail()
	if err != nil {
		return nil, fmt.Errorf("thumbnail '%s': %w", filename, err)
	}
	return thumb, nil
}
