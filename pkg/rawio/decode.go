package rawio

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// ImageDecoder reads a mosaic that something else already unpacked to a
// single channel 16-bit TIFF or PNG (e.g. `dcraw -D -4 -T`).
type ImageDecoder struct {
	Sensor    Sensor
	Verbosity int
}

func (d ImageDecoder) Decode(ctx context.Context, filename string) (*Mosaic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	m, err := mosaicFromReader(reader, filename)
	if err != nil {
		return nil, err
	}

	// Files we wrote ourselves rarely carry EXIF, so this is best effort
	if md, err := ReadMetadata(filename); err != nil {
		if d.Verbosity > 1 {
			log.Printf("rawio: %s: no metadata: %v", filename, err)
		}
	} else {
		m.Meta = md
	}

	if err := d.Sensor.Resolve(m); err != nil {
		return nil, err
	}
	return m, nil
}

// mosaicFromReader decodes a greyscale image and guesses the white level
// from its contents. The format comes from the extension, or the magic
// bytes if the extension says nothing useful.
func mosaicFromReader(r io.Reader, filename string) (*Mosaic, error) {
	var img image.Image
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	default:
		img, _, err = image.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %w", filename, err)
	}

	buf, limit, err := bufferFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}

	return &Mosaic{
		Filename: filename,
		Buffer:   buf,
		Levels:   levelsFor(buf, 0, 0, limit),
	}, nil
}
