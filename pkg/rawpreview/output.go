package rawpreview

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawpreview/pkg/tiles"
)

var (
	OutputFormats = []string{"jpg", "png", "tif", "hdr"}
)

// OutputFormat maps a filename to one of OutputFormats.
func OutputFormat(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "jpg", nil
	case ".png":
		return "png", nil
	case ".tif", ".tiff":
		return "tif", nil
	case ".hdr":
		return "hdr", nil
	}
	return "", fmt.Errorf("can't write '%s', want one of %v", filename, OutputFormats)
}

// WriteImage encodes img according to the filename's extension. quality
// is for JPEGs only.
func WriteImage(img image.Image, filename string, quality int) error {
	format, err := OutputFormat(filename)
	if err != nil {
		return err
	}
	if format == "hdr" {
		return fmt.Errorf("'%s': .hdr output needs the linear image, use WriteHDR", filename)
	}

	// The encoders all have fast paths for *image.RGBA
	if rgb, ok := img.(*tiles.RGBImage); ok {
		img = rgb.ToRGBA()
	}

	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	switch format {
	case "jpg":
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(writer, img)
	case "tif":
		err = tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("encode '%s': %w", filename, err)
	}
	return writer.Close()
}

// WriteHDR outputs a Radiance RGBE image. You can load this into
// photoshop or other HDR tools.
func WriteHDR(img hdr.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("WriteHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		err := rgbe.Encode(writer, img)
		if err != nil {
			log.Printf("WriteHDR, encoding RGBE file: %v\n", err)
		}
		return err
	}
}
