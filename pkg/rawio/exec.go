package rawio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/abworrall/rawpreview/pkg/bayer"
	"github.com/abworrall/rawpreview/pkg/emath"
)

var (
	// DefaultCommand unpacks the raw samples, undemosaiced and unscaled,
	// as a 16-bit TIFF on stdout.
	DefaultCommand = []string{"dcraw", "-D", "-4", "-T", "-c", "{input}"}

	// DefaultInfoCommand prints the sensor parameters dcraw found.
	DefaultInfoCommand = []string{"dcraw", "-i", "-v", "{input}"}
)

// ExecDecoder runs an external unpacker over the raw file. Any "{input}"
// in an argument is replaced by the filename.
type ExecDecoder struct {
	Command     []string
	InfoCommand []string // may be empty, in which case only EXIF is used
	Sensor      Sensor
	Verbosity   int
}

func NewExecDecoder(command []string, s Sensor) ExecDecoder {
	d := ExecDecoder{
		Command:     DefaultCommand,
		InfoCommand: DefaultInfoCommand,
		Sensor:      s,
	}
	if len(command) > 0 {
		d.Command = command
		d.InfoCommand = nil
	}
	return d
}

func expandArgs(tmpl []string, filename string) []string {
	args := make([]string, len(tmpl))
	for i, a := range tmpl {
		args[i] = strings.ReplaceAll(a, "{input}", filename)
	}
	return args
}

func run(ctx context.Context, tmpl []string, filename string) ([]byte, error) {
	if len(tmpl) == 0 {
		return nil, fmt.Errorf("no command configured")
	}
	args := expandArgs(tmpl, filename)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	} else if err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (d ExecDecoder) Decode(ctx context.Context, filename string) (*Mosaic, error) {
	info := DcrawInfo{}
	if len(d.InfoCommand) > 0 {
		if out, err := run(ctx, d.InfoCommand, filename); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Printf("rawio: %s: sensor info: %v", filename, err)
		} else {
			info = ParseDcrawInfo(bytes.NewReader(out))
		}
	}

	out, err := run(ctx, d.Command, filename)
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %w", filename, err)
	}

	m, err := mosaicFromReader(bytes.NewReader(out), filename)
	if err != nil {
		return nil, err
	}

	if info.Pattern != "" {
		if p, err := bayer.ParsePattern(info.Pattern); IsMalformedPattern(err) {
			log.Printf("rawio: %s: decoder: %v", filename, err)
		} else {
			m.Pattern, m.PatternSource = p, "decoder"
		}
	}
	m.CameraWB = info.Multipliers
	if info.White != 0 {
		m.Levels.White = info.White
	}
	m.Levels.Black = info.Black

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

// DcrawInfo is what we can use from `dcraw -i -v`. Zero values mean the
// field wasn't printed.
type DcrawInfo struct {
	Camera      string
	Pattern     string
	Multipliers emath.Vec3
	Black       uint16
	White       uint16
}

// ParseDcrawInfo reads the "Key: value" lines dcraw prints. Unknown keys
// and unparseable values are skipped.
func ParseDcrawInfo(r io.Reader) DcrawInfo {
	info := DcrawInfo{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "Camera":
			info.Camera = val
		case "Filter pattern":
			info.Pattern = val
		case "Camera multipliers":
			fields := strings.Fields(val)
			if len(fields) < 3 {
				continue
			}
			v := emath.Vec3{}
			good := true
			for i := 0; i < 3; i++ {
				if f, err := strconv.ParseFloat(fields[i], 64); err != nil || f < 0 {
					good = false
				} else {
					v[i] = f
				}
			}
			if good {
				info.Multipliers = v
			}
		case "Darkness", "Black level":
			if n, err := strconv.ParseUint(strings.Fields(val + " x")[0], 10, 16); err == nil {
				info.Black = uint16(n)
			}
		case "Saturation", "White level":
			if n, err := strconv.ParseUint(strings.Fields(val + " x")[0], 10, 16); err == nil {
				info.White = uint16(n)
			}
		}
	}

	return info
}
