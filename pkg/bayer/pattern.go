// Package bayer models the 2x2 color filter array that sits over a camera
// sensor, and the raw 16-bit mosaic read out from underneath it.
package bayer

import (
	"fmt"
	"strings"
)

// Color is the channel a single photosite records.
type Color uint8

const (
	Red Color = iota
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "R"
	case Green:
		return "G"
	case Blue:
		return "B"
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// Pattern is one of the four 2x2 arrangements. The name reads the top
// row left to right, then the bottom row.
type Pattern uint8

const (
	RGGB Pattern = iota // Canon, Nikon
	GRBG                // Sony, Pentax
	GBRG
	BGGR
)

var (
	// Indexed by [pattern][y&1][x&1]
	cfaTable = [4][2][2]Color{
		RGGB: {{Red, Green}, {Green, Blue}},
		GRBG: {{Green, Red}, {Blue, Green}},
		GBRG: {{Green, Blue}, {Red, Green}},
		BGGR: {{Blue, Green}, {Green, Red}},
	}

	Patterns = []Pattern{RGGB, GRBG, GBRG, BGGR}
)

func (p Pattern) String() string {
	switch p {
	case RGGB:
		return "RGGB"
	case GRBG:
		return "GRBG"
	case GBRG:
		return "GBRG"
	case BGGR:
		return "BGGR"
	}
	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

// ColorAt says which color the photosite at (x,y) records. The
// coordinates must be in the same space the pattern was defined in (the
// whole image, never tile-local), or the colors come out wrong at tile
// edges. Negative coordinates are fine; only the parity matters.
func (p Pattern) ColorAt(x, y int) Color {
	return cfaTable[p&3][y&1][x&1]
}

// Shift returns the pattern as seen from an origin moved by (dx,dy); e.g.
// cropping an RGGB sensor one column in gives GRBG.
func (p Pattern) Shift(dx, dy int) Pattern {
	want := [2][2]Color{
		{p.ColorAt(dx, dy), p.ColorAt(dx+1, dy)},
		{p.ColorAt(dx, dy+1), p.ColorAt(dx+1, dy+1)},
	}
	for _, q := range Patterns {
		if cfaTable[q] == want {
			return q
		}
	}
	return p // can't happen, the four patterns are closed under shifts
}

// A MalformedPatternError means the sensor metadata named a CFA layout we
// don't know. It is recoverable: ParsePattern still hands back RGGB.
type MalformedPatternError struct {
	Input string
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("unrecognized bayer pattern %q, assuming RGGB", e.Input)
}

// ParsePattern accepts "RGGB" style names (any case), dcraw's "RG/GB"
// form, and the repeated 8 or 16 char filter strings some tools print.
// Anything else returns RGGB along with a *MalformedPatternError, which
// the caller should log as a warning.
func ParsePattern(s string) (Pattern, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("/", "", " ", "", "-", "").Replace(norm)

	// "RGGBRGGB" is just the 2x2 cell repeated
	if len(norm) > 4 && len(norm)%4 == 0 {
		cell := norm[:4]
		if strings.Repeat(cell, len(norm)/4) == norm {
			norm = cell
		}
	}

	for _, p := range Patterns {
		if norm == p.String() {
			return p, nil
		}
	}

	return RGGB, &MalformedPatternError{Input: s}
}

// PatternFromCFA maps the EXIF/DNG CFAPattern values (0=R, 1=G, 2=B) for a
// 2x2 repeat, in row-major order.
func PatternFromCFA(cfa [4]byte) (Pattern, error) {
	want := [2][2]Color{}
	for i, v := range cfa {
		if v > 2 {
			return RGGB, &MalformedPatternError{Input: fmt.Sprintf("CFA%v", cfa)}
		}
		want[i/2][i%2] = Color(v)
	}
	for _, q := range Patterns {
		if cfaTable[q] == want {
			return q, nil
		}
	}
	return RGGB, &MalformedPatternError{Input: fmt.Sprintf("CFA%v", cfa)}
}

// UnmarshalYAML lets configs say `pattern: GRBG`. Unknown names are an error
// here, since a typo in a config file should not silently become RGGB.
func (p *Pattern) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePattern(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Pattern) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
