package bayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorAtRGGB(t *testing.T) {
	assert.Equal(t, Red, RGGB.ColorAt(0, 0))
	assert.Equal(t, Green, RGGB.ColorAt(1, 0))
	assert.Equal(t, Green, RGGB.ColorAt(0, 1))
	assert.Equal(t, Blue, RGGB.ColorAt(1, 1))
}

func TestColorAtAllPatterns(t *testing.T) {
	tests := []struct {
		pattern Pattern
		want    [2][2]Color // [y][x]
	}{
		{RGGB, [2][2]Color{{Red, Green}, {Green, Blue}}},
		{GRBG, [2][2]Color{{Green, Red}, {Blue, Green}}},
		{GBRG, [2][2]Color{{Green, Blue}, {Red, Green}}},
		{BGGR, [2][2]Color{{Blue, Green}, {Green, Red}}},
	}

	for _, tt := range tests {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.Equal(t, tt.want[y][x], tt.pattern.ColorAt(x, y), "%s at (%d,%d)", tt.pattern, x, y)
			}
		}
	}
}

// Every pattern is total over a grid of coordinates, repeats with period 2,
// and has exactly two greens per 2x2 cell.
func TestColorAtTotal(t *testing.T) {
	for _, p := range Patterns {
		for y := 0; y <= 8; y++ {
			for x := 0; x <= 8; x++ {
				c := p.ColorAt(x, y)
				assert.Contains(t, []Color{Red, Green, Blue}, c)
				assert.Equal(t, c, p.ColorAt(x+2, y))
				assert.Equal(t, c, p.ColorAt(x, y+2))
			}
		}

		counts := map[Color]int{}
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				counts[p.ColorAt(x, y)]++
			}
		}
		assert.Equal(t, map[Color]int{Red: 1, Green: 2, Blue: 1}, counts, "%s", p)
	}
}

func TestShift(t *testing.T) {
	assert.Equal(t, RGGB, RGGB.Shift(0, 0))
	assert.Equal(t, GRBG, RGGB.Shift(1, 0))
	assert.Equal(t, GBRG, RGGB.Shift(0, 1))
	assert.Equal(t, BGGR, RGGB.Shift(1, 1))
	assert.Equal(t, RGGB, RGGB.Shift(2, 4))

	for _, p := range Patterns {
		for dy := 0; dy < 3; dy++ {
			for dx := 0; dx < 3; dx++ {
				s := p.Shift(dx, dy)
				for y := 0; y < 4; y++ {
					for x := 0; x < 4; x++ {
						assert.Equal(t, p.ColorAt(x+dx, y+dy), s.ColorAt(x, y))
					}
				}
			}
		}
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want Pattern
	}{
		{"RGGB", RGGB},
		{"grbg", GRBG},
		{" GBRG ", GBRG},
		{"BG/GR", BGGR},
		{"RGGBRGGB", RGGB},
		{"GRBGGRBGGRBGGRBG", GRBG},
	}

	for _, tt := range tests {
		got, err := ParsePattern(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParsePatternMalformed(t *testing.T) {
	for _, in := range []string{"", "RGBG", "CYGM", "RGGBX"} {
		got, err := ParsePattern(in)
		assert.Equal(t, RGGB, got, in)

		var mpe *MalformedPatternError
		require.ErrorAs(t, err, &mpe, in)
		assert.Equal(t, in, mpe.Input)
	}
}

func TestPatternFromCFA(t *testing.T) {
	p, err := PatternFromCFA([4]byte{1, 0, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, GRBG, p)

	p, err = PatternFromCFA([4]byte{0, 0, 1, 2})
	assert.Error(t, err)
	assert.Equal(t, RGGB, p)

	_, err = PatternFromCFA([4]byte{3, 1, 1, 2}) // 3 is cyan in the EXIF table
	assert.Error(t, err)
}
