package bayer

import "fmt"

// Levels are the sensor's calibration bounds: Black is what a photosite
// reads with no light, White is where it saturates.
type Levels struct {
	Black uint16
	White uint16
}

func (l Levels) Validate() error {
	if l.White <= l.Black {
		return fmt.Errorf("levels %s: white must be above black", l)
	}
	return nil
}

// Range is the usable span of values above black
func (l Levels) Range() int { return int(l.White) - int(l.Black) }

// Sub subtracts the black level, saturating at zero.
func (l Levels) Sub(v uint16) uint16 {
	if v <= l.Black {
		return 0
	}
	return v - l.Black
}

func (l Levels) String() string {
	return fmt.Sprintf("[black %d, white %d]", l.Black, l.White)
}
