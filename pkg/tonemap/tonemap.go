// Package tonemap squeezes a linear, unbounded developed image into 8-bit
// output with one of several global or local operators. It is an
// alternative to the simple tone curves in develop, for raws with more
// range than a curve can hold.
package tonemap

import (
	"fmt"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/tmo"
)

var (
	Operators = []string{"drago03", "durand", "fattal02", "icam06", "linear", "reinhard05"}
)

func List() string {
	return fmt.Sprintf("%v", Operators)
}

func Valid(name string) bool {
	for _, op := range Operators {
		if op == name {
			return true
		}
	}
	return false
}

// New sets up the named operator over img. The parameters are tuned to
// keep small bright areas (specular highlights, the sun) from blowing
// out, which the stock defaults tend to do. debugDir, if set, is where
// operators that can dump their internals will do so.
func New(name string, img hdr.Image, debugDir string) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0
		return op, nil

	case "durand":
		return tmo.NewDefaultDurand(img), nil

	case "fattal02":
		op := NewFattal(img)
		op.WhitePoint = 0.00001
		op.DumpDir = debugDir
		return op, nil

	case "icam06":
		op := tmo.NewDefaultICam06(img)
		op.Contrast = 0.65
		op.MaxClipping = 0.99999
		return op, nil

	case "linear":
		return tmo.NewLinear(img), nil

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(img)
		op.Chromatic = 0.005
		op.Light = 0.005
		return op, nil
	}

	return nil, fmt.Errorf("tonemapper %q not recognized, want one of %s", name, List())
}
