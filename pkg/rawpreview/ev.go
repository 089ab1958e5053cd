package rawpreview

import (
	"fmt"
	"math"

	"github.com/abworrall/rawpreview/pkg/rawio"
)

// SceneEV works out how bright the scene was from how the camera was set:
// the exposure value at ISO 100, EV = log2(N^2/t) - log2(ISO/100). It's
// a sanity check on the auto exposure, e.g. a night shot (EV ~2) that
// the estimator wants to push by +3 is probably meant to be dark.
// See https://en.wikipedia.org/wiki/Exposure_value
func SceneEV(md rawio.Metadata) (float64, error) {
	if md.ApertureX10 <= 0 {
		return 0, fmt.Errorf("no aperture")
	} else if md.ShutterSpeed[0] <= 0 || md.ShutterSpeed[1] <= 0 {
		return 0, fmt.Errorf("no shutter speed")
	} else if md.ISO <= 0 {
		return 0, fmt.Errorf("no ISO")
	}

	n := float64(md.ApertureX10) / 10.0
	t := float64(md.ShutterSpeed[0]) / float64(md.ShutterSpeed[1])

	return math.Log2(n*n/t) - math.Log2(float64(md.ISO)/100.0), nil
}

// EVString is SceneEV for logging.
func EVString(md rawio.Metadata) string {
	ev, err := SceneEV(md)
	if err != nil {
		return "EV ?"
	}
	return fmt.Sprintf("EV %.1f", ev)
}
