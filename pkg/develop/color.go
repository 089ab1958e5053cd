package develop

import (
	"fmt"

	"github.com/abworrall/rawpreview/pkg/emath"
)

var (
	// Translates linear sRGB(D65) to XYZ(D65).
	//
	// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
	//
	// This is the same table dcraw uses (xyz_rgb), which matters since
	// the published per-camera matrices are computed against it.
	LinearSRGB_to_XYZD65 = emath.Mat3{
		0.412453, 0.357580, 0.180423,
		0.212671, 0.715160, 0.072169,
		0.019334, 0.119193, 0.950227,
	}

	// Translates XYZ(D50) to sRGB(D65), with the Bradford adaptation from
	// D50 to D65 bundled in (the second table on Bruce Lindbloom's site).
	// For profiles that come with a DNG style ForwardMatrix.
	XYZD50_to_linear_sRGBD65 = emath.Mat3{
		3.1338561, -1.6168667, -0.4906146,
		-0.9787684, 1.9161415, 0.0334540,
		0.0719453, -0.2289914, 1.4052427,
	}
)

// FromCamXYZ turns a camera's XYZ->camera matrix (as tabulated by dcraw
// and Adobe, with entries usually scaled by 10000) into a camera->sRGB
// matrix, plus the daylight white balance multipliers that fall out of
// it.
//
// The XYZ->camera matrix is first chained with sRGB->XYZ to give
// sRGB->camera. Each row is then scaled to sum to one, so that white in
// sRGB lands on (1,1,1) in camera space; the scale factors are the
// multipliers that white balance the camera for daylight. Inverting
// gives the camera->sRGB direction.
func FromCamXYZ(camXYZ emath.Mat3) (emath.Mat3, emath.Vec3, error) {
	if camXYZ.IsZero() {
		return emath.Mat3{}, emath.Vec3{}, fmt.Errorf("develop: empty XYZ->camera matrix")
	}

	camRGB := camXYZ.Mult(LinearSRGB_to_XYZD65)

	daylight := emath.Vec3{}
	for row := 0; row < 3; row++ {
		sum := camRGB[3*row+0] + camRGB[3*row+1] + camRGB[3*row+2]
		if sum == 0 {
			return emath.Mat3{}, emath.Vec3{}, fmt.Errorf("develop: XYZ->camera row %d sums to zero: %v", row, camXYZ)
		}
		daylight[row] = 1.0 / sum
	}
	camRGB = camRGB.NormalizeRows()

	rgbCam, err := camRGB.Inverse()
	if err != nil {
		return emath.Mat3{}, emath.Vec3{}, fmt.Errorf("develop: %w", err)
	}

	// Multipliers are relative to green
	if daylight[1] != 0 {
		g := daylight[1]
		daylight = emath.Vec3{daylight[0] / g, 1.0, daylight[2] / g}
	}

	return rgbCam, daylight, nil
}

// FromForwardMatrix is the DNG route: the ForwardMatrix maps white
// balanced camera RGB to XYZ(D50), so chaining the D50->sRGB(D65)
// transform on gives camera->sRGB directly.
func FromForwardMatrix(forward emath.Mat3) emath.Mat3 {
	return XYZD50_to_linear_sRGBD65.Mult(forward)
}

// Luma is the Rec.601 weighted sum, which is what saturation pivots
// around.
func Luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// Saturate pushes each channel away from (or towards) the luma.
func Saturate(r, g, b, factor float64) (float64, float64, float64) {
	if factor == 1.0 {
		return r, g, b
	}
	l := Luma(r, g, b)
	return l + (r-l)*factor, l + (g-l)*factor, l + (b-l)*factor
}
