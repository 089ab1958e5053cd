// Package develop turns demosaiced camera RGB into something that looks
// right on screen: white balance, a color matrix into sRGB, saturation,
// and a tone curve.
package develop

import (
	"fmt"
	"log"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/rawpreview/pkg/emath"
	"github.com/abworrall/rawpreview/pkg/tiles"
)

var (
	WhiteBalances = []string{"none", "camera", "auto", "custom"}
	Tones         = []string{"linear", "srgb", "gamma"}
)

// A CurvePoint maps an input level to an output level, both in [0,1].
type CurvePoint struct {
	In  float64 `yaml:"in"`
	Out float64 `yaml:"out"`
}

// A Profile describes how to develop a camera's RGB. Zero fields mean
// "leave that stage out"; a zero Saturation counts as 1.0.
type Profile struct {
	// none, camera (use the multipliers the decoder found), auto (grey
	// world), custom (use Multipliers)
	WhiteBalance string     `yaml:"white_balance"`
	Multipliers  emath.Vec3 `yaml:"multipliers,flow"`

	// Camera RGB -> linear sRGB. If not set but CamXYZ is, it's derived
	// from that.
	Matrix emath.Mat3 `yaml:"matrix,flow"`
	CamXYZ emath.Mat3 `yaml:"cam_xyz,flow"`

	Saturation float64 `yaml:"saturation"`
	Contrast   float64 `yaml:"contrast"` // -1..1, pivots around mid grey

	Tone  string     `yaml:"tone"`       // linear, srgb, gamma
	Gamma [2]float64 `yaml:"gamma,flow"` // power, slope; for tone=gamma

	// Optional camera style curve, applied after the tone curve.
	Curve []CurvePoint `yaml:"curve,omitempty"`
}

func NewProfile() Profile {
	return Profile{
		WhiteBalance: "camera",
		Saturation:   1.0,
		Tone:         "srgb",
		Gamma:        [2]float64{2.222, 4.5},
	}
}

func (p Profile) String() string {
	return fmt.Sprintf("wb=%s%v matrix=%v sat=%.2f contrast=%.2f tone=%s%v curve=%d pts",
		p.WhiteBalance, p.Multipliers, !p.Matrix.IsZero() || !p.CamXYZ.IsZero(),
		p.Saturation, p.Contrast, p.Tone, p.Gamma, len(p.Curve))
}

func (p Profile) Validate() error {
	if !contains(WhiteBalances, p.WhiteBalance) && p.WhiteBalance != "" {
		return fmt.Errorf("white balance %q not recognized, wanted %v", p.WhiteBalance, WhiteBalances)
	}
	if !contains(Tones, p.Tone) && p.Tone != "" {
		return fmt.Errorf("tone %q not recognized, wanted %v", p.Tone, Tones)
	}
	if p.Tone == "gamma" && p.Gamma[0] <= 0 {
		return fmt.Errorf("gamma tone needs a positive power, have %v", p.Gamma)
	}
	if p.WhiteBalance == "custom" && p.Multipliers == (emath.Vec3{}) {
		return fmt.Errorf("custom white balance needs multipliers")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// A Developer is a Profile resolved against one image: the multipliers
// and matrix are worked out once, then applied to every pixel.
type Developer struct {
	Profile
	Gains  emath.Vec3
	ToSRGB emath.Mat3
}

// NewDeveloper resolves p for an image. cameraWB is the as-shot
// multipliers from the decoder (zero if it doesn't know), and img is
// only consulted for auto white balance.
func (p Profile) NewDeveloper(img *tiles.RGBImage, cameraWB emath.Vec3) (*Developer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d := Developer{
		Profile: p,
		Gains:   emath.Vec3{1, 1, 1},
		ToSRGB:  p.Matrix,
	}
	if d.Saturation == 0 {
		d.Saturation = 1.0
	}

	var daylight emath.Vec3
	if d.ToSRGB.IsZero() && !p.CamXYZ.IsZero() {
		m, wb, err := FromCamXYZ(p.CamXYZ)
		if err != nil {
			return nil, err
		}
		d.ToSRGB, daylight = m, wb
	}

	switch p.WhiteBalance {
	case "camera":
		if cameraWB != (emath.Vec3{}) {
			d.Gains = cameraWB
		} else if daylight != (emath.Vec3{}) {
			d.Gains = daylight
		}
	case "auto":
		d.Gains = GreyWorld(img)
	case "custom":
		d.Gains = p.Multipliers
	}
	d.Gains = normalizeGains(d.Gains)

	return &d, nil
}

// Gains are taken relative to green, the way cameras report them.
func normalizeGains(g emath.Vec3) emath.Vec3 {
	if g[1] <= 0 {
		return emath.Vec3{1, 1, 1}
	}
	return emath.Vec3{g[0] / g[1], 1.0, g[2] / g[1]}
}

// GreyWorld assumes the scene averages out to neutral, and returns the
// multipliers that would make it so. Clipped and near-black pixels don't
// vote, as they carry no color.
func GreyWorld(img *tiles.RGBImage) emath.Vec3 {
	if img == nil {
		return emath.Vec3{1, 1, 1}
	}

	var sum [3]float64
	n := 0
	for i := 0; i+2 < len(img.Pix); i += 3 {
		r, g, b := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
		if r == 255 || g == 255 || b == 255 || (r < 4 && g < 4 && b < 4) {
			continue
		}
		sum[0] += float64(r)
		sum[1] += float64(g)
		sum[2] += float64(b)
		n++
	}
	if n == 0 || sum[0] == 0 || sum[2] == 0 {
		return emath.Vec3{1, 1, 1}
	}

	return emath.Vec3{sum[1] / sum[0], 1.0, sum[1] / sum[2]}
}

// Linear runs the color stages (gains, matrix, saturation) on a single
// pixel with channels in [0,1]. The result is linear sRGB, unclamped.
func (d *Developer) Linear(r, g, b float64) (float64, float64, float64) {
	// Clip after the gains, or highlights go pink where one channel
	// saturated before the others
	r = emath.ClampF64(r*d.Gains[0], 0, 1)
	g = emath.ClampF64(g*d.Gains[1], 0, 1)
	b = emath.ClampF64(b*d.Gains[2], 0, 1)

	if !d.ToSRGB.IsZero() {
		v := d.ToSRGB.Apply(emath.Vec3{r, g, b})
		r, g, b = v[0], v[1], v[2]
	}

	return Saturate(r, g, b, d.Saturation)
}

// Tonemap maps linear [0,1] values onto the display curve.
func (d *Developer) Tonemap(r, g, b float64) (float64, float64, float64) {
	switch d.Tone {
	case "srgb":
		c := colorful.LinearRgb(r, g, b).Clamped()
		r, g, b = c.R, c.G, c.B
	case "gamma":
		r = emath.GammaCurve(r, d.Gamma[0], d.Gamma[1])
		g = emath.GammaCurve(g, d.Gamma[0], d.Gamma[1])
		b = emath.GammaCurve(b, d.Gamma[0], d.Gamma[1])
	}

	if len(d.Curve) > 0 {
		r, g, b = d.curve(r), d.curve(g), d.curve(b)
	}

	if d.Contrast != 0 {
		f := 1.0 + d.Contrast
		r, g, b = (r-0.5)*f+0.5, (g-0.5)*f+0.5, (b-0.5)*f+0.5
	}

	return r, g, b
}

// curve interpolates linearly between the points; outside them it holds
// the end values.
func (d *Developer) curve(v float64) float64 {
	pts := d.Curve
	i := sort.Search(len(pts), func(i int) bool { return pts[i].In >= v })
	switch {
	case i == 0:
		return pts[0].Out
	case i == len(pts):
		return pts[len(pts)-1].Out
	}
	lo, hi := pts[i-1], pts[i]
	if hi.In == lo.In {
		return hi.Out
	}
	return lo.Out + (v-lo.In)*(hi.Out-lo.Out)/(hi.In-lo.In)
}

// Apply develops an image into a new one.
func (d *Developer) Apply(img *tiles.RGBImage) *tiles.RGBImage {
	out := tiles.NewRGBImage(img.Width, img.Height)
	for i := 0; i+2 < len(img.Pix); i += 3 {
		r, g, b := d.Linear(float64(img.Pix[i])/255.0, float64(img.Pix[i+1])/255.0, float64(img.Pix[i+2])/255.0)
		r, g, b = d.Tonemap(emath.ClampF64(r, 0, 1), emath.ClampF64(g, 0, 1), emath.ClampF64(b, 0, 1))
		out.Pix[i+0] = emath.ClampToByte(r * 255.0)
		out.Pix[i+1] = emath.ClampToByte(g * 255.0)
		out.Pix[i+2] = emath.ClampToByte(b * 255.0)
	}

	return out
}

// Develop is the one-shot version: resolve the profile and apply it.
func (p Profile) Develop(img *tiles.RGBImage, cameraWB emath.Vec3, verbosity int) (*tiles.RGBImage, error) {
	d, err := p.NewDeveloper(img, cameraWB)
	if err != nil {
		return nil, err
	}
	if verbosity > 0 {
		log.Printf("develop: %s, gains %v", p, d.Gains)
	}
	return d.Apply(img), nil
}
