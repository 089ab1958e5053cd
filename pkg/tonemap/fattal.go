package tonemap

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/rawpreview/pkg/emath"
)

// Fattal is Fattal et al. '02, "Gradient Domain High Dynamic Range
// Compression", following the PFSTMO implementation: large luminance
// gradients are attenuated, and the image is rebuilt from the result by
// solving a Poisson equation. It compresses highlights and shadows hard
// while keeping local contrast, which suits badly exposed raws.
type Fattal struct {
	// See pfstmo_fattal02(1)
	DetailLevel int
	Noise       float64
	Alpha       float64
	Beta        float64
	Gamma       float64
	BlackPoint  float64 // percent of pixels clipped to black
	WhitePoint  float64 // percent of pixels clipped to white
	Saturation  float64

	GammaExpand bool   // apply the sRGB curve to the output
	DumpDir     string // if set, intermediate grids are written here as PNGs

	Input hdr.Image

	logLum      emath.FloatGrid
	pyramid     []emath.FloatGrid
	gradients   []emath.FloatGrid
	avgGrad     []float64
	attenuation emath.FloatGrid
	divG        emath.FloatGrid
	outLum      emath.FloatGrid
}

func NewFattal(img hdr.Image) *Fattal {
	return &Fattal{
		DetailLevel: 3,
		Noise:       0.002,
		Alpha:       1.0,
		Beta:        0.9,
		Gamma:       0.8,
		BlackPoint:  0.1,
		WhitePoint:  0.5,
		Saturation:  0.8,
		GammaExpand: true,
		Input:       img,
	}
}

func (f *Fattal) width() int  { return f.Input.Bounds().Dx() }
func (f *Fattal) height() int { return f.Input.Bounds().Dy() }

// Perform implements tmo.ToneMappingOperator.
func (f *Fattal) Perform() image.Image {
	f.logLuminance()

	if f.width() < 2 || f.height() < 2 {
		f.exponentiate(f.logLum)
	} else {
		f.buildPyramid()
		f.attenuate()
		f.divergence()
		u := SolvePoisson(f.divG)
		f.dump(u, "solved")
		f.exponentiate(u)
	}

	return f.render()
}

func (f *Fattal) dump(g emath.FloatGrid, name string) {
	if f.DumpDir == "" {
		return
	}
	g.ToImg(name, filepath.Join(f.DumpDir, fmt.Sprintf("fattal-%s.png", name)))
}

func luminance(c hdrcolor.Color) float64 {
	_, y, _, _ := hdrcolor.XYZModel.Convert(c).(hdrcolor.Color).HDRXYZA()
	return y
}

// logLuminance fills H, log luminance rescaled so that black is about -9.2
// and white about 4.6.
func (f *Fattal) logLuminance() {
	b := f.Input.Bounds()
	lum := emath.NewFloatGrid(b.Dx(), b.Dy())
	lo, hi := math.Inf(1), math.Inf(-1)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := luminance(f.Input.HDRAt(b.Min.X+x, b.Min.Y+y))
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			lum.Set(x, y, v)
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	h := lum.Like()
	for y := 0; y < h.Dy(); y++ {
		for x := 0; x < h.Dx(); x++ {
			h.Set(x, y, math.Log(100*(lum.Get(x, y)-lo)/span+1e-4))
		}
	}

	f.dump(h, "logluminance")
	f.logLum = h
}

func (f *Fattal) buildPyramid() {
	levels := 1
	for dim := min(f.width(), f.height()); dim >= 16; dim /= 2 {
		levels++
	}

	f.pyramid = make([]emath.FloatGrid, levels)
	f.pyramid[0] = f.logLum.Copy()
	for k := 1; k < levels; k++ {
		f.pyramid[k] = f.pyramid[k-1].Blur()
		f.pyramid[k] = f.pyramid[k].DownSample()
	}

	f.gradients = make([]emath.FloatGrid, levels)
	f.avgGrad = make([]float64, levels)
	for k := range f.pyramid {
		f.gradients[k], f.avgGrad[k] = f.pyramid[k].Gradients(k)
	}
}

// attenuate builds PHI top down: each level scales gradients above the
// level's average down, and below it up, then is upsampled into the next.
func (f *Fattal) attenuate() {
	top := len(f.gradients) - 1
	phi := f.gradients[top].Like()
	phi.Fill(1)

	for k := top; k >= 0; k-- {
		if k >= f.DetailLevel || k == top {
			a := f.Alpha * f.avgGrad[k]
			for y := 0; y < phi.Dy(); y++ {
				for x := 0; x < phi.Dx(); x++ {
					grad := f.gradients[k].Get(x, y)
					if grad > 1e-4 && a > 0 {
						scale := a / (grad + f.Noise) * math.Pow((grad+f.Noise)/a, f.Beta)
						phi.Set(x, y, phi.Get(x, y)*scale)
					}
				}
			}
		}

		if k > 0 {
			next := f.gradients[k-1].Like()
			phi.UpSampleInto(&next)
			phi = next.Blur()
		}
	}

	f.dump(phi, "attenuation")
	f.attenuation = phi
}

// divergence of the attenuated gradient field. The solver assumes
// H(-1) = H(1) at the borders, so the differences are assembled to match.
func (f *Fattal) divergence() {
	w, h := f.width(), f.height()
	H, PHI := f.logLum, f.attenuation
	gx, gy := H.Like(), H.Like()

	for y := 0; y < h; y++ {
		yp1 := y + 1
		if yp1 >= h {
			yp1 = h - 2
		}
		for x := 0; x < w; x++ {
			xp1 := x + 1
			if xp1 >= w {
				xp1 = w - 2
			}
			gx.Set(x, y, (H.Get(xp1, y)-H.Get(x, y))*0.5*(PHI.Get(xp1, y)+PHI.Get(x, y)))
			gy.Set(x, y, (H.Get(x, yp1)-H.Get(x, y))*0.5*(PHI.Get(x, yp1)+PHI.Get(x, y)))
		}
	}

	div := H.Like()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gx.Get(x, y) + gy.Get(x, y)
			if x > 0 {
				v -= gx.Get(x-1, y)
			} else {
				v += gx.Get(x, y)
			}
			if y > 0 {
				v -= gy.Get(x, y-1)
			} else {
				v += gy.Get(x, y)
			}
			div.Set(x, y, v)
		}
	}

	f.dump(div, "divergence")
	f.divG = div
}

// exponentiate turns the solution back into luminance, clips the
// configured percentiles, and normalises to [0,1].
func (f *Fattal) exponentiate(u emath.FloatGrid) {
	l := u.Like()
	for y := 0; y < u.Dy(); y++ {
		for x := 0; x < u.Dx(); x++ {
			l.Set(x, y, math.Exp(f.Gamma*u.Get(x, y))-1e-4)
		}
	}

	lo, hi := l.Percentiles(0.01*f.BlackPoint, 1-0.01*f.WhitePoint)
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	for y := 0; y < l.Dy(); y++ {
		for x := 0; x < l.Dx(); x++ {
			v := (l.Get(x, y) - lo) / span
			if v <= 0 {
				v = 1e-4
			}
			l.Set(x, y, v)
		}
	}

	f.dump(l, "output")
	f.outLum = l
}

// render rebuilds color: C_out = (C_in / L_in)^s * L_out
func (f *Fattal) render() image.Image {
	const eps = 1e-4
	b := f.Input.Bounds()
	out := image.NewRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := f.Input.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			lIn := math.Max(luminance(hdrcolor.RGB{R: r, G: g, B: bl}), eps)
			lOut := math.Max(f.outLum.Get(x, y), eps)

			c := emath.Vec3{}
			for i, v := range [3]float64{r, g, bl} {
				c[i] = math.Pow(math.Max(v/lIn, 0), f.Saturation) * lOut
				if f.GammaExpand {
					c[i] = emath.GammaExpand_F64(c[i])
				}
				c[i] = emath.ClampF64(c[i], 0, 1)
			}

			out.SetRGBA64(x, y, color.RGBA64{
				R: uint16(c[0] * 0xFFFF),
				G: uint16(c[1] * 0xFFFF),
				B: uint16(c[2] * 0xFFFF),
				A: 0xFFFF,
			})
		}
	}

	return out
}
