package tonemap

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/abworrall/rawpreview/pkg/emath"
)

// Solving laplace(U) = F with Neumann boundaries, by diagonalising the
// laplacian with a 2D type-I DCT (the same as FFTW's REDFT00). Grids
// must be at least 2x2.

// dct2 applies the unnormalised DCT-I along every row, then every column.
func dct2(in emath.FloatGrid) emath.FloatGrid {
	w, h := in.Dx(), in.Dy()
	out := in.Like()

	row := fourier.NewDCT(w)
	src, dst := make([]float64, w), make([]float64, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src[x] = in.Get(x, y)
		}
		row.Transform(dst, src)
		for x := 0; x < w; x++ {
			out.Set(x, y, dst[x])
		}
	}

	col := fourier.NewDCT(h)
	src, dst = make([]float64, h), make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			src[y] = out.Get(x, y)
		}
		col.Transform(dst, src)
		for y := 0; y < h; y++ {
			out.Set(x, y, dst[y])
		}
	}

	return out
}

// toEigenSpace maps F onto the laplacian's eigenvectors.
func toEigenSpace(f emath.FloatGrid) emath.FloatGrid {
	w, h := f.Dx(), f.Dy()
	t := dct2(f)

	scale := 1.0 / float64((h-1)*(w-1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := t.Get(x, y) * scale
			if y == 0 || y == h-1 {
				v *= 0.5
			}
			if x == 0 || x == w-1 {
				v *= 0.5
			}
			t.Set(x, y, v)
		}
	}
	return t
}

// fromEigenSpace is the inverse of toEigenSpace. It scales a copy, so
// the input is left alone.
func fromEigenSpace(a emath.FloatGrid) emath.FloatGrid {
	w, h := a.Dx(), a.Dy()
	in := a.Copy()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := in.Get(x, y)
			if y > 0 && y < h-1 {
				v *= 0.5
			}
			if x > 0 && x < w-1 {
				v *= 0.5
			}
			in.Set(x, y, v)
		}
	}
	return dct2(in)
}

// laplaceEigenvalues are the eigenvalues of the 1D discrete laplacian
// with Neumann boundaries.
func laplaceEigenvalues(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		u := math.Sin(float64(i) / float64(2*(n-1)) * math.Pi)
		v[i] = -4 * u * u
	}
	return v
}

// SolvePoisson returns U with laplace(U) = F, shifted so that its largest
// value is zero. The solution is only defined up to a constant anyway, and
// callers exponentiate it.
func SolvePoisson(f emath.FloatGrid) emath.FloatGrid {
	w, h := f.Dx(), f.Dy()

	ft := toEigenSpace(f)
	ut := ft.Like()
	ly := laplaceEigenvalues(h)
	lx := laplaceEigenvalues(w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 && y == 0 {
				continue // the constant term; any value will do
			}
			ut.Set(x, y, ft.Get(x, y)/(ly[y]+lx[x]))
		}
	}

	u := fromEigenSpace(ut)

	max := math.Inf(-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			max = math.Max(max, u.Get(x, y))
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u.Set(x, y, u.Get(x, y)-max)
		}
	}
	return u
}
