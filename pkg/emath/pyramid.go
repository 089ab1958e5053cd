package emath

import (
	"math"
	"sort"
)

// Grid operations for building image pyramids, as used by the gradient
// domain tonemapper.

// Like returns an empty grid of the same size.
func (fg *FloatGrid) Like() FloatGrid { return NewFloatGrid(fg.Dx(), fg.Dy()) }

func (fg *FloatGrid) Copy() FloatGrid {
	g := fg.Like()
	copy(g.values, fg.values)
	return g
}

// Fill sets every cell to v.
func (fg *FloatGrid) Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

// Blur is a separable [1 2 1]/4 blur, with the edge cells weighted 3:1.
func (fg *FloatGrid) Blur() FloatGrid {
	w, h := fg.Dx(), fg.Dy()
	if w < 2 || h < 2 {
		return fg.Copy()
	}
	tmp := fg.Like()
	out := fg.Like()

	for y := 0; y < h; y++ {
		for x := 1; x < w-1; x++ {
			tmp.Set(x, y, (fg.Get(x-1, y)+2*fg.Get(x, y)+fg.Get(x+1, y))/4)
		}
		tmp.Set(0, y, (3*fg.Get(0, y)+fg.Get(1, y))/4)
		tmp.Set(w-1, y, (3*fg.Get(w-1, y)+fg.Get(w-2, y))/4)
	}

	for x := 0; x < w; x++ {
		for y := 1; y < h-1; y++ {
			out.Set(x, y, (tmp.Get(x, y-1)+2*tmp.Get(x, y)+tmp.Get(x, y+1))/4)
		}
		out.Set(x, 0, (3*tmp.Get(x, 0)+tmp.Get(x, 1))/4)
		out.Set(x, h-1, (3*tmp.Get(x, h-1)+tmp.Get(x, h-2))/4)
	}

	return out
}

// Gradients returns the central-difference gradient magnitude at each
// cell, scaled for pyramid level `level`, and the mean magnitude.
func (fg *FloatGrid) Gradients(level int) (FloatGrid, float64) {
	w, h := fg.Dx(), fg.Dy()
	g := fg.Like()
	div := math.Pow(2, float64(level)+1)
	sum := 0.0

	for y := 0; y < h; y++ {
		n, s := y-1, y+1
		if n < 0 {
			n = 0
		}
		if s >= h {
			s = h - 1
		}
		for x := 0; x < w; x++ {
			west, east := x-1, x+1
			if west < 0 {
				west = 0
			}
			if east >= w {
				east = w - 1
			}
			gx := (fg.Get(east, y) - fg.Get(west, y)) / div
			gy := (fg.Get(x, s) - fg.Get(x, n)) / div
			v := math.Sqrt(gx*gx + gy*gy)
			g.Set(x, y, v)
			sum += v
		}
	}

	return g, sum / float64(w*h)
}

// DownSample halves each dimension, averaging 2x2 blocks.
func (fg *FloatGrid) DownSample() FloatGrid {
	w, h := fg.Dx()/2, fg.Dy()/2
	g := NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := fg.Get(2*x, 2*y) + fg.Get(2*x+1, 2*y) + fg.Get(2*x, 2*y+1) + fg.Get(2*x+1, 2*y+1)
			g.Set(x, y, sum/4)
		}
	}
	return g
}

// UpSampleInto fills dst, roughly twice our size, by repeating each cell
// into a 2x2 block. Odd leftover rows and columns copy their neighbour.
func (fg *FloatGrid) UpSampleInto(dst *FloatGrid) {
	for y := 0; y < dst.Dy(); y++ {
		sy := y / 2
		if sy >= fg.Dy() {
			sy = fg.Dy() - 1
		}
		for x := 0; x < dst.Dx(); x++ {
			sx := x / 2
			if sx >= fg.Dx() {
				sx = fg.Dx() - 1
			}
			dst.Set(x, y, fg.Get(sx, sy))
		}
	}
}

// Percentiles returns the values at the lo and hi fractions of the
// sorted non-zero cells. A grid of zeros gives (0,0).
func (fg *FloatGrid) Percentiles(lo, hi float64) (float64, float64) {
	vals := make([]float64, 0, len(fg.values))
	for _, v := range fg.values {
		if v != 0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	sort.Float64s(vals)

	idx := func(f float64) int {
		i := int(f * float64(len(vals)))
		if i < 0 {
			return 0
		} else if i >= len(vals) {
			return len(vals) - 1
		}
		return i
	}
	return vals[idx(lo)], vals[idx(hi)]
}
