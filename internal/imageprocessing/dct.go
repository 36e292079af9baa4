package imageprocessing

import (
	"math"
)

// flushEpsilon is the magnitude below which a DCT coefficient is treated as zero.
// Cosine sums over a constant signal leave rounding residue around 1e-13.
const flushEpsilon = 1e-9

// dctBasis holds the scaled DCT-II basis for one transform length.
// basis[f*n+i] = scale(f) * cos((2i+1) * f * pi / 2n)
type dctBasis struct {
	n     int
	basis []float64
}

func newDCTBasis(n int) *dctBasis {
	b := &dctBasis{n: n, basis: make([]float64, n*n)}
	scale0 := math.Sqrt(1.0 / float64(n))
	scaleF := math.Sqrt(2.0 / float64(n))
	for f := 0; f < n; f++ {
		scale := scaleF
		if f == 0 {
			scale = scale0
		}
		for i := 0; i < n; i++ {
			b.basis[f*n+i] = scale * math.Cos(float64(2*i+1)*float64(f)*math.Pi/(2*float64(n)))
		}
	}
	return b
}

// transform writes the orthonormal DCT-II of x into out.
// x and out must not overlap.
func (b *dctBasis) transform(x, out []float64) {
	for f := 0; f < b.n; f++ {
		coefs := b.basis[f*b.n : (f+1)*b.n]
		var sum float64
		for i, v := range x {
			sum += v * coefs[i]
		}
		if math.Abs(sum) < flushEpsilon {
			sum = 0
		}
		out[f] = sum
	}
}

// DCT1D returns the orthonormal DCT-II of x
func DCT1D(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	newDCTBasis(len(x)).transform(x, out)
	return out
}

// DCT2D returns the separable 2D DCT-II of g: every row is transformed
// first, then every column of the result. The output has g's shape and
// coefficient (0,0) is the DC term.
func DCT2D(g Grid) Grid {
	out := Grid{Width: g.Width, Height: g.Height, Pix: make([]float64, len(g.Pix))}
	if len(g.Pix) == 0 {
		return out
	}

	rows := newDCTBasis(g.Width)
	for y := 0; y < g.Height; y++ {
		rows.transform(g.Row(y), out.Row(y))
	}

	cols := rows
	if g.Height != g.Width {
		cols = newDCTBasis(g.Height)
	}
	col := make([]float64, g.Height)
	res := make([]float64, g.Height)
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			col[y] = out.Pix[y*g.Width+x]
		}
		cols.transform(col, res)
		for y := 0; y < g.Height; y++ {
			out.Pix[y*g.Width+x] = res[y]
		}
	}
	return out
}
