package imageprocessing

import (
	"fmt"

	"github.com/pkg/errors"
)

// Luminance weights for RGB to grayscale conversion
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// DecodeError reports an image that could not be decoded or rasterized
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error { return e.Err }

// Cause returns the underlying error for github.com/pkg/errors
func (e *DecodeError) Cause() error { return e.Err }

// IsDecodeError reports whether err is, or wraps, a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Grid is a row-major grayscale image with luminance values in [0, 255]
type Grid struct {
	Width  int
	Height int
	Pix    []float64
}

// At returns the luminance at column x, row y
func (g Grid) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// Row returns row y of the grid
func (g Grid) Row(y int) []float64 {
	return g.Pix[y*g.Width : (y+1)*g.Width]
}

// Luminance converts an RGB triple to grayscale
func Luminance(r, g, b uint8) float64 {
	return lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b)
}

// Sample draws the bitmap onto a width x height surface and
// converts every pixel to luminance. Alpha is discarded.
func Sample(bm Bitmap, width, height int) (Grid, error) {
	pix, err := bm.Rasterize(width, height)
	if err != nil {
		return Grid{}, &DecodeError{Op: fmt.Sprintf("rasterize %dx%d", width, height), Err: err}
	}
	if len(pix) != width*height*4 {
		return Grid{}, &DecodeError{
			Op:  fmt.Sprintf("rasterize %dx%d", width, height),
			Err: errors.Errorf("got %d bytes, want %d", len(pix), width*height*4),
		}
	}

	grid := Grid{Width: width, Height: height, Pix: make([]float64, width*height)}
	for i := range grid.Pix {
		p := pix[i*4 : i*4+4]
		grid.Pix[i] = Luminance(p[0], p[1], p[2])
	}
	return grid, nil
}
