package imageprocessing

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// ErrBitmapClosed is returned when a released bitmap is rasterized
var ErrBitmapClosed = errors.New("bitmap already closed")

// Decoder turns encoded image bytes into a drawable bitmap
type Decoder interface {
	Decode(r io.Reader) (Bitmap, error)
}

// Bitmap is a decoded image that can be drawn onto a fixed-size surface.
// Rasterize returns non-premultiplied RGBA bytes, 4 per pixel, row-major.
// Close releases the decoded image and must be called exactly once.
type Bitmap interface {
	Rasterize(width, height int) ([]uint8, error)
	Close() error
}

// ImagingDecoder decodes with imaging and rasterizes with imaging.Resize
type ImagingDecoder struct {
	Filter imaging.ResampleFilter
}

// NewImagingDecoder creates a decoder using bilinear resampling
func NewImagingDecoder() *ImagingDecoder {
	return &ImagingDecoder{Filter: imaging.Linear}
}

// Decode implements Decoder
func (d *ImagingDecoder) Decode(r io.Reader) (Bitmap, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return newImageBitmap(img, func(src image.Image, w, h int) image.Image {
		return imaging.Resize(src, w, h, d.Filter)
	}), nil
}

// ResizeDecoder decodes with the standard image registry and rasterizes with nfnt/resize
type ResizeDecoder struct {
	Interpolation resize.InterpolationFunction
}

// NewResizeDecoder creates a decoder using bilinear interpolation
func NewResizeDecoder() *ResizeDecoder {
	return &ResizeDecoder{Interpolation: resize.Bilinear}
}

// Decode implements Decoder
func (d *ResizeDecoder) Decode(r io.Reader) (Bitmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return newImageBitmap(img, func(src image.Image, w, h int) image.Image {
		return resize.Resize(uint(w), uint(h), src, d.Interpolation)
	}), nil
}

// NewDecoder picks a decoder by resampler and filter name.
// Unknown names fall back to imaging with a bilinear filter.
func NewDecoder(resampler, filter string) Decoder {
	switch strings.ToLower(resampler) {
	case "nfnt", "resize":
		d := NewResizeDecoder()
		if f, ok := resizeFilters[strings.ToLower(filter)]; ok {
			d.Interpolation = f
		}
		return d
	default:
		d := NewImagingDecoder()
		if f, ok := imagingFilters[strings.ToLower(filter)]; ok {
			d.Filter = f
		}
		return d
	}
}

var imagingFilters = map[string]imaging.ResampleFilter{
	"nearest":  imaging.NearestNeighbor,
	"box":      imaging.Box,
	"linear":   imaging.Linear,
	"bilinear": imaging.Linear,
	"catmull":  imaging.CatmullRom,
	"lanczos":  imaging.Lanczos,
}

var resizeFilters = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"linear":   resize.Bilinear,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"lanczos":  resize.Lanczos3,
}

// imageBitmap adapts a decoded image.Image to the Bitmap interface
type imageBitmap struct {
	mu    sync.RWMutex
	img   image.Image
	scale func(src image.Image, w, h int) image.Image
}

func newImageBitmap(img image.Image, scale func(image.Image, int, int) image.Image) *imageBitmap {
	return &imageBitmap{img: img, scale: scale}
}

func (b *imageBitmap) Rasterize(width, height int) ([]uint8, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid surface size %dx%d", width, height)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.img == nil {
		return nil, ErrBitmapClosed
	}
	bounds := b.img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}

	// Clone normalizes whatever the resampler produced to NRGBA
	surface := imaging.Clone(b.scale(b.img, width, height))
	if surface.Bounds().Dx() != width || surface.Bounds().Dy() != height {
		return nil, errors.Errorf("surface is %dx%d, want %dx%d",
			surface.Bounds().Dx(), surface.Bounds().Dy(), width, height)
	}

	pix := make([]uint8, 0, width*height*4)
	for y := 0; y < height; y++ {
		row := surface.Pix[y*surface.Stride : y*surface.Stride+width*4]
		pix = append(pix, row...)
	}
	return pix, nil
}

func (b *imageBitmap) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img == nil {
		return ErrBitmapClosed
	}
	b.img = nil
	return nil
}
