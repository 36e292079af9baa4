package imageprocessing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"math/rand"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func flatImage(w, h int, v uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
}

// textureImage fills size x size pixels with random gray blocks in [lo, hi)
func textureImage(seed int64, size, block int, lo, hi int) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	n := size / block
	values := make([]uint8, n*n)
	for i := range values {
		values[i] = uint8(lo + rng.Intn(hi-lo))
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := values[(y/block)*n+x/block]
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func mapGray(img *image.NRGBA, f func(uint8) uint8) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = f(out.Pix[i])
		out.Pix[i+1] = f(out.Pix[i+1])
		out.Pix[i+2] = f(out.Pix[i+2])
	}
	return out
}

func mustHash(t *testing.T, h *Hasher, data []byte) Hashes {
	t.Helper()
	hashes, err := h.HashBytes(context.Background(), data)
	require.NoError(t, err)
	return hashes
}

func TestComputePerceptualHashes(t *testing.T) {
	h := NewHasher(nil, nil)
	texture := textureImage(42, 64, 8, 30, 200)

	t.Run("FlatGrayFixture", func(t *testing.T) {
		hashes, err := h.ComputePerceptualHashes(context.Background(), bytes.NewReader(encodePNG(t, flatImage(32, 32, 128))))
		require.NoError(t, err)
		// Only the DC coefficient exceeds the all-zero AC median
		assert.Equal(t, "8000000000000000", hashes.PHash)
		assert.Equal(t, "0000000000000000", hashes.DHash)
	})

	t.Run("HorizontalRampFixture", func(t *testing.T) {
		ramp := image.NewNRGBA(image.Rect(0, 0, 9, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 9; x++ {
				v := uint8(x * 28)
				ramp.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
			}
		}
		hashes := mustHash(t, h, encodePNG(t, ramp))
		assert.Equal(t, "0000000000000000", hashes.DHash)
	})

	t.Run("Deterministic", func(t *testing.T) {
		data := encodePNG(t, texture)
		first := mustHash(t, h, data)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, mustHash(t, h, data))
		}
	})

	t.Run("FixedLengthHex", func(t *testing.T) {
		for _, img := range []image.Image{texture, flatImage(7, 3, 0), textureImage(7, 40, 5, 0, 256)} {
			hashes := mustHash(t, h, encodePNG(t, img))
			assert.Regexp(t, hashPattern, hashes.PHash)
			assert.Regexp(t, hashPattern, hashes.DHash)
		}
	})

	t.Run("ScaleRobust", func(t *testing.T) {
		upscaled := imaging.Resize(texture, 128, 128, imaging.NearestNeighbor)
		a := mustHash(t, h, encodePNG(t, texture))
		b := mustHash(t, h, encodePNG(t, upscaled))

		dist, err := HammingDistance(a.PHash, b.PHash)
		require.NoError(t, err)
		assert.LessOrEqual(t, dist, 10)
	})

	t.Run("Sensitive", func(t *testing.T) {
		negative := mapGray(texture, func(v uint8) uint8 { return 255 - v })
		a := mustHash(t, h, encodePNG(t, texture))
		b := mustHash(t, h, encodePNG(t, negative))

		d, err := Compare(a, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d.PHash, 20)
		assert.GreaterOrEqual(t, d.DHash, 20)
	})

	t.Run("BrightnessShiftIgnoresDC", func(t *testing.T) {
		brighter := mapGray(texture, func(v uint8) uint8 { return v + 40 })
		a := mustHash(t, h, encodePNG(t, texture))
		b := mustHash(t, h, encodePNG(t, brighter))

		dist, err := HammingDistance(a.PHash, b.PHash)
		require.NoError(t, err)
		assert.LessOrEqual(t, dist, 4)
	})

	t.Run("UndecodableBytes", func(t *testing.T) {
		hashes, err := h.ComputePerceptualHashes(context.Background(), bytes.NewReader([]byte("not an image")))
		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
		assert.Equal(t, Hashes{}, hashes)
	})

	t.Run("ResizeDecoder", func(t *testing.T) {
		rh := NewHasher(NewResizeDecoder(), nil)
		data := encodePNG(t, texture)
		a := mustHash(t, rh, data)
		assert.Regexp(t, hashPattern, a.PHash)
		assert.Regexp(t, hashPattern, a.DHash)
		assert.Equal(t, a, mustHash(t, rh, data))
	})
}

func TestHasherCache(t *testing.T) {
	dec := &spyDecoder{pix: flatPixels}
	h := NewHasher(dec, cache.New(time.Minute, time.Minute))

	first := mustHash(t, h, []byte("same bytes"))
	second := mustHash(t, h, []byte("same bytes"))

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&dec.decodes))
}

// spyDecoder hands out bitmaps that count Close calls
type spyDecoder struct {
	decodeErr    error
	rasterizeErr error
	pix          func(w, h int) []uint8

	decodes int32
	closes  int32
}

func (d *spyDecoder) Decode(r io.Reader) (Bitmap, error) {
	atomic.AddInt32(&d.decodes, 1)
	if d.decodeErr != nil {
		return nil, d.decodeErr
	}
	return &spyBitmap{d: d}, nil
}

type spyBitmap struct {
	d *spyDecoder
}

func (b *spyBitmap) Rasterize(w, h int) ([]uint8, error) {
	if b.d.rasterizeErr != nil {
		return nil, b.d.rasterizeErr
	}
	return b.d.pix(w, h), nil
}

func (b *spyBitmap) Close() error {
	atomic.AddInt32(&b.d.closes, 1)
	return nil
}

func flatPixels(w, h int) []uint8 {
	return bytes.Repeat([]uint8{128, 128, 128, 255}, w*h)
}

func TestBitmapRelease(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		dec := &spyDecoder{pix: flatPixels}
		hashes, err := NewHasher(dec, nil).HashBytes(context.Background(), []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "8000000000000000", hashes.PHash)
		assert.EqualValues(t, 1, atomic.LoadInt32(&dec.closes))
	})

	t.Run("RasterizeFailure", func(t *testing.T) {
		dec := &spyDecoder{rasterizeErr: errors.New("surface unavailable")}
		hashes, err := NewHasher(dec, nil).HashBytes(context.Background(), []byte("x"))
		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
		assert.Equal(t, Hashes{}, hashes)
		assert.EqualValues(t, 1, atomic.LoadInt32(&dec.closes))
	})

	t.Run("ShortSurface", func(t *testing.T) {
		dec := &spyDecoder{pix: func(w, h int) []uint8 { return make([]uint8, 4) }}
		_, err := NewHasher(dec, nil).HashBytes(context.Background(), []byte("x"))
		assert.True(t, IsDecodeError(err))
		assert.EqualValues(t, 1, atomic.LoadInt32(&dec.closes))
	})

	t.Run("DecodeFailure", func(t *testing.T) {
		dec := &spyDecoder{decodeErr: errors.New("bad header")}
		_, err := NewHasher(dec, nil).HashBytes(context.Background(), []byte("x"))
		assert.True(t, IsDecodeError(err))
		assert.EqualValues(t, 0, atomic.LoadInt32(&dec.closes))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		dec := &spyDecoder{pix: flatPixels}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewHasher(dec, nil).HashBytes(ctx, []byte("x"))
		assert.Equal(t, context.Canceled, err)
		assert.EqualValues(t, 0, atomic.LoadInt32(&dec.decodes))
	})
}

func TestImageBitmap(t *testing.T) {
	bm, err := NewImagingDecoder().Decode(bytes.NewReader(encodePNG(t, flatImage(5, 5, 10))))
	require.NoError(t, err)

	pix, err := bm.Rasterize(3, 2)
	require.NoError(t, err)
	assert.Len(t, pix, 3*2*4)
	assert.Equal(t, []uint8{10, 10, 10, 255}, pix[:4])

	_, err = bm.Rasterize(0, 2)
	assert.Error(t, err)

	require.NoError(t, bm.Close())
	assert.Equal(t, ErrBitmapClosed, bm.Close())
	_, err = bm.Rasterize(3, 2)
	assert.Equal(t, ErrBitmapClosed, err)
}

func TestNewDecoder(t *testing.T) {
	assert.IsType(t, &ResizeDecoder{}, NewDecoder("nfnt", "bicubic"))
	assert.IsType(t, &ImagingDecoder{}, NewDecoder("imaging", "lanczos"))
	assert.IsType(t, &ImagingDecoder{}, NewDecoder("", ""))

	d := NewDecoder("imaging", "nearest").(*ImagingDecoder)
	assert.Equal(t, imaging.NearestNeighbor.Support, d.Filter.Support)
}
