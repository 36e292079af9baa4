package imageprocessing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Hashes holds both perceptual fingerprints of one image
type Hashes struct {
	PHash string `json:"phash"`
	DHash string `json:"dhash"`
}

// Hasher computes pHash and dHash fingerprints for encoded images
type Hasher struct {
	decoder Decoder
	cache   *cache.Cache
}

// NewHasher creates a hasher. A nil decoder uses imaging with bilinear
// resampling; a nil cache disables result caching.
func NewHasher(decoder Decoder, c *cache.Cache) *Hasher {
	if decoder == nil {
		decoder = NewImagingDecoder()
	}
	return &Hasher{decoder: decoder, cache: c}
}

// ComputePerceptualHashes reads an encoded image and returns both hashes.
// Either both hashes are returned or an error is; decoding failures are
// reported as *DecodeError.
func (h *Hasher) ComputePerceptualHashes(ctx context.Context, r io.Reader) (Hashes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Hashes{}, errors.Wrap(err, "read image")
	}
	return h.HashBytes(ctx, data)
}

// HashBytes is ComputePerceptualHashes for an in-memory image
func (h *Hasher) HashBytes(ctx context.Context, data []byte) (Hashes, error) {
	key := contentKey(data)
	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			return cached.(Hashes), nil
		}
	}

	hashes, err := h.compute(ctx, data)
	if err != nil {
		return Hashes{}, err
	}

	if h.cache != nil {
		h.cache.SetDefault(key, hashes)
	}
	return hashes, nil
}

func (h *Hasher) compute(ctx context.Context, data []byte) (Hashes, error) {
	if err := ctx.Err(); err != nil {
		return Hashes{}, err
	}

	bm, err := h.decoder.Decode(bytes.NewReader(data))
	if err != nil {
		return Hashes{}, &DecodeError{Op: "decode", Err: err}
	}
	if bm == nil {
		return Hashes{}, &DecodeError{Op: "decode", Err: errors.New("decoder returned no bitmap")}
	}
	defer func() {
		if err := bm.Close(); err != nil {
			log.Printf("Warning: could not release bitmap: %v", err)
		}
	}()

	var pHash, dHash string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grid, err := Sample(bm, PHashSampleSize, PHashSampleSize)
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		pHash, err = PerceptionHash(grid)
		return err
	})
	g.Go(func() error {
		grid, err := Sample(bm, DHashSampleWidth, DHashSampleHeight)
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		dHash, err = DifferenceHash(grid)
		return err
	})
	if err := g.Wait(); err != nil {
		return Hashes{}, err
	}

	return Hashes{PHash: pHash, DHash: dHash}, nil
}

// contentKey identifies encoded image bytes in the cache
func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
