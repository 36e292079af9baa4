package database

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage draws random gray 8x8 blocks so different seeds give unrelated photos
func createTestImage(seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	var values [64]uint8
	for i := range values {
		values[i] = uint8(30 + rng.Intn(170))
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := values[(y/8)*8+x/8]
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, img image.Image, format imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestImageDatabase(t *testing.T) {
	ctx := context.Background()
	original := createTestImage(1)
	upscaled := imaging.Resize(original, 128, 128, imaging.NearestNeighbor)

	t.Run("AddAndReject", func(t *testing.T) {
		db := NewImageDatabase(nil)

		info, err := db.AddImage(ctx, encode(t, original, imaging.PNG), "dog.png", "case-1")
		require.NoError(t, err)
		assert.Equal(t, "case-1", info.CaseID)
		assert.Len(t, info.PHash, 16)
		assert.Len(t, info.DHash, 16)
		assert.NotEmpty(t, info.Thumbnail)

		_, err = db.AddImage(ctx, encode(t, upscaled, imaging.PNG), "dog-large.png", "case-2")
		assert.Equal(t, ErrDuplicateImage, errors.Cause(err))
		assert.Contains(t, err.Error(), "dog.png")

		_, err = db.AddImage(ctx, encode(t, createTestImage(2), imaging.PNG), "dog.png", "")
		assert.Equal(t, ErrDuplicateImage, errors.Cause(err), "filenames are unique")

		_, err = db.AddImage(ctx, encode(t, createTestImage(2), imaging.PNG), "cat.png", "case-3")
		require.NoError(t, err)
		assert.Equal(t, 2, db.Count())
	})

	t.Run("UndecodableUpload", func(t *testing.T) {
		db := NewImageDatabase(nil)
		_, err := db.AddImage(ctx, []byte("garbage"), "x.png", "")
		assert.Error(t, err)
		assert.Equal(t, 0, db.Count())
	})

	t.Run("FindMatch", func(t *testing.T) {
		db := NewImageDatabase(nil)

		m, err := db.FindMatch(ctx, encode(t, original, imaging.PNG), 85)
		require.NoError(t, err)
		assert.False(t, m.IsMatch, "empty database never matches")

		_, err = db.AddImage(ctx, encode(t, original, imaging.PNG), "dog.png", "case-1")
		require.NoError(t, err)
		_, err = db.AddImage(ctx, encode(t, createTestImage(3), imaging.PNG), "cat.png", "case-2")
		require.NoError(t, err)

		m, err = db.FindMatch(ctx, encode(t, upscaled, imaging.PNG), 85)
		require.NoError(t, err)
		assert.True(t, m.IsMatch)
		assert.Equal(t, "dog.png", m.Filename)
		assert.Equal(t, "case-1", m.CaseID)
		assert.GreaterOrEqual(t, m.Similarity, 85.0)

		m, err = db.FindMatch(ctx, encode(t, original, imaging.PNG), 101)
		require.NoError(t, err)
		assert.False(t, m.IsMatch)
		assert.Equal(t, "dog.png", m.Filename)
	})

	t.Run("ListAndRemove", func(t *testing.T) {
		db := NewImageDatabase(nil)
		_, err := db.AddImage(ctx, encode(t, createTestImage(4), imaging.PNG), "b.png", "")
		require.NoError(t, err)
		_, err = db.AddImage(ctx, encode(t, createTestImage(5), imaging.PNG), "a.png", "")
		require.NoError(t, err)

		images := db.ListImages()
		require.Len(t, images, 2)
		assert.Equal(t, "a.png", images[0].Filename)
		assert.Empty(t, images[0].Thumbnail)

		require.NoError(t, db.RemoveImage("a.png"))
		assert.Equal(t, ErrNotFound, errors.Cause(db.RemoveImage("a.png")))
		assert.Equal(t, 1, db.Count())
	})
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.png"), encode(t, createTestImage(10), imaging.PNG), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.jpg"), encode(t, createTestImage(11), imaging.JPEG), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	db := NewImageDatabase(nil)
	db.SetWorkers(2)
	require.NoError(t, db.LoadImages(context.Background(), dir))

	images := db.ListImages()
	require.Len(t, images, 2)
	assert.Equal(t, "one.png", images[0].Filename)
	assert.Equal(t, "two.jpg", images[1].Filename)

	// Already indexed files are skipped on reload
	require.NoError(t, db.LoadImages(context.Background(), dir))
	assert.Equal(t, 2, db.Count())

	err := db.LoadImages(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestStorePersistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "photos.db")

	store, err := OpenStore(dbPath)
	require.NoError(t, err)

	db := NewImageDatabase(nil)
	db.SetStore(store)
	added, err := db.AddImage(ctx, encode(t, createTestImage(20), imaging.PNG), "rex.png", "case-9")
	require.NoError(t, err)
	_, err = db.AddImage(ctx, encode(t, createTestImage(21), imaging.PNG), "max.png", "")
	require.NoError(t, err)
	require.NoError(t, db.RemoveImage("max.png"))
	require.NoError(t, store.Close())

	store, err = OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	infos, err := store.All()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, added.Filename, infos[0].Filename)
	assert.Equal(t, added.CaseID, infos[0].CaseID)
	assert.Equal(t, added.PHash, infos[0].PHash)
	assert.Equal(t, added.DHash, infos[0].DHash)
	assert.True(t, added.AddedAt.Equal(infos[0].AddedAt))

	reloaded := NewImageDatabase(nil)
	reloaded.SetStore(store)
	require.NoError(t, reloaded.LoadStore())
	assert.Equal(t, 1, reloaded.Count())

	_, err = reloaded.AddImage(ctx, encode(t, createTestImage(20), imaging.PNG), "rex-again.png", "")
	assert.Equal(t, ErrDuplicateImage, errors.Cause(err))

	assert.Equal(t, ErrNotFound, errors.Cause(store.Delete("nobody.png")))
}
