// Package database provides the rescue-case photo registry used for duplicate detection
package database

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"rescuephoto/internal/imageprocessing"
)

// Defaults for near-duplicate detection and directory loading
const (
	DefaultMaxDistance = 10
	DefaultWorkers     = 4
	thumbnailSize      = 100
)

// ErrDuplicateImage is returned when an added photo is a near-duplicate of a stored one
var ErrDuplicateImage = errors.New("image already exists in database")

// ErrNotFound is returned when a photo is not in the database
var ErrNotFound = errors.New("image not found")

// ImageInfo represents a case photo and its fingerprints
type ImageInfo struct {
	Filename  string    `json:"filename"`
	CaseID    string    `json:"case_id,omitempty"`
	PHash     string    `json:"phash"`
	DHash     string    `json:"dhash"`
	AddedAt   time.Time `json:"added_at"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Hashes returns the photo's fingerprints
func (i ImageInfo) Hashes() imageprocessing.Hashes {
	return imageprocessing.Hashes{PHash: i.PHash, DHash: i.DHash}
}

// Match is the closest stored photo for a query image
type Match struct {
	Filename   string                    `json:"matched_image,omitempty"`
	CaseID     string                    `json:"case_id,omitempty"`
	Distances  imageprocessing.Distances `json:"distances"`
	Similarity float64                   `json:"similarity"`
	IsMatch    bool                      `json:"is_match"`
}

// ImageDatabase indexes case photos in memory, optionally backed by a Store
type ImageDatabase struct {
	images      map[string]ImageInfo
	mutex       sync.RWMutex
	hasher      *imageprocessing.Hasher
	store       Store
	maxDistance int
	workers     int
}

// NewImageDatabase creates a new image database
func NewImageDatabase(hasher *imageprocessing.Hasher) *ImageDatabase {
	if hasher == nil {
		hasher = imageprocessing.NewHasher(nil, nil)
	}
	return &ImageDatabase{
		images:      make(map[string]ImageInfo),
		hasher:      hasher,
		maxDistance: DefaultMaxDistance,
		workers:     DefaultWorkers,
	}
}

// SetStore assigns persistent storage to the database
func (db *ImageDatabase) SetStore(store Store) {
	db.store = store
}

// SetMaxDistance sets the Hamming distance at or below which two photos are duplicates
func (db *ImageDatabase) SetMaxDistance(bits int) {
	db.maxDistance = bits
}

// SetWorkers sets how many files LoadImages hashes concurrently
func (db *ImageDatabase) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	db.workers = n
}

// Hasher returns the hasher used for uploaded photos
func (db *ImageDatabase) Hasher() *imageprocessing.Hasher {
	return db.hasher
}

// LoadStore reads every persisted photo into the index
func (db *ImageDatabase) LoadStore() error {
	if db.store == nil {
		return nil
	}
	infos, err := db.store.All()
	if err != nil {
		return errors.Wrap(err, "load stored images")
	}

	db.mutex.Lock()
	for _, info := range infos {
		db.images[info.Filename] = info
	}
	db.mutex.Unlock()

	log.Printf("Loaded %d images from store", len(infos))
	return nil
}

// LoadImages hashes all photos in imageDir that are not indexed yet
func (db *ImageDatabase) LoadImages(ctx context.Context, imageDir string) error {
	if _, err := os.Stat(imageDir); os.IsNotExist(err) {
		return errors.Errorf("images directory does not exist: %s", imageDir)
	}

	files, err := os.ReadDir(imageDir)
	if err != nil {
		return errors.Wrap(err, "could not read directory")
	}

	// Process files in parallel with a limit on concurrent operations
	var wg sync.WaitGroup
	threadLimit := make(chan struct{}, db.workers)

	for _, file := range files {
		if file.IsDir() || !imageprocessing.IsImageFile(file.Name()) {
			continue
		}
		if db.has(file.Name()) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		threadLimit <- struct{}{}

		go func(fileName string) {
			defer wg.Done()
			defer func() { <-threadLimit }()

			path := filepath.Join(imageDir, fileName)
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("Could not read file %s: %v", path, err)
				return
			}

			info, err := db.describe(ctx, data, fileName, "")
			if err != nil {
				log.Printf("Could not hash file %s: %v", path, err)
				return
			}

			db.mutex.Lock()
			db.images[fileName] = info
			db.mutex.Unlock()

			if db.store != nil {
				if err := db.store.Save(info); err != nil {
					log.Printf("Warning: could not persist %s: %v", fileName, err)
				}
			}
			log.Printf("Loaded image: %s", fileName)
		}(file.Name())
	}

	wg.Wait()
	log.Printf("Loaded %d images into the database", db.Count())
	return ctx.Err()
}

// AddImage hashes an uploaded photo and indexes it unless a near-duplicate exists
func (db *ImageDatabase) AddImage(ctx context.Context, data []byte, filename, caseID string) (ImageInfo, error) {
	info, err := db.describe(ctx, data, filename, caseID)
	if err != nil {
		return ImageInfo{}, err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, ok := db.images[filename]; ok {
		return ImageInfo{}, errors.Wrapf(ErrDuplicateImage, "filename %s", filename)
	}
	for _, existing := range db.images {
		d, err := imageprocessing.Compare(info.Hashes(), existing.Hashes())
		if err != nil {
			continue
		}
		if d.Within(db.maxDistance) {
			return ImageInfo{}, errors.Wrapf(ErrDuplicateImage, "as %s", existing.Filename)
		}
	}

	if db.store != nil {
		if err := db.store.Save(info); err != nil {
			return ImageInfo{}, errors.Wrap(err, "persist image")
		}
	}
	db.images[filename] = info
	return info, nil
}

// FindMatch hashes a query photo and returns the most similar stored one
func (db *ImageDatabase) FindMatch(ctx context.Context, data []byte, similarityThreshold float64) (Match, error) {
	hashes, err := db.hasher.HashBytes(ctx, data)
	if err != nil {
		return Match{}, err
	}
	return db.FindMatchHashes(hashes, similarityThreshold), nil
}

// FindMatchHashes returns the stored photo most similar to the given hashes
func (db *ImageDatabase) FindMatchHashes(hashes imageprocessing.Hashes, similarityThreshold float64) Match {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	var best Match
	found := false
	for _, info := range db.images {
		d, err := imageprocessing.Compare(hashes, info.Hashes())
		if err != nil {
			continue
		}
		similarity := d.Similarity()
		if !found || similarity > best.Similarity {
			found = true
			best = Match{
				Filename:   info.Filename,
				CaseID:     info.CaseID,
				Distances:  d,
				Similarity: similarity,
			}
		}
	}
	if !found {
		return Match{}
	}

	best.IsMatch = best.Similarity >= similarityThreshold
	log.Printf("Best match: %s, similarity: %.2f%%, threshold: %.2f%%", best.Filename, best.Similarity, similarityThreshold)
	return best
}

// RemoveImage drops a photo from the index and the store
func (db *ImageDatabase) RemoveImage(filename string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, ok := db.images[filename]; !ok {
		return errors.Wrap(ErrNotFound, filename)
	}
	if db.store != nil {
		if err := db.store.Delete(filename); err != nil {
			return errors.Wrap(err, "delete stored image")
		}
	}
	delete(db.images, filename)
	return nil
}

// ListImages returns all photos without thumbnails, ordered by filename
func (db *ImageDatabase) ListImages() []ImageInfo {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	images := make([]ImageInfo, 0, len(db.images))
	for _, info := range db.images {
		info.Thumbnail = ""
		images = append(images, info)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })
	return images
}

// Count returns the number of indexed photos
func (db *ImageDatabase) Count() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.images)
}

func (db *ImageDatabase) has(filename string) bool {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	_, ok := db.images[filename]
	return ok
}

// describe computes the fingerprints and thumbnail of a photo
func (db *ImageDatabase) describe(ctx context.Context, data []byte, filename, caseID string) (ImageInfo, error) {
	hashes, err := db.hasher.HashBytes(ctx, data)
	if err != nil {
		return ImageInfo{}, err
	}

	var thumbnail string
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		thumbnail = imageprocessing.GenerateThumbnail(img, thumbnailSize)
	}

	return ImageInfo{
		Filename:  filename,
		CaseID:    caseID,
		PHash:     hashes.PHash,
		DHash:     hashes.DHash,
		AddedAt:   time.Now().UTC(),
		Thumbnail: thumbnail,
	}, nil
}
