// Package imageprocessing provides image processing utilities for the rescuephoto application.
// It includes the pHash and dHash fingerprint engines, the sampling layer they
// share, thumbnail generation, and hash comparison helpers.
package imageprocessing

import (
	"bytes"
	"encoding/base64"
	"image"
	"math/bits"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// SupportedImageFormats is a map of supported image file extensions
var SupportedImageFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// IsImageFile checks if the file extension is a supported image format
func IsImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedImageFormats[ext]
}

// GenerateThumbnail creates a smaller version of the image
// and returns it as a base64-encoded string
func GenerateThumbnail(img image.Image, size int) string {
	// Resize the image while maintaining aspect ratio
	thumbnail := imaging.Resize(img, size, 0, imaging.Lanczos)

	var buf bytes.Buffer
	err := imaging.Encode(&buf, thumbnail, imaging.JPEG)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// HammingDistance counts the differing bits of two hex-encoded hashes
func HammingDistance(hash1, hash2 string) (int, error) {
	if len(hash1) != len(hash2) {
		return 0, ErrHashLengthMismatch
	}

	a, err := DecodeHash(hash1)
	if err != nil {
		return 0, err
	}
	b, err := DecodeHash(hash2)
	if err != nil {
		return 0, err
	}
	return bits.OnesCount64(a ^ b), nil
}

// HashSimilarity calculates how similar two hashes are as a percentage
func HashSimilarity(hash1, hash2 string) (float64, error) {
	dist, err := HammingDistance(hash1, hash2)
	if err != nil {
		return 0, err
	}
	return DistanceSimilarity(dist), nil
}

// DistanceSimilarity converts a Hamming distance to a percentage
func DistanceSimilarity(distance int) float64 {
	return 100.0 - (float64(distance) / float64(HashBits) * 100.0)
}

// Distances holds the per-algorithm Hamming distances of two images
type Distances struct {
	PHash int `json:"phash_distance"`
	DHash int `json:"dhash_distance"`
}

// Compare returns the Hamming distances between two hash pairs
func Compare(a, b Hashes) (Distances, error) {
	p, err := HammingDistance(a.PHash, b.PHash)
	if err != nil {
		return Distances{}, err
	}
	d, err := HammingDistance(a.DHash, b.DHash)
	if err != nil {
		return Distances{}, err
	}
	return Distances{PHash: p, DHash: d}, nil
}

// Similarity averages the pHash and dHash similarity percentages
func (d Distances) Similarity() float64 {
	return (DistanceSimilarity(d.PHash) + DistanceSimilarity(d.DHash)) / 2
}

// Within reports whether both distances are at most maxDistance
func (d Distances) Within(maxDistance int) bool {
	return d.PHash <= maxDistance && d.DHash <= maxDistance
}
