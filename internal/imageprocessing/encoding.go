package imageprocessing

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// HashBits is the number of bits in every hash
const HashBits = 64

// HashLength is the length of an encoded hash string
const HashLength = HashBits / 4

// Error definitions
var (
	ErrHashLengthMismatch = errors.New("hash lengths do not match")
	ErrInvalidHash        = errors.New("invalid hash string")
)

// EncodeBits packs a 64-bit vector into a 16-character lowercase hex
// string. The first bit is the most significant.
func EncodeBits(bits []bool) (string, error) {
	if len(bits) != HashBits {
		return "", errors.Errorf("bit vector has %d entries, want %d", len(bits), HashBits)
	}
	var v uint64
	for _, b := range bits {
		v <<= 1
		if b {
			v |= 1
		}
	}
	return fmt.Sprintf("%016x", v), nil
}

// DecodeHash parses a hash string produced by EncodeBits
func DecodeHash(s string) (uint64, error) {
	if len(s) != HashLength {
		return 0, errors.Wrapf(ErrInvalidHash, "%q has length %d", s, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidHash, "%q", s)
	}
	return v, nil
}

// median returns the median of values without modifying them.
// Even-length input averages the two middle elements.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
