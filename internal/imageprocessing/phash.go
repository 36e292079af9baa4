package imageprocessing

// pHash sampling and block sizes
const (
	PHashSampleSize = 32
	PHashBlockSize  = 8
)

// LowFrequencies returns the top-left size x size block of a frequency
// map in row-major order
func LowFrequencies(freq Grid, size int) []float64 {
	block := make([]float64, 0, size*size)
	for y := 0; y < size; y++ {
		block = append(block, freq.Row(y)[:size]...)
	}
	return block
}

// PerceptionBits computes the pHash bit vector of a 32x32 grid.
// Each low-frequency coefficient is compared against the median of the
// block without its DC term; the DC bit itself is still emitted.
func PerceptionBits(g Grid) []bool {
	block := LowFrequencies(DCT2D(g), PHashBlockSize)
	m := median(block[1:])

	bits := make([]bool, len(block))
	for i, c := range block {
		bits[i] = c > m
	}
	return bits
}

// PerceptionHash returns the hex-encoded pHash of a 32x32 grid
func PerceptionHash(g Grid) (string, error) {
	return EncodeBits(PerceptionBits(g))
}
