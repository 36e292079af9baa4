package imageprocessing

// dHash grid is one column wider than it is tall so every row yields 8 comparisons
const (
	DHashSampleWidth  = 9
	DHashSampleHeight = 8
)

// DifferenceBits emits one bit per horizontally adjacent pixel pair,
// set when the left pixel is strictly brighter than the right one
func DifferenceBits(g Grid) []bool {
	bits := make([]bool, 0, (g.Width-1)*g.Height)
	for y := 0; y < g.Height; y++ {
		row := g.Row(y)
		for x := 0; x < g.Width-1; x++ {
			bits = append(bits, row[x] > row[x+1])
		}
	}
	return bits
}

// DifferenceHash returns the hex-encoded dHash of a 9x8 grid
func DifferenceHash(g Grid) (string, error) {
	return EncodeBits(DifferenceBits(g))
}
