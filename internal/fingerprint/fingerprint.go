package fingerprint

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"

	"golang.org/x/image/draw"
)

// Hash is a 64-bit perceptual fingerprint of an image's visual content.
// Hashes are compared by Hamming distance.
type Hash uint64

// String renders the hash in its persisted text form: 16 lowercase hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Parse converts the persisted text form back into a Hash.
func Parse(s string) (Hash, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("invalid fingerprint %q: want 16 hex digits, got %d", s, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	return Hash(v), nil
}

// Distance computes the Hamming distance between two hashes.
func Distance(a, b Hash) int {
	xor := uint64(a ^ b)
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similar returns true if two hashes are within the given threshold.
func Similar(a, b Hash, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Compute computes a 64-bit perceptual hash of an image using DCT.
// The result is deterministic for identical pixel content.
func Compute(img image.Image) Hash {
	// 1. Resize to 32x32 for DCT processing
	resized := resizeImage(img, 32, 32)

	// 2. Convert to grayscale
	gray := toGrayscale(resized)

	// 3. Compute 32x32 DCT (Discrete Cosine Transform)
	dct := computeDCT(gray)

	// 4. Extract top-left 8x8 DCT coefficients (low frequencies)
	//    excluding DC component (0,0)
	lowFreq := make([]float64, 64)
	idx := 0
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue // Skip DC component
			}
			if idx < 64 {
				lowFreq[idx] = dct[u][v]
				idx++
			}
		}
	}
	// Fill remaining with the last few coefficients.
	for ; idx < 64; idx++ {
		lowFreq[idx] = dct[idx/8][idx%8]
	}

	// 5. Compute median of the 64 values
	median := computeMedian(lowFreq)

	// 6. Generate hash: 1 if value > median, 0 otherwise
	var hash uint64
	for i := range 64 {
		if lowFreq[i] > median {
			hash |= 1 << (63 - i)
		}
	}

	return Hash(hash)
}

// resizeImage scales an image to the specified dimensions.
func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}

	return gray
}

// computeDCT computes the Discrete Cosine Transform of a grayscale image.
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}

	// Precompute cosine values for efficiency.
	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	// DCT-II formula.
	for u := range size {
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}

	return dct
}

// computeMedian returns the median value from a slice.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
