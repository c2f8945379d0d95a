// Package filter implements the smoothing applied to channel planes before
// thresholding. The Gaussian here reproduces the behavior of the standard
// scientific-stack filter (truncation at 4 sigma, reflect boundary) so that
// area metrics stay comparable across toolchains.
package filter

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Kernel returns a normalized 1D Gaussian kernel for the given sigma,
// truncated at radius int(4*sigma + 0.5). The kernel has 2*radius+1 taps
// and sums to 1.
func Kernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// Gaussian smooths a row-major width*height raster with an isotropic
// Gaussian of the given sigma and returns a new raster of the same shape.
// The input is not modified. Borders are handled by reflection about the
// edge pixel, and a non-positive sigma returns an unmodified copy.
func Gaussian(pix []float64, width, height int, sigma float64) []float64 {
	out := make([]float64, len(pix))
	copy(out, pix)
	if sigma <= 0 || width == 0 || height == 0 {
		return out
	}

	kernel := Kernel(sigma)
	radius := len(kernel) / 2
	tmp := make([]float64, len(pix))

	// Horizontal pass: out -> tmp.
	window := make([]float64, len(kernel))
	for y := 0; y < height; y++ {
		row := out[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			for k := -radius; k <= radius; k++ {
				window[k+radius] = row[reflect(x+k, width)]
			}
			tmp[y*width+x] = floats.Dot(kernel, window)
		}
	}

	// Vertical pass: tmp -> out.
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			for k := -radius; k <= radius; k++ {
				window[k+radius] = tmp[reflect(y+k, height)*width+x]
			}
			out[y*width+x] = floats.Dot(kernel, window)
		}
	}
	return out
}

// reflect maps an out-of-range index back into [0, n) by mirroring about
// the array edges, repeating the edge sample ("reflect" mode: d c b a |
// a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
