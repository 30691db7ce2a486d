// Package border implements the two-stage circle/ellipse disc outline
// detector.
package border

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// toGray converts an RGB raster to a gonum dense matrix of luma values in
// [0, 1], row-major (r=y, c=x), the mat.Dense shape the rest of this
// package works on.
func toGray(img *image.NRGBA) *mat.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		rowOff := y * img.Stride
		for x := 0; x < w; x++ {
			i := rowOff + x*4
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			bl := float64(img.Pix[i+2])
			luma := 0.299*r + 0.587*g + 0.114*bl
			gray.Set(y, x, luma/255.0)
		}
	}
	return gray
}

// gaussianKernel1D returns a normalized 1-D Gaussian kernel for the given
// sigma, sized to 2*round(3*sigma)+1 taps (at least 3).
func gaussianKernel1D(sigma float64) []float64 {
	radius := int(3*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	size := 2*radius + 1
	k := make([]float64, size)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := gaussian(float64(i), sigma)
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func gaussian(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}
