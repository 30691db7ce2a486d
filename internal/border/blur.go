package border

import "gonum.org/v1/gonum/mat"

// gaussianBlur applies a separable Gaussian blur to a gray-level matrix,
// suppressing texture noise before the circle stage's gradient computation.
func gaussianBlur(src *mat.Dense, sigma float64) *mat.Dense {
	kernel := gaussianKernel1D(sigma)
	h, w := src.Dims()

	tmp := mat.NewDense(h, w, nil)
	convolveRows(src, tmp, kernel)

	out := mat.NewDense(h, w, nil)
	convolveCols(tmp, out, kernel)

	return out
}

func convolveRows(src, dst *mat.Dense, kernel []float64) {
	h, w := src.Dims()
	radius := len(kernel) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				xs := clampInt(x+k, 0, w-1)
				sum += src.At(y, xs) * kernel[k+radius]
			}
			dst.Set(y, x, sum)
		}
	}
}

func convolveCols(src, dst *mat.Dense, kernel []float64) {
	h, w := src.Dims()
	radius := len(kernel) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -radius; k <= radius; k++ {
				ys := clampInt(y+k, 0, h-1)
				sum += src.At(ys, x) * kernel[k+radius]
			}
			dst.Set(y, x, sum)
		}
	}
}

// sobel computes the gradient magnitude matrix using 3x3 Sobel operators,
// feeding the circle stage's Hough accumulator.
func sobel(src *mat.Dense) (*mat.Dense, *mat.Dense) {
	h, w := src.Dims()
	gx := mat.NewDense(h, w, nil)
	gy := mat.NewDense(h, w, nil)

	at := func(y, x int) float64 {
		y = clampInt(y, 0, h-1)
		x = clampInt(x, 0, w-1)
		return src.At(y, x)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gxv := -at(y-1, x-1) - 2*at(y, x-1) - at(y+1, x-1) +
				at(y-1, x+1) + 2*at(y, x+1) + at(y+1, x+1)
			gyv := -at(y-1, x-1) - 2*at(y-1, x) - at(y-1, x+1) +
				at(y+1, x-1) + 2*at(y+1, x) + at(y+1, x+1)
			gx.Set(y, x, gxv)
			gy.Set(y, x, gyv)
		}
	}
	return gx, gy
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
