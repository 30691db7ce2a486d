package encoder

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrDegenerateEmbedding is returned by Embed when inference produces a
// zero vector: no direction to normalize, and therefore unusable as a
// similarity-search key.
var ErrDegenerateEmbedding = errors.New("encoder: degenerate (zero-norm) embedding")

// preprocessCHW resizes img so its shorter edge equals size, center-crops
// to size x size, and converts the result to CHW float32, normalizing each
// channel as (pixel/255 - mean) / std, matching CLIP/DINOv2's published
// preprocessors. Resizing on the short edge first (rather than a single
// anisotropic resize straight to size x size) preserves the source aspect
// ratio instead of stretching it.
func preprocessCHW(img *image.NRGBA, size int, mean, std [3]float32) []float32 {
	var resized *image.NRGBA
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		resized = imaging.Resize(img, size, 0, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, 0, size, imaging.Lanczos)
	}
	resized = imaging.CropCenter(resized, size, size)

	planeSize := size * size
	data := make([]float32, 3*planeSize)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x, y)
			pix := resized.Pix[off : off+3 : off+3]
			idx := y*size + x
			data[idx] = (float32(pix[0])/255 - mean[0]) / std[0]
			data[planeSize+idx] = (float32(pix[1])/255 - mean[1]) / std[1]
			data[2*planeSize+idx] = (float32(pix[2])/255 - mean[2]) / std[2]
		}
	}
	return data
}

// l2Normalize scales v in place to unit L2 norm and reports whether it
// could: a zero vector is left untouched rather than dividing by zero, and
// ok is false so the caller can refuse it as unusable.
func l2Normalize(v []float32) (ok bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return false
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return true
}
