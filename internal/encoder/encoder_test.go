package encoder

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadToWidthPads(t *testing.T) {
	v := []float32{1, 2, 3}
	padded := PadToWidth(v, 8)
	assert.Len(t, padded, 8)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0, 0, 0}, padded)
}

func TestPadToWidthTruncatesWhenAlreadyWide(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	padded := PadToWidth(v, 2)
	assert.Equal(t, []float32{1, 2}, padded)
}

func TestPadToWidthPreservesCosineSimilarity(t *testing.T) {
	a := []float32{0.6, 0.8}
	b := []float32{0.8, 0.6}
	pa := PadToWidth(a, 6)
	pb := PadToWidth(b, 6)

	assert.InDelta(t, cosine(a, b), cosine(pa, pb), 1e-9)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestPreprocessCHWShape(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 50, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	out := preprocessCHW(img, 32, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
	assert.Len(t, out, 3*32*32)
}

func TestL2NormalizeUnitNorm(t *testing.T) {
	v := []float32{3, 4}
	l2Normalize(v)
	assert.InDelta(t, 1.0, math.Sqrt(float64(v[0]*v[0]+v[1]*v[1])), 1e-6)
}

func TestL2NormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	l2Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}
