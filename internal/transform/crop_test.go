package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/discid/internal/models"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestApplyNilBorderReturnsOriginal(t *testing.T) {
	img := solidImage(10, 10, color.Black)
	out := Apply(img, nil)
	assert.Same(t, img, out)
}

func TestApplyCircleCropsAndMasks(t *testing.T) {
	img := solidImage(100, 100, color.Black)
	border := &models.Border{
		Type: models.BorderTypeCircle,
		Circle: &models.CircleBorder{
			CenterX: 50, CenterY: 50, Radius: 30, Confidence: 0.9,
		},
	}

	out := Apply(img, border)
	require.NotNil(t, out)
	b := out.Bounds()
	assert.Equal(t, 60, b.Dx())
	assert.Equal(t, 60, b.Dy())

	corner := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), corner.R)
	assert.Equal(t, uint8(255), corner.A)

	center := out.NRGBAAt(b.Dx()/2, b.Dy()/2)
	assert.Equal(t, uint8(0), center.R)
}

func TestApplyEllipseCropsAndMasks(t *testing.T) {
	img := solidImage(120, 80, color.Black)
	border := &models.Border{
		Type: models.BorderTypeEllipse,
		Ellipse: &models.EllipseBorder{
			CenterX: 60, CenterY: 40, Major: 40, Minor: 20, RotationDeg: 0, Confidence: 0.8,
		},
	}

	out := Apply(img, border)
	require.NotNil(t, out)

	corner := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), corner.R)
}
