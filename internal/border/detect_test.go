package border

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/discid/internal/config"
)

func defaultTestConfig() config.BorderConfig {
	return config.BorderConfig{
		Enabled:          true,
		ConfidenceFloor:  0.3,
		RMinFraction:     0.25,
		RMaxFraction:     1.0,
		MinContourAreaFr: 0.05,
	}
}

func drawFilledCircle(w, h int, cx, cy, r float64, fg, bg color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img
}

func TestDetectCircle(t *testing.T) {
	img := drawFilledCircle(200, 200, 100, 100, 60, color.White, color.Black)
	cfg := defaultTestConfig()

	border, err := Detect(img, cfg)
	require.NoError(t, err)
	require.NotNil(t, border)
	assert.Equal(t, "circle", string(border.Type))
	require.NotNil(t, border.Circle)
	assert.InDelta(t, 100, border.Circle.CenterX, 15)
	assert.InDelta(t, 100, border.Circle.CenterY, 15)
	assert.InDelta(t, 60, border.Circle.Radius, 15)
}

func TestDetectDisabledReturnsNil(t *testing.T) {
	img := drawFilledCircle(100, 100, 50, 50, 30, color.White, color.Black)
	cfg := defaultTestConfig()
	cfg.Enabled = false

	border, err := Detect(img, cfg)
	require.NoError(t, err)
	assert.Nil(t, border)
}

func TestDetectUniformImageYieldsNoBorder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 80, 80))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	cfg := defaultTestConfig()

	border, err := Detect(img, cfg)
	require.NoError(t, err)
	assert.Nil(t, border)
}
