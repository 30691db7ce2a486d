// Package transform crops a normalized image down to its detected border
// and masks out everything beyond the disc outline with solid white, so the
// encoders see only disc pixels.
package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/your-org/discid/internal/models"
)

// Apply crops img to border's bounding box and paints every pixel outside
// the border's outline white. When border is nil (no detection, or
// detection disabled) the original image is returned unchanged, falling
// back to the full frame.
func Apply(img *image.NRGBA, border *models.Border) *image.NRGBA {
	if border == nil {
		return img
	}

	switch border.Type {
	case models.BorderTypeCircle:
		if border.Circle != nil {
			return applyCircle(img, border.Circle)
		}
	case models.BorderTypeEllipse:
		if border.Ellipse != nil {
			return applyEllipse(img, border.Ellipse)
		}
	}
	return img
}

func applyCircle(img *image.NRGBA, c *models.CircleBorder) *image.NRGBA {
	bounds := img.Bounds()
	rect := image.Rect(
		int(math.Floor(c.CenterX-c.Radius)),
		int(math.Floor(c.CenterY-c.Radius)),
		int(math.Ceil(c.CenterX+c.Radius)),
		int(math.Ceil(c.CenterY+c.Radius)),
	).Intersect(bounds)
	if rect.Empty() {
		return img
	}

	cropped := imaging.Crop(img, rect)
	maskCircle(cropped, c.CenterX-float64(rect.Min.X), c.CenterY-float64(rect.Min.Y), c.Radius)
	return cropped
}

func applyEllipse(img *image.NRGBA, e *models.EllipseBorder) *image.NRGBA {
	bounds := img.Bounds()

	// Axis-aligned bounding box of a rotated ellipse: semi-axis extents
	// along x/y are a*|cos|+b*|sin| and a*|sin|+b*|cos| respectively, where
	// theta is the rotation of the major axis.
	theta := e.RotationDeg * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	extentX := e.Major*math.Abs(cosT) + e.Minor*math.Abs(sinT)
	extentY := e.Major*math.Abs(sinT) + e.Minor*math.Abs(cosT)

	rect := image.Rect(
		int(math.Floor(e.CenterX-extentX)),
		int(math.Floor(e.CenterY-extentY)),
		int(math.Ceil(e.CenterX+extentX)),
		int(math.Ceil(e.CenterY+extentY)),
	).Intersect(bounds)
	if rect.Empty() {
		return img
	}

	cropped := imaging.Crop(img, rect)
	maskEllipse(cropped, e.CenterX-float64(rect.Min.X), e.CenterY-float64(rect.Min.Y), e.Major, e.Minor, theta)
	return cropped
}

// maskCircle whitens every pixel in img falling outside the circle centered
// at (cx, cy) with the given radius, in place.
func maskCircle(img *image.NRGBA, cx, cy, radius float64) {
	b := img.Bounds()
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy > radius*radius {
				img.SetNRGBA(x, y, white)
			}
		}
	}
}

// maskEllipse whitens every pixel in img falling outside the rotated
// ellipse centered at (cx, cy) with semi-axes (a, b) and rotation theta
// (radians), in place.
func maskEllipse(img *image.NRGBA, cx, cy, a, b, theta float64) {
	if a == 0 || b == 0 {
		return
	}
	b2 := img.Bounds()
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	cosT, sinT := math.Cos(-theta), math.Sin(-theta)
	for y := b2.Min.Y; y < b2.Max.Y; y++ {
		for x := b2.Min.X; x < b2.Max.X; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			xr := dx*cosT - dy*sinT
			yr := dx*sinT + dy*cosT
			if (xr*xr)/(a*a)+(yr*yr)/(b*b) > 1 {
				img.SetNRGBA(x, y, white)
			}
		}
	}
}
