// Package imaging implements the image normalizer (decode, EXIF
// orientation, RGB conversion) and the JPEG encoder used when writing
// images to blob storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
)

// Sentinel errors for the validation error kind: surfaced to the caller
// unchanged, never retried.
var (
	ErrUnsupportedFormat = errors.New("imaging: unsupported format")
	ErrOversize           = errors.New("imaging: image exceeds max_image_bytes")
	ErrUndecodable        = errors.New("imaging: could not decode image")
)

// Normalize decodes raw image bytes into an RGB raster, applying EXIF
// orientation correction and discarding all other metadata. The format is
// taken from the byte signature alone; Normalize takes no caller-claimed
// content type and so performs no check against one.
func Normalize(data []byte, maxBytes int64) (*image.NRGBA, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrOversize
	}

	format, ok := sniffFormat(data)
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	var img image.Image
	var err error
	switch format {
	case "jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	rgba := toNRGBA(img)

	if format == "jpeg" {
		orientation := readOrientation(data)
		rgba = applyOrientation(rgba, orientation)
	}

	return rgba, nil
}

// sniffFormat identifies JPEG/PNG by magic bytes, independent of any
// caller-supplied content type.
func sniffFormat(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg", true
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return "png", true
	default:
		return "", false
	}
}

// toNRGBA converts any decoded image to RGB, alpha-compositing over opaque
// white when the source has an alpha channel.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && !hasAlpha(n) {
		return n
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	white := image.NewUniform(color.White)
	draw.Draw(out, bounds, white, image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}

func hasAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xFF {
			return true
		}
	}
	return false
}

// applyOrientation rotates/flips img so that EXIF orientation o becomes
// upright (o=1). Orientation values follow the standard EXIF convention.
func applyOrientation(img *image.NRGBA, o int) *image.NRGBA {
	switch o {
	case 1:
		return img
	case 2:
		return flipH(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipV(img)
	case 5:
		return flipH(rotate90(img))
	case 6:
		return rotate90(img)
	case 7:
		return flipH(rotate270(img))
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func rotate270(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func rotate180(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func flipH(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func flipV(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
