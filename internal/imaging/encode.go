package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
)

// EncodeJPEG encodes img as JPEG at the given quality, for writing
// normalized/cropped frames back to blob storage.
func EncodeJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}
