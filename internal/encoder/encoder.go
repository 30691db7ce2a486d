// Package encoder defines the Encoder interface, the CLIP and DINOv2
// backends, and the lazy-construct-once registry that hands matcher code a
// ready encoder by name.
package encoder

import "image"

// Encoder embeds a normalized, bordered-and-cropped disc image into a fixed
// length vector. Implementations are safe for concurrent use: Embed may be
// called from multiple goroutines once Registry.Get has returned the encoder.
type Encoder interface {
	// Name identifies the encoder for storage partitioning and API responses
	// (e.g. "clip", "dinov2").
	Name() string
	// Dimension returns the encoder's native embedding width, before any
	// zero-padding to the shared storage width D_max.
	Dimension() int
	// Embed runs preprocessing and inference, returning an L2-normalized
	// embedding of length Dimension(). If inference yields a zero vector,
	// Embed returns (nil, ErrDegenerateEmbedding): the result has no
	// direction to normalize and is unusable for similarity search.
	Embed(img *image.NRGBA) ([]float32, error)
	// Close releases the underlying ONNX Runtime session.
	Close() error
}

// PadToWidth zero-pads (or, if already wide enough, truncates defensively)
// embedding to dMax. Cosine similarity between two vectors padded to the
// same width is unchanged from the unpadded vectors, since the appended
// zeros contribute nothing to the dot product or either norm.
func PadToWidth(embedding []float32, dMax int) []float32 {
	if len(embedding) >= dMax {
		return embedding[:dMax]
	}
	out := make([]float32, dMax)
	copy(out, embedding)
	return out
}
