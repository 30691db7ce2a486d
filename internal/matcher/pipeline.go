package matcher

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/your-org/discid/internal/border"
	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/encoder"
	imagingpkg "github.com/your-org/discid/internal/imaging"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/internal/observability"
	"github.com/your-org/discid/internal/transform"
)

// processedImage is the result of running a raw upload through normalize ->
// detect border -> crop/mask -> embed, in sequence.
type processedImage struct {
	original *image.NRGBA
	cropped  *image.NRGBA
	border   *models.Border
	embedding []float32
	encoderName string
}

// process runs the full single-image pipeline shared by register,
// add_image_to_disc, and find_matches. UpdateBorder runs its own variant
// that skips detection and uses the caller's border.
func process(data []byte, cfg config.Config, enc encoder.Encoder) (*processedImage, error) {
	start := time.Now()
	img, err := imagingpkg.Normalize(data, cfg.Matcher.MaxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	observability.PipelineDuration.WithLabelValues("normalize").Observe(time.Since(start).Seconds())

	start = time.Now()
	b, err := border.Detect(img, cfg.Border)
	if err != nil {
		return nil, fmt.Errorf("detect border: %w", err)
	}
	observability.PipelineDuration.WithLabelValues("border").Observe(time.Since(start).Seconds())

	start = time.Now()
	cropped := transform.Apply(img, b)
	observability.PipelineDuration.WithLabelValues("crop").Observe(time.Since(start).Seconds())

	start = time.Now()
	// A single encoder failure is treated as transient and retried once
	// before surfacing: inference is CPU-bound and occasional failures are
	// not expected to repeat back-to-back. A degenerate (zero-norm) result
	// is deterministic for the same input, so it is not worth retrying.
	embedding, err := enc.Embed(cropped)
	if err != nil && !errors.Is(err, encoder.ErrDegenerateEmbedding) {
		embedding, err = enc.Embed(cropped)
	}
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	embedding = encoder.PadToWidth(embedding, cfg.Encoder.DMax)
	observability.PipelineDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	return &processedImage{
		original:    img,
		cropped:     cropped,
		border:      b,
		embedding:   embedding,
		encoderName: enc.Name(),
	}, nil
}
