package border

import (
	"image"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/internal/observability"
)

// Detect finds the disc's outline in a normalized image. It runs the circle
// stage first and only falls through to the ellipse stage if the circle
// stage fails outright or its confidence is below cfg.ConfidenceFloor. A
// nil, nil return means no border could be detected above the configured
// confidence floor; callers degrade to "use the full frame" rather than
// treat this as an error.
func Detect(img *image.NRGBA, cfg config.BorderConfig) (*models.Border, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	gray := toGray(img)

	if circle, ok := detectCircle(gray, cfg); ok && circle.confidence >= cfg.ConfidenceFloor {
		observability.BorderDetections.WithLabelValues("circle").Inc()
		return circle.toBorder(), nil
	}

	if ellipse, ok := detectEllipse(gray, cfg); ok && ellipse.confidence >= cfg.ConfidenceFloor {
		observability.BorderDetections.WithLabelValues("ellipse").Inc()
		return ellipse.toBorder(), nil
	}

	observability.BorderDetections.WithLabelValues("none").Inc()
	return nil, nil
}
