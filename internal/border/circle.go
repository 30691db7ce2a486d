package border

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/models"
)

// circleResult is the circle stage's internal candidate before it is
// translated into a models.Border.
type circleResult struct {
	centerX, centerY, radius float64
	confidence               float64
}

// detectCircle runs a gradient-space voting procedure: blur, take the
// gradient, and accumulate votes for (center_x, center_y, radius) triples
// along each edge pixel's gradient line, searching radii from rMin to rMax
// in steps of (rMax-rMin)/24 (at least 1).
func detectCircle(gray *mat.Dense, cfg config.BorderConfig) (*circleResult, bool) {
	h, w := gray.Dims()
	minDim := w
	if h < minDim {
		minDim = h
	}
	rMin := int(cfg.RMinFraction * float64(minDim) / 2)
	rMax := int(cfg.RMaxFraction * float64(minDim) / 2)
	if rMin < 5 {
		rMin = 5
	}
	if rMax <= rMin {
		rMax = rMin + 1
	}

	blurred := gaussianBlur(gray, 1.4)
	gx, gy := sobel(blurred)

	const gradThreshold = 0.12 // on a [0,1] luma gradient scale
	type edgePoint struct {
		x, y       int
		cos, sin   float64
	}
	var edges []edgePoint
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := gx.At(y, x)
			dy := gy.At(y, x)
			mag := math.Hypot(dx, dy)
			if mag < gradThreshold {
				continue
			}
			edges = append(edges, edgePoint{x: x, y: y, cos: dx / mag, sin: dy / mag})
		}
	}
	if len(edges) == 0 {
		return nil, false
	}

	const radiusSteps = 24
	step := (rMax - rMin) / radiusSteps
	if step < 1 {
		step = 1
	}

	var best circleResult
	var bestVotes int
	totalVotes := 0

	for r := rMin; r <= rMax; r += step {
		acc := make([]int32, w*h)
		for _, e := range edges {
			// Vote for the two centers that would put this edge pixel on a
			// circle of radius r, along the gradient's normal line.
			for _, sign := range [2]float64{1, -1} {
				cx := int(float64(e.x) - sign*float64(r)*e.cos)
				cy := int(float64(e.y) - sign*float64(r)*e.sin)
				if cx < 0 || cx >= w || cy < 0 || cy >= h {
					continue
				}
				acc[cy*w+cx]++
			}
		}
		for i, v := range acc {
			totalVotes += int(v)
			if int(v) > bestVotes || (int(v) == bestVotes && float64(r) > best.radius) {
				bestVotes = int(v)
				best = circleResult{
					centerX: float64(i % w),
					centerY: float64(i / w),
					radius:  float64(r),
				}
			}
		}
	}

	if bestVotes == 0 || totalVotes == 0 {
		return nil, false
	}
	// Vote mass relative to the number of edge points that could possibly
	// have voted for the winning center: each edge casts two votes, but for
	// two distinct centers, so at most one of them lands on any one center.
	best.confidence = float64(bestVotes) / float64(len(edges))
	if best.confidence > 1 {
		best.confidence = 1
	}

	// Reject candidates off-image by more than a small margin.
	margin := best.radius * 0.15
	if best.centerX < -margin || best.centerX > float64(w)+margin ||
		best.centerY < -margin || best.centerY > float64(h)+margin {
		return nil, false
	}
	if best.radius < float64(rMin) || best.radius > float64(rMax) {
		return nil, false
	}

	return &best, true
}

func (c *circleResult) toBorder() *models.Border {
	return &models.Border{
		Type: models.BorderTypeCircle,
		Circle: &models.CircleBorder{
			CenterX:    c.centerX,
			CenterY:    c.centerY,
			Radius:     c.radius,
			Confidence: c.confidence,
		},
	}
}
