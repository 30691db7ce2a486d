package border

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/models"
)

type ellipseResult struct {
	centerX, centerY   float64
	major, minor       float64
	rotationDeg        float64
	confidence         float64
}

// detectEllipse is the fallback stage: adaptive-threshold the image into a
// foreground mask, take its largest connected component, and fit an
// ellipse to that component's second-order moments.
func detectEllipse(gray *mat.Dense, cfg config.BorderConfig) (*ellipseResult, bool) {
	h, w := gray.Dims()
	mask := adaptiveThreshold(gray)

	comp := largestComponent(mask, w, h)
	if len(comp) == 0 {
		return nil, false
	}

	minArea := cfg.MinContourAreaFr * float64(w*h)
	if float64(len(comp)) < minArea {
		return nil, false
	}

	cx, cy := centroid(comp)
	a, b, theta := fitEllipseMoments(comp, cx, cy)
	if a <= 0 || b <= 0 {
		return nil, false
	}

	inside := 0
	for _, p := range comp {
		if pointInEllipse(float64(p.x), float64(p.y), cx, cy, a, b, theta) {
			inside++
		}
	}
	confidence := float64(inside) / float64(len(comp))

	return &ellipseResult{
		centerX:     cx,
		centerY:     cy,
		major:       a,
		minor:       b,
		rotationDeg: theta * 180 / math.Pi,
		confidence:  confidence,
	}, true
}

// adaptiveThreshold separates disc from background using a threshold
// offset from the image's mean luma, tolerating uneven lighting better
// than a fixed global cutoff.
func adaptiveThreshold(gray *mat.Dense) []bool {
	h, w := gray.Dims()
	sum := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += gray.At(y, x)
		}
	}
	mean := sum / float64(w*h)
	const offset = 0.08

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Foreground is whatever stands apart from the mean luma in
			// either direction: dark discs on a bright table, or the reverse.
			v := gray.At(y, x)
			mask[y*w+x] = math.Abs(v-mean) > offset
		}
	}
	return mask
}

type point struct{ x, y int }

// largestComponent runs a 4-connected flood fill over the mask and returns
// the pixels of its largest foreground blob.
func largestComponent(mask []bool, w, h int) []point {
	visited := make([]bool, w*h)
	var best []point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if !mask[idx] || visited[idx] {
				continue
			}
			comp := floodFill(mask, visited, w, h, x, y)
			if len(comp) > len(best) {
				best = comp
			}
		}
	}
	return best
}

func floodFill(mask []bool, visited []bool, w, h, sx, sy int) []point {
	stack := []point{{sx, sy}}
	visited[sy*w+sx] = true
	var comp []point

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, p)

		neighbors := [4]point{
			{p.x - 1, p.y}, {p.x + 1, p.y},
			{p.x, p.y - 1}, {p.x, p.y + 1},
		}
		for _, n := range neighbors {
			if n.x < 0 || n.x >= w || n.y < 0 || n.y >= h {
				continue
			}
			idx := n.y*w + n.x
			if !mask[idx] || visited[idx] {
				continue
			}
			visited[idx] = true
			stack = append(stack, n)
		}
	}
	return comp
}

func centroid(comp []point) (float64, float64) {
	var sx, sy float64
	for _, p := range comp {
		sx += float64(p.x)
		sy += float64(p.y)
	}
	n := float64(len(comp))
	return sx / n, sy / n
}

// fitEllipseMoments fits an ellipse to comp's second-order central moments:
// the covariance matrix's eigenvectors give the major/minor axes, and its
// eigenvalues (scaled for a uniform disc) give the semi-axis lengths.
func fitEllipseMoments(comp []point, cx, cy float64) (major, minor, theta float64) {
	var mxx, myy, mxy float64
	n := float64(len(comp))
	for _, p := range comp {
		dx := float64(p.x) - cx
		dy := float64(p.y) - cy
		mxx += dx * dx
		myy += dy * dy
		mxy += dx * dy
	}
	mxx /= n
	myy /= n
	mxy /= n

	cov := mat.NewSymDense(2, []float64{mxx, mxy, mxy, myy})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return 0, 0, 0
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// A uniform filled ellipse with semi-axes (a, b) has second moments
	// a^2/4 and b^2/4 along its principal axes.
	l0, l1 := values[0], values[1]
	if l0 < l1 {
		l0, l1 = l1, l0
	}
	major = 2 * math.Sqrt(math.Max(l0, 0))
	minor = 2 * math.Sqrt(math.Max(l1, 0))

	// values[] is ascending; the major axis corresponds to the larger
	// eigenvalue, whose eigenvector sits in the matching column.
	majorCol := 1
	if values[0] > values[1] {
		majorCol = 0
	}
	theta = math.Atan2(vectors.At(1, majorCol), vectors.At(0, majorCol))
	return major, minor, theta
}

func pointInEllipse(px, py, cx, cy, a, b, theta float64) bool {
	dx := px - cx
	dy := py - cy
	cosT, sinT := math.Cos(-theta), math.Sin(-theta)
	xr := dx*cosT - dy*sinT
	yr := dx*sinT + dy*cosT
	if a == 0 || b == 0 {
		return false
	}
	return (xr*xr)/(a*a)+(yr*yr)/(b*b) <= 1
}

func (e *ellipseResult) toBorder() *models.Border {
	return &models.Border{
		Type: models.BorderTypeEllipse,
		Ellipse: &models.EllipseBorder{
			CenterX:     e.centerX,
			CenterY:     e.centerY,
			Major:       e.major,
			Minor:       e.minor,
			RotationDeg: e.rotationDeg,
			Confidence:  e.confidence,
		},
	}
}
