package models

import (
	"encoding/json"
	"fmt"
)

// BorderType tags which variant a Border record holds.
type BorderType string

const (
	BorderTypeCircle  BorderType = "circle"
	BorderTypeEllipse BorderType = "ellipse"
)

// Border is a sum type: either a Circle or an Ellipse outline of the disc
// within its photograph. Exactly one of Circle or Ellipse is populated,
// selected by Type. It round-trips through a single JSONB column, decoded
// into a concrete Go type rather than left opaque, since downstream code
// (the mask/crop transform) must branch on it.
type Border struct {
	Type    BorderType     `json:"type"`
	Circle  *CircleBorder  `json:"circle,omitempty"`
	Ellipse *EllipseBorder `json:"ellipse,omitempty"`
}

// CircleBorder is a detected circular disc outline in original-image pixel
// coordinates.
type CircleBorder struct {
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Radius     float64 `json:"radius"`
	Confidence float64 `json:"confidence"`
}

// EllipseBorder is a detected elliptical disc outline, used when the disc
// is photographed at an angle. Major >= Minor; RotationDeg is measured from
// the image's x-axis.
type EllipseBorder struct {
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	Major       float64 `json:"major"`
	Minor       float64 `json:"minor"`
	RotationDeg float64 `json:"rotation_deg"`
	Confidence  float64 `json:"confidence"`
}

// Confidence returns the detection confidence of whichever variant is set.
func (b *Border) Confidence() float64 {
	if b == nil {
		return 0
	}
	switch b.Type {
	case BorderTypeCircle:
		if b.Circle != nil {
			return b.Circle.Confidence
		}
	case BorderTypeEllipse:
		if b.Ellipse != nil {
			return b.Ellipse.Confidence
		}
	}
	return 0
}

// MarshalJSON and UnmarshalJSON are the default struct encodings; Border is
// declared here mainly so callers have one named type to pass to the
// storage layer's JSONB column instead of a raw map.

// Value implements driver.Valuer-like encoding for hand-rolled SQL scanning
// (pgx scans into []byte/json.RawMessage and we decode explicitly in the
// store, so this is just a convenience encoder).
func (b *Border) Value() (json.RawMessage, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal border: %w", err)
	}
	return data, nil
}

// ParseBorder decodes a JSONB column value into a Border. A nil/empty input
// is a valid "no border detected" result.
func ParseBorder(data []byte) (*Border, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var b Border
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal border: %w", err)
	}
	return &b, nil
}
