package models

import "time"

// DiscImage is one photograph attached to a Disc, together with the
// embedding produced for it under a specific encoder. (disc, encoder) may
// repeat: multiple photographs of the same disc under the same encoder are
// expected and encouraged.
type DiscImage struct {
	ID           int64     `json:"id" db:"id"`
	DiscID       int64     `json:"disc_id" db:"disc_id"`
	EncoderName  string    `json:"encoder_name" db:"encoder_name"`
	Embedding    []float32 `json:"-" db:"embedding"`
	OriginalPath string    `json:"original_path" db:"original_path"`
	CroppedPath  string    `json:"cropped_path,omitempty" db:"cropped_path"`
	Border       *Border   `json:"border,omitempty" db:"border"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Match is one ranked result from Matcher.FindMatches: a disc, its best
// matching photograph, and the similarity that earned it that rank.
type Match struct {
	Disc                Disc    `json:"disc"`
	Similarity          float64 `json:"similarity"`
	RepresentativeImage int64   `json:"representative_image_id"`
	EncoderName         string  `json:"encoder_name"`
}

// StoreRow is what the vector store returns per image row from TopK, before
// per-disc aggregation happens in the matcher.
type StoreRow struct {
	ImageID    int64
	DiscID     int64
	Similarity float64
}
