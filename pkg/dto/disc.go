// Package dto holds the JSON wire types for the HTTP API, kept separate
// from internal/models so storage concerns (db tags, pgvector types) never
// leak into the service boundary.
package dto

import (
	"time"

	"github.com/your-org/discid/internal/models"
)

type DiscResponse struct {
	ID           int64            `json:"id"`
	OwnerName    string           `json:"owner_name"`
	OwnerContact string           `json:"owner_contact"`
	Status       models.DiscStatus `json:"status"`
	UploadStatus models.UploadStatus `json:"upload_status"`
	ModelName    string           `json:"model_name,omitempty"`
	Color        string           `json:"color,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Location     string           `json:"location,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

func DiscToResponse(d *models.Disc) DiscResponse {
	return DiscResponse{
		ID:           d.ID,
		OwnerName:    d.OwnerName,
		OwnerContact: d.OwnerContact,
		Status:       d.Status,
		UploadStatus: d.UploadStatus,
		ModelName:    d.ModelName,
		Color:        d.Color,
		Notes:        d.Notes,
		Location:     d.Location,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

type DiscImageResponse struct {
	ID           int64          `json:"id"`
	DiscID       int64          `json:"disc_id"`
	EncoderName  string         `json:"encoder_name"`
	OriginalPath string         `json:"original_path"`
	CroppedPath  string         `json:"cropped_path,omitempty"`
	Border       *models.Border `json:"border,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

func DiscImageToResponse(img *models.DiscImage) DiscImageResponse {
	return DiscImageResponse{
		ID:           img.ID,
		DiscID:       img.DiscID,
		EncoderName:  img.EncoderName,
		OriginalPath: img.OriginalPath,
		CroppedPath:  img.CroppedPath,
		Border:       img.Border,
		CreatedAt:    img.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterResponse is returned by POST /v1/discs: the newly created (or
// attached-to) disc plus the image row just processed.
type RegisterResponse struct {
	Disc  DiscResponse      `json:"disc"`
	Image DiscImageResponse `json:"image"`
}

type MatchResponse struct {
	Disc                DiscResponse `json:"disc"`
	Similarity          float64      `json:"similarity"`
	RepresentativeImage int64        `json:"representative_image_id"`
	EncoderName         string       `json:"encoder_name"`
}

func MatchToResponse(m *models.Match) MatchResponse {
	return MatchResponse{
		Disc:                DiscToResponse(&m.Disc),
		Similarity:          m.Similarity,
		RepresentativeImage: m.RepresentativeImage,
		EncoderName:         m.EncoderName,
	}
}

// UpdateStatusRequest is the JSON body of PATCH /v1/discs/:id/status.
type UpdateStatusRequest struct {
	Status models.DiscStatus `json:"status" binding:"required"`
}

// UpdateBorderRequest is the JSON body of PUT
// /v1/discs/images/:imageId/border: the original upload is re-read from
// blob storage and re-cropped, no image bytes travel with this request.
// Border is nil to discard any existing detection and fall back to the
// full frame.
type UpdateBorderRequest struct {
	Border *models.Border `json:"border"`
}
