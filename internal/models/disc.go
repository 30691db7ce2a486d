package models

import "time"

// DiscStatus is a small closed set of string constants stored verbatim in
// Postgres.
type DiscStatus string

const (
	DiscStatusRegistered DiscStatus = "registered"
	DiscStatusStolen     DiscStatus = "stolen"
	DiscStatusFound      DiscStatus = "found"
)

// UploadStatus tracks the pending->success lifecycle of a Disc's first image.
type UploadStatus string

const (
	UploadStatusPending UploadStatus = "pending"
	UploadStatusSuccess UploadStatus = "success"
)

// Disc is a logical record for one physical disc; it owns its photographs.
type Disc struct {
	ID            int64        `json:"id" db:"id"`
	OwnerName     string       `json:"owner_name" db:"owner_name"`
	OwnerContact  string       `json:"owner_contact" db:"owner_contact"`
	Status        DiscStatus   `json:"status" db:"status"`
	UploadStatus  UploadStatus `json:"upload_status" db:"upload_status"`
	ModelName     string       `json:"model_name,omitempty" db:"model_name"`
	Color         string       `json:"color,omitempty" db:"color"`
	Notes         string       `json:"notes,omitempty" db:"notes"`
	Location      string       `json:"location,omitempty" db:"location"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// DiscFilter narrows ListDiscs results. Zero-value fields are not applied.
type DiscFilter struct {
	Status       DiscStatus
	UploadStatus UploadStatus
	Limit        int
	Offset       int
}
