package storage

import (
	"fmt"

	"github.com/your-org/discid/internal/config"
)

// NewBlobStore builds the configured BlobStore backend. "minio" is the
// default; "local" is available for development setups without MinIO.
func NewBlobStore(cfg config.Config) (BlobStore, error) {
	switch cfg.Storage.Backend {
	case "local":
		return NewLocalStore(cfg.Storage.UploadRoot)
	case "minio", "":
		return NewMinIOStore(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
