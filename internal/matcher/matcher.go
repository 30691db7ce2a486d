// Package matcher is the orchestrator tying together normalization, border
// detection, cropping, encoding, the vector store, and blob storage into
// the service's register/confirm/cancel/find_matches operations.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/encoder"
	imagingpkg "github.com/your-org/discid/internal/imaging"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/internal/observability"
	"github.com/your-org/discid/internal/queue"
	"github.com/your-org/discid/internal/storage"
	"github.com/your-org/discid/internal/transform"
)

type Matcher struct {
	cfg      config.Config
	store    *storage.PostgresStore
	blobs    storage.BlobStore
	registry *encoder.Registry
	events   *queue.Producer
}

func New(cfg config.Config, store *storage.PostgresStore, blobs storage.BlobStore, registry *encoder.Registry, events *queue.Producer) *Matcher {
	return &Matcher{cfg: cfg, store: store, blobs: blobs, registry: registry, events: events}
}

// RegisterRequest carries the caller-supplied disc metadata and the raw
// bytes of a photograph. DiscID, if set, attaches the image to an existing
// disc instead of creating a new one.
type RegisterRequest struct {
	DiscID       *int64
	OwnerName    string
	OwnerContact string
	ModelName    string
	Color        string
	Notes        string
	Location     string
	ImageData    []byte
}

// Register runs the normalize->detect->crop->embed pipeline against
// req.ImageData and persists the result. If req.DiscID is absent, a new
// disc is created in "pending" upload state
// and owns the image; otherwise the image attaches to the existing disc.
// On any failure, any files already written are removed and — only when
// this call created the disc — the disc row is deleted too; a disc the
// caller supplied is left untouched.
func (m *Matcher) Register(ctx context.Context, req RegisterRequest) (*models.Disc, *models.DiscImage, error) {
	var disc *models.Disc
	createdDisc := false

	if req.DiscID != nil {
		var err error
		disc, err = m.store.GetDisc(ctx, *req.DiscID)
		if err != nil {
			return nil, nil, fmt.Errorf("register: %w", err)
		}
	} else {
		disc = &models.Disc{
			OwnerName:    req.OwnerName,
			OwnerContact: req.OwnerContact,
			ModelName:    req.ModelName,
			Color:        req.Color,
			Notes:        req.Notes,
			Location:     req.Location,
		}
		if err := m.store.CreateDisc(ctx, disc); err != nil {
			return nil, nil, fmt.Errorf("create disc: %w", err)
		}
		createdDisc = true
	}

	img, err := m.processAndStoreImage(ctx, disc.ID, req.ImageData)
	if err != nil {
		if createdDisc {
			if delErr := m.store.DeleteDisc(ctx, disc.ID); delErr != nil {
				slog.Warn("register: rollback delete disc failed", "disc_id", disc.ID, "error", delErr)
			}
		}
		return nil, nil, fmt.Errorf("process image: %w", err)
	}

	if createdDisc {
		observability.DiscsRegistered.Inc()
		m.publish(ctx, queue.EventRegistered, disc.ID, nil)
	}
	return disc, img, nil
}

// Confirm finalizes a pending disc, making it visible to find_matches.
func (m *Matcher) Confirm(ctx context.Context, discID int64) error {
	if err := m.store.UpdateUploadStatus(ctx, discID, models.UploadStatusSuccess); err != nil {
		return fmt.Errorf("confirm disc: %w", err)
	}
	m.publish(ctx, queue.EventConfirmed, discID, nil)
	return nil
}

// Cancel aborts a pending registration: the disc row, its image rows, and
// every blob it owns are removed. Only valid while the disc is still
// pending. Idempotent for already-deleted identities.
func (m *Matcher) Cancel(ctx context.Context, discID int64) error {
	disc, err := m.store.GetDisc(ctx, discID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("cancel: %w", err)
	}
	if disc.UploadStatus != models.UploadStatusPending {
		return fmt.Errorf("cancel: disc %d is not pending", discID)
	}

	if err := m.blobs.DeletePrefix(ctx, storage.DiscPrefix(m.cfg.Storage.UploadRoot, discID)); err != nil {
		return fmt.Errorf("cancel: delete blobs: %w", err)
	}
	if err := m.store.DeleteDisc(ctx, discID); err != nil {
		return fmt.Errorf("cancel: delete disc: %w", err)
	}
	m.publish(ctx, queue.EventCancelled, discID, nil)
	return nil
}

// AddImageToDisc processes and attaches an additional photograph to an
// existing disc, independent of that disc's current upload status.
func (m *Matcher) AddImageToDisc(ctx context.Context, discID int64, imageData []byte) (*models.DiscImage, error) {
	if _, err := m.store.GetDisc(ctx, discID); err != nil {
		return nil, fmt.Errorf("add image: %w", err)
	}
	return m.processAndStoreImage(ctx, discID, imageData)
}

func (m *Matcher) processAndStoreImage(ctx context.Context, discID int64, imageData []byte) (*models.DiscImage, error) {
	enc, err := m.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("load encoder: %w", err)
	}

	processed, err := process(imageData, m.cfg, enc)
	if err != nil {
		return nil, err
	}

	img := &models.DiscImage{
		DiscID:      discID,
		EncoderName: processed.encoderName,
		Embedding:   processed.embedding,
		Border:      processed.border,
	}
	if err := m.store.InsertImage(ctx, img); err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}

	originalKey := storage.OriginalKey(m.cfg.Storage.UploadRoot, discID, img.ID, "jpg")
	croppedKey := storage.CroppedKey(m.cfg.Storage.UploadRoot, discID, img.ID, "jpg")
	if err := m.blobs.Put(ctx, originalKey, imagingpkg.EncodeJPEG(processed.original, 90), "image/jpeg"); err != nil {
		m.rollbackImageRow(ctx, img.ID)
		return nil, fmt.Errorf("store original: %w", err)
	}
	if err := m.blobs.Put(ctx, croppedKey, imagingpkg.EncodeJPEG(processed.cropped, 90), "image/jpeg"); err != nil {
		_ = m.blobs.Delete(ctx, originalKey)
		m.rollbackImageRow(ctx, img.ID)
		return nil, fmt.Errorf("store cropped: %w", err)
	}
	img.OriginalPath = originalKey
	img.CroppedPath = croppedKey

	observability.ImagesRegistered.WithLabelValues(processed.encoderName).Inc()
	return img, nil
}

// rollbackImageRow deletes an inserted disc_images row after a subsequent
// file write failed, keeping the row and its blob in lockstep. Best-effort:
// a failure here leaves a recoverable orphan row.
func (m *Matcher) rollbackImageRow(ctx context.Context, imageID int64) {
	if err := m.store.DeleteImage(ctx, imageID); err != nil {
		slog.Warn("rollback delete image row failed", "image_id", imageID, "error", err)
	}
}

// FindMatches embeds a query photograph and returns up to topK candidate
// discs ranked by similarity, aggregated per disc by that disc's single
// best-matching image. Ties in similarity are broken toward
// the lower disc_id, for deterministic ordering across otherwise-identical
// scores. minSimilarity of 0 uses the configured default floor; statusFilter,
// if non-nil, restricts results to discs with that status.
func (m *Matcher) FindMatches(ctx context.Context, imageData []byte, topK int, minSimilarity float64, statusFilter *models.DiscStatus) ([]models.Match, error) {
	if topK <= 0 {
		topK = m.cfg.Matcher.DefaultTopK
	}
	if minSimilarity <= 0 {
		minSimilarity = m.cfg.Matcher.MinSimilarity
	}

	enc, err := m.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("load encoder: %w", err)
	}

	processed, err := process(imageData, m.cfg, enc)
	if err != nil {
		return nil, err
	}

	oversampled := topK * m.cfg.Matcher.Oversample
	rows, err := m.store.TopK(ctx, processed.embedding, processed.encoderName, oversampled, minSimilarity, statusFilter, m.cfg.Matcher.ANNThreshold)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	candidates := aggregateTopK(rows, topK)

	matches := make([]models.Match, 0, len(candidates))
	for _, c := range candidates {
		disc, err := m.store.GetDisc(ctx, c.DiscID)
		if err != nil {
			continue
		}
		matches = append(matches, models.Match{
			Disc:                *disc,
			Similarity:          c.Similarity,
			RepresentativeImage: c.ImageID,
			EncoderName:         processed.encoderName,
		})
	}

	observability.SearchesPerformed.WithLabelValues(processed.encoderName, resultLabel(len(matches))).Inc()
	m.publish(ctx, queue.EventSearched, 0, map[string]int{"result_count": len(matches)})

	return matches, nil
}

// aggregateTopK collapses per-image search rows down to one best row per
// disc, then ranks discs by that similarity, breaking ties toward the lower
// disc_id and truncating to topK.
func aggregateTopK(rows []models.StoreRow, topK int) []models.StoreRow {
	best := make(map[int64]models.StoreRow)
	for _, r := range rows {
		cur, ok := best[r.DiscID]
		if !ok || r.Similarity > cur.Similarity {
			best[r.DiscID] = r
		}
	}

	candidates := make([]models.StoreRow, 0, len(best))
	for _, r := range best {
		candidates = append(candidates, r)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].DiscID < candidates[j].DiscID
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func resultLabel(n int) string {
	if n == 0 {
		return "empty"
	}
	return "found"
}

func (m *Matcher) GetDisc(ctx context.Context, id int64) (*models.Disc, error) {
	return m.store.GetDisc(ctx, id)
}

// GetImage returns a disc_images row, for handlers serving original/cropped
// bytes by image ID.
func (m *Matcher) GetImage(ctx context.Context, imageID int64) (*models.DiscImage, error) {
	return m.store.GetImage(ctx, imageID)
}

// GetImageBlob reads the original or cropped bytes for an image from blob
// storage, keyed by the path recorded on its disc_images row.
func (m *Matcher) GetImageBlob(ctx context.Context, key string) ([]byte, error) {
	return m.blobs.Get(ctx, key)
}

func (m *Matcher) ListDiscs(ctx context.Context, filter models.DiscFilter) ([]models.Disc, error) {
	return m.store.ListDiscs(ctx, filter)
}

func (m *Matcher) UpdateStatus(ctx context.Context, id int64, status models.DiscStatus) error {
	return m.store.UpdateDiscStatus(ctx, id, status)
}

// DeleteDisc removes a disc, its image rows, and every blob it owns.
func (m *Matcher) DeleteDisc(ctx context.Context, id int64) error {
	if err := m.blobs.DeletePrefix(ctx, storage.DiscPrefix(m.cfg.Storage.UploadRoot, id)); err != nil {
		return fmt.Errorf("delete disc: delete blobs: %w", err)
	}
	return m.store.DeleteDisc(ctx, id)
}

// UpdateBorder applies a caller-supplied border (or nil, to discard any
// detection and fall back to the full frame) to an existing image: it
// re-crops the already-stored original and re-embeds the result, so
// reprocessing stays deterministic from the persisted border record alone.
// Unlike Register, this never re-uploads bytes: the original is read back
// from the blob store by its recorded path.
func (m *Matcher) UpdateBorder(ctx context.Context, imageID int64, manual *models.Border) (*models.DiscImage, error) {
	existing, err := m.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("update border: %w", err)
	}

	enc, err := m.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("load encoder: %w", err)
	}

	originalData, err := m.blobs.Get(ctx, existing.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("load original: %w", err)
	}
	img, err := imagingpkg.Normalize(originalData, m.cfg.Matcher.MaxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	cropped := transform.Apply(img, manual)

	embedding, err := enc.Embed(cropped)
	if err != nil && !errors.Is(err, encoder.ErrDegenerateEmbedding) {
		embedding, err = enc.Embed(cropped)
	}
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	embedding = encoder.PadToWidth(embedding, m.cfg.Encoder.DMax)

	croppedKey := storage.CroppedKey(m.cfg.Storage.UploadRoot, existing.DiscID, imageID, "jpg")
	if err := m.blobs.Put(ctx, croppedKey, imagingpkg.EncodeJPEG(cropped, 90), "image/jpeg"); err != nil {
		return nil, fmt.Errorf("store cropped: %w", err)
	}

	if err := m.store.UpdateImageBorder(ctx, imageID, manual, croppedKey, embedding); err != nil {
		return nil, fmt.Errorf("update image row: %w", err)
	}

	existing.Border = manual
	existing.CroppedPath = croppedKey
	existing.Embedding = embedding
	return existing, nil
}

func (m *Matcher) publish(ctx context.Context, kind queue.EventKind, discID int64, payload interface{}) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, kind, discID, payload); err != nil {
		slog.Warn("publish domain event failed", "kind", kind, "disc_id", discID, "error", err)
	}
}
