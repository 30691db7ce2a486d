// Package storage implements the pgvector-backed vector store and the blob
// store for original/cropped images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/discid/internal/config"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/internal/observability"
)

// ErrNotFound is returned when a disc or image lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Discs ---

// CreateDisc inserts a new disc row in "pending" upload state: a disc
// exists before its first image finishes processing.
func (s *PostgresStore) CreateDisc(ctx context.Context, d *models.Disc) error {
	d.Status = models.DiscStatusRegistered
	d.UploadStatus = models.UploadStatusPending
	return s.pool.QueryRow(ctx,
		`INSERT INTO discs (owner_name, owner_contact, status, upload_status, model_name, color, notes, location)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		d.OwnerName, d.OwnerContact, d.Status, d.UploadStatus, d.ModelName, d.Color, d.Notes, d.Location,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (s *PostgresStore) GetDisc(ctx context.Context, id int64) (*models.Disc, error) {
	d := &models.Disc{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_name, owner_contact, status, upload_status, model_name, color, notes, location, created_at, updated_at
		 FROM discs WHERE id = $1`, id,
	).Scan(&d.ID, &d.OwnerName, &d.OwnerContact, &d.Status, &d.UploadStatus,
		&d.ModelName, &d.Color, &d.Notes, &d.Location, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get disc: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDiscs(ctx context.Context, filter models.DiscFilter) ([]models.Disc, error) {
	query := `SELECT id, owner_name, owner_contact, status, upload_status, model_name, color, notes, location, created_at, updated_at
	          FROM discs WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.UploadStatus != "" {
		query += fmt.Sprintf(" AND upload_status = $%d", argIdx)
		args = append(args, filter.UploadStatus)
		argIdx++
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discs: %w", err)
	}
	defer rows.Close()

	var discs []models.Disc
	for rows.Next() {
		var d models.Disc
		if err := rows.Scan(&d.ID, &d.OwnerName, &d.OwnerContact, &d.Status, &d.UploadStatus,
			&d.ModelName, &d.Color, &d.Notes, &d.Location, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan disc: %w", err)
		}
		discs = append(discs, d)
	}
	return discs, nil
}

func (s *PostgresStore) UpdateDiscStatus(ctx context.Context, id int64, status models.DiscStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE discs SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update disc status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUploadStatus(ctx context.Context, id int64, status models.UploadStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE discs SET upload_status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDisc removes a disc and, via the schema's ON DELETE CASCADE, every
// disc_images row referencing it.
func (s *PostgresStore) DeleteDisc(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM discs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete disc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Disc images / embeddings ---

func (s *PostgresStore) InsertImage(ctx context.Context, img *models.DiscImage) error {
	vec := pgvector.NewVector(img.Embedding)
	var borderJSON []byte
	if img.Border != nil {
		data, err := img.Border.Value()
		if err != nil {
			return err
		}
		borderJSON = data
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO disc_images (disc_id, encoder_name, embedding, original_path, cropped_path, border)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		img.DiscID, img.EncoderName, vec, img.OriginalPath, img.CroppedPath, borderJSON,
	).Scan(&img.ID, &img.CreatedAt)
}

func (s *PostgresStore) GetImage(ctx context.Context, imageID int64) (*models.DiscImage, error) {
	img := &models.DiscImage{}
	var borderJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, disc_id, encoder_name, original_path, cropped_path, border, created_at
		 FROM disc_images WHERE id = $1`, imageID,
	).Scan(&img.ID, &img.DiscID, &img.EncoderName, &img.OriginalPath, &img.CroppedPath, &borderJSON, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	img.Border, err = models.ParseBorder(borderJSON)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// UpdateImageBorder overwrites an image row's border, cropped path, and
// embedding after a manual border correction. The original path and
// creation time are left untouched.
func (s *PostgresStore) UpdateImageBorder(ctx context.Context, imageID int64, border *models.Border, croppedPath string, embedding []float32) error {
	var borderJSON []byte
	if border != nil {
		data, err := border.Value()
		if err != nil {
			return err
		}
		borderJSON = data
	}
	vec := pgvector.NewVector(embedding)
	tag, err := s.pool.Exec(ctx,
		`UPDATE disc_images SET border = $1, cropped_path = $2, embedding = $3 WHERE id = $4`,
		borderJSON, croppedPath, vec, imageID,
	)
	if err != nil {
		return fmt.Errorf("update image border: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, imageID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM disc_images WHERE id = $1`, imageID)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListImagesForDisc(ctx context.Context, discID int64) ([]models.DiscImage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, disc_id, encoder_name, original_path, cropped_path, border, created_at
		 FROM disc_images WHERE disc_id = $1 ORDER BY created_at ASC`, discID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []models.DiscImage
	for rows.Next() {
		var img models.DiscImage
		var borderJSON []byte
		if err := rows.Scan(&img.ID, &img.DiscID, &img.EncoderName, &img.OriginalPath, &img.CroppedPath, &borderJSON, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		border, err := models.ParseBorder(borderJSON)
		if err != nil {
			return nil, err
		}
		img.Border = border
		images = append(images, img)
	}
	return images, nil
}

// countRows reports how many disc_images rows exist for the given encoder,
// used to pick between the ANN index and a full linear scan.
func (s *PostgresStore) countRows(ctx context.Context, encoderName string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM disc_images WHERE encoder_name = $1`, encoderName,
	).Scan(&count)
	return count, err
}

// TopK returns up to k disc_images rows whose embedding is closest to query
// under cosine distance and whose similarity is at least minSimilarity,
// restricted to encoderName and to discs whose upload has completed.
// Ties in similarity are broken toward the lower image_id. statusFilter, if
// non-nil, additionally restricts to discs with that status: status is a
// plain optional post-filter with no implicit ranking effect. Below
// annThreshold rows for this encoder, the planner is nudged toward a
// sequential scan since pgvector's ANN index only pays off once the table
// is large enough for approximate search to beat an exact linear one.
func (s *PostgresStore) TopK(ctx context.Context, query []float32, encoderName string, k int, minSimilarity float64, statusFilter *models.DiscStatus, annThreshold int) ([]models.StoreRow, error) {
	start := time.Now()
	defer func() {
		observability.StoreQueryDuration.WithLabelValues("top_k").Observe(time.Since(start).Seconds())
	}()

	vec := pgvector.NewVector(query)

	n, err := s.countRows(ctx, encoderName)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if n < annThreshold {
		if _, err := tx.Exec(ctx, `SET LOCAL enable_indexscan = off`); err != nil {
			return nil, fmt.Errorf("force seq scan: %w", err)
		}
	}

	query_ := `SELECT di.id, di.disc_id, 1 - (di.embedding <=> $1) AS similarity
		 FROM disc_images di
		 JOIN discs d ON d.id = di.disc_id
		 WHERE di.encoder_name = $2
		   AND d.upload_status = 'success'
		   AND 1 - (di.embedding <=> $1) >= $3`
	args := []interface{}{vec, encoderName, minSimilarity}
	if statusFilter != nil {
		query_ += ` AND d.status = $4`
		args = append(args, string(*statusFilter))
	}
	query_ += fmt.Sprintf(` ORDER BY di.embedding <=> $1, di.id LIMIT $%d`, len(args)+1)
	args = append(args, k)

	rows, err := tx.Query(ctx, query_, args...)
	if err != nil {
		return nil, fmt.Errorf("top_k query: %w", err)
	}
	defer rows.Close()

	var results []models.StoreRow
	for rows.Next() {
		var r models.StoreRow
		if err := rows.Scan(&r.ImageID, &r.DiscID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan top_k row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, tx.Commit(ctx)
}
