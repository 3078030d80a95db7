// Package postgres implements the store interfaces using PostgreSQL via
// the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/store"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// VideoStore implements store.VideoStore backed by PostgreSQL.
type VideoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewVideoStore creates a PostgreSQL VideoStore. The caller owns the
// database handle or transaction.
func NewVideoStore(db store.DBTX, logger *slog.Logger) *VideoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_store")),
	}
}

var _ store.VideoStore = (*VideoStore)(nil)

// Create implements store.VideoStore.Create.
func (s *VideoStore) Create(ctx context.Context, video *domain.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO videos (id, title, file_path, size_bytes, duration_ms, mime_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		video.ID,
		video.Title,
		video.FilePath,
		video.SizeBytes,
		video.Duration.Milliseconds(),
		video.MimeType,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", store.ErrDuplicate, video.ID)
		}
		s.logger.Error("failed to create video", "video_id", video.ID, "error", err)
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetByID implements store.VideoStore.GetByID.
func (s *VideoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	query := `
		SELECT id, title, file_path, size_bytes, duration_ms, mime_type, created_at, updated_at
		FROM videos
		WHERE id = $1
	`
	video, err := scanVideo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVideoNotFound
		}
		s.logger.Error("failed to get video", "video_id", id, "error", err)
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

// List implements store.VideoStore.List.
func (s *VideoStore) List(ctx context.Context) ([]*domain.Video, error) {
	query := `
		SELECT id, title, file_path, size_bytes, duration_ms, mime_type, created_at, updated_at
		FROM videos
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var videos []*domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate video rows: %w", err)
	}
	return videos, nil
}

// Update implements store.VideoStore.Update.
func (s *VideoStore) Update(ctx context.Context, video *domain.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE videos
		SET title = $1, file_path = $2, size_bytes = $3, duration_ms = $4, mime_type = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		video.Title,
		video.FilePath,
		video.SizeBytes,
		video.Duration.Milliseconds(),
		video.MimeType,
		video.ID,
	)
	if err != nil {
		s.logger.Error("failed to update video", "video_id", video.ID, "error", err)
		return fmt.Errorf("failed to update video: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrVideoNotFound
	}
	return nil
}

// Delete implements store.VideoStore.Delete. Analysis results cascade via
// the foreign key.
func (s *VideoStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete video", "video_id", id, "error", err)
		return fmt.Errorf("failed to delete video: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrVideoNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var (
		video      domain.Video
		durationMS int64
	)
	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.FilePath,
		&video.SizeBytes,
		&durationMS,
		&video.MimeType,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	video.Duration = time.Duration(durationMS) * time.Millisecond
	return &video, nil
}
