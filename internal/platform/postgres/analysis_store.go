package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/store"
)

// AnalysisStore implements store.AnalysisStore backed by PostgreSQL.
type AnalysisStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAnalysisStore creates a PostgreSQL AnalysisStore.
func NewAnalysisStore(db store.DBTX, logger *slog.Logger) *AnalysisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisStore{
		db:     db,
		logger: logger.With(slog.String("component", "analysis_store")),
	}
}

var _ store.AnalysisStore = (*AnalysisStore)(nil)

// Save implements store.AnalysisStore.Save.
func (s *AnalysisStore) Save(ctx context.Context, result *domain.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO analysis_results (id, video_id, kind, text, language, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		result.ID,
		result.VideoID,
		result.Kind,
		result.Text,
		result.Language,
		result.Model,
		result.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to save analysis result",
			"result_id", result.ID,
			"video_id", result.VideoID,
			"error", err)
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

// GetByVideo implements store.AnalysisStore.GetByVideo.
func (s *AnalysisStore) GetByVideo(ctx context.Context, videoID uuid.UUID) ([]*domain.AnalysisResult, error) {
	query := `
		SELECT id, video_id, kind, text, language, model, created_at
		FROM analysis_results
		WHERE video_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*domain.AnalysisResult
	for rows.Next() {
		var r domain.AnalysisResult
		if err := rows.Scan(&r.ID, &r.VideoID, &r.Kind, &r.Text, &r.Language, &r.Model, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result row: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis result rows: %w", err)
	}
	return results, nil
}
