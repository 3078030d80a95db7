// Package store defines the persistence interfaces for domain entities.
// Implementations live under internal/platform. Jobs are deliberately
// absent: they are ephemeral, in-memory records owned by the scheduler.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
)

// VideoStore persists library videos.
type VideoStore interface {
	// Create saves a new video. Returns ErrDuplicate if the id exists.
	Create(ctx context.Context, video *domain.Video) error

	// GetByID retrieves a video by id. Returns ErrVideoNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error)

	// List returns all videos, most recently created first.
	List(ctx context.Context) ([]*domain.Video, error)

	// Update overwrites a video's mutable fields and bumps UpdatedAt.
	// Returns ErrVideoNotFound if absent.
	Update(ctx context.Context, video *domain.Video) error

	// Delete removes a video and its analysis results.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AnalysisStore persists analysis results produced by completed jobs.
type AnalysisStore interface {
	// Save stores one analysis result.
	Save(ctx context.Context, result *domain.AnalysisResult) error

	// GetByVideo returns a video's analysis results, newest first.
	GetByVideo(ctx context.Context, videoID uuid.UUID) ([]*domain.AnalysisResult, error)
}
