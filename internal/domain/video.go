package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Video
var (
	ErrEmptyVideoID     = errors.New("video ID cannot be empty")
	ErrEmptyVideoTitle  = errors.New("video title cannot be empty")
	ErrEmptyVideoPath   = errors.New("video file path cannot be empty")
	ErrInvalidVideoSize = errors.New("video size must be positive")
)

// Video represents one library item: a locally imported media file that
// analysis jobs operate on.
type Video struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	FilePath  string        `json:"file_path"`
	SizeBytes int64         `json:"size_bytes"`
	Duration  time.Duration `json:"duration"`
	MimeType  string        `json:"mime_type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewVideo creates a Video for a newly imported media file. It generates
// the ID and timestamps and validates the result.
func NewVideo(title, filePath string, sizeBytes int64, mimeType string) (*Video, error) {
	now := time.Now().UTC()
	video := &Video{
		ID:        uuid.New(),
		Title:     title,
		FilePath:  filePath,
		SizeBytes: sizeBytes,
		MimeType:  mimeType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := video.Validate(); err != nil {
		return nil, err
	}

	return video, nil
}

// Validate checks that the video satisfies all domain invariants.
func (v *Video) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyVideoID
	}
	if v.Title == "" {
		return ErrEmptyVideoTitle
	}
	if v.FilePath == "" {
		return ErrEmptyVideoPath
	}
	if v.SizeBytes <= 0 {
		return ErrInvalidVideoSize
	}
	return nil
}
