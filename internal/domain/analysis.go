package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AnalysisKind identifies which analysis a job performs on a video.
type AnalysisKind string

// Supported analysis kinds.
const (
	AnalysisKindTranscription AnalysisKind = "transcription"
	AnalysisKindSummary       AnalysisKind = "summary"
	AnalysisKindTranslation   AnalysisKind = "translation"
	AnalysisKindKeyInfo       AnalysisKind = "key_info"
)

// Common validation errors for AnalysisResult
var (
	ErrInvalidAnalysisKind = errors.New("invalid analysis kind")
	ErrEmptyAnalysisText   = errors.New("analysis text cannot be empty")
)

// Valid reports whether the kind is one of the supported variants.
func (k AnalysisKind) Valid() bool {
	switch k {
	case AnalysisKindTranscription, AnalysisKindSummary, AnalysisKindTranslation, AnalysisKindKeyInfo:
		return true
	default:
		return false
	}
}

// AnalysisResult is the output of one completed analysis job, persisted
// alongside its video.
type AnalysisResult struct {
	ID        uuid.UUID    `json:"id"`
	VideoID   uuid.UUID    `json:"video_id"`
	Kind      AnalysisKind `json:"kind"`
	Text      string       `json:"text"`
	Language  string       `json:"language,omitempty"`
	Model     string       `json:"model,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewAnalysisResult creates a validated AnalysisResult for a video.
func NewAnalysisResult(videoID uuid.UUID, kind AnalysisKind, text, language, model string) (*AnalysisResult, error) {
	result := &AnalysisResult{
		ID:        uuid.New(),
		VideoID:   videoID,
		Kind:      kind,
		Text:      text,
		Language:  language,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate checks that the result satisfies all domain invariants.
func (r *AnalysisResult) Validate() error {
	if r.VideoID == uuid.Nil {
		return ErrEmptyVideoID
	}
	if !r.Kind.Valid() {
		return ErrInvalidAnalysisKind
	}
	if r.Text == "" {
		return ErrEmptyAnalysisText
	}
	return nil
}
