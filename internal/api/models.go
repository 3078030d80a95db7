package api

import (
	"time"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
	"github.com/yy0691/AI-Videos-Play/internal/syncqueue"
)

// VideoResponse is the client representation of a library video.
type VideoResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FilePath   string    `json:"file_path"`
	SizeBytes  int64     `json:"size_bytes"`
	DurationMS int64     `json:"duration_ms"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func videoToResponse(v *domain.Video) VideoResponse {
	return VideoResponse{
		ID:         v.ID.String(),
		Title:      v.Title,
		FilePath:   v.FilePath,
		SizeBytes:  v.SizeBytes,
		DurationMS: v.Duration.Milliseconds(),
		MimeType:   v.MimeType,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// JobResponse is the client representation of a scheduled job.
type JobResponse struct {
	ID         string     `json:"id"`
	VideoID    string     `json:"video_id"`
	Kind       string     `json:"kind"`
	State      string     `json:"state"`
	Progress   int        `json:"progress"`
	StageLabel string     `json:"stage_label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func jobToResponse(j scheduler.Job) JobResponse {
	return JobResponse{
		ID:         j.ID.String(),
		VideoID:    j.SubjectID.String(),
		Kind:       string(j.Kind),
		State:      string(j.State),
		Progress:   j.Progress,
		StageLabel: j.StageLabel,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		EndedAt:    j.EndedAt,
		Error:      j.Error,
	}
}

func jobsToResponse(jobs []scheduler.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToResponse(j))
	}
	return out
}

// AnalysisResultResponse is the client representation of a persisted
// analysis result.
type AnalysisResultResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func analysisToResponse(r *domain.AnalysisResult) AnalysisResultResponse {
	return AnalysisResultResponse{
		ID:        r.ID.String(),
		VideoID:   r.VideoID.String(),
		Kind:      string(r.Kind),
		Text:      r.Text,
		Language:  r.Language,
		Model:     r.Model,
		CreatedAt: r.CreatedAt,
	}
}

// SyncStatusResponse is the client representation of the sync queue
// snapshot.
type SyncStatusResponse struct {
	Status       string     `json:"status"`
	QueueLength  int        `json:"queue_length"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

func syncStatusToResponse(s syncqueue.Snapshot) SyncStatusResponse {
	resp := SyncStatusResponse{
		Status:      string(s.Status),
		QueueLength: s.QueueLength,
	}
	if !s.LastSyncTime.IsZero() {
		t := s.LastSyncTime
		resp.LastSyncTime = &t
	}
	if s.LastError != "" {
		resp.LastError = s.LastError
	}
	return resp
}
