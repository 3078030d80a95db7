// Package api provides the HTTP handlers the UI layer talks to.
package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/store"
)

// SyncEnqueuer marks an entity dirty for account sync.
type SyncEnqueuer interface {
	Enqueue(entityID uuid.UUID)
}

// VideoHandler handles library video requests.
type VideoHandler struct {
	videos   store.VideoStore
	queue    SyncEnqueuer
	logger   *slog.Logger
	statFile func(name string) (os.FileInfo, error)
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(videos store.VideoStore, queue SyncEnqueuer, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		videos:   videos,
		queue:    queue,
		logger:   logger.With(slog.String("component", "video_handler")),
		statFile: os.Stat,
	}
}

// ImportVideoRequest is the body for POST /videos.
type ImportVideoRequest struct {
	Title    string `json:"title"     validate:"required,max=500"`
	FilePath string `json:"file_path" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
}

// ImportVideo handles POST /videos: registers a local media file in the
// library.
func (h *VideoHandler) ImportVideo(w http.ResponseWriter, r *http.Request) {
	var req ImportVideoRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.statFile(req.FilePath)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Media file is not accessible", err)
		return
	}

	video, err := domain.NewVideo(req.Title, req.FilePath, info.Size(), req.MimeType)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.videos.Create(r.Context(), video); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.queue.Enqueue(video.ID)
	h.logger.Info("video imported", "video_id", video.ID, "size_bytes", video.SizeBytes)
	shared.RespondWithJSON(w, r, http.StatusCreated, videoToResponse(video))
}

// ListVideos handles GET /videos.
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list videos", err)
		return
	}

	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoToResponse(v))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// GetVideo handles GET /videos/{id}.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	video, err := h.videos.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, videoToResponse(video))
}

// DeleteVideo handles DELETE /videos/{id}. Analysis results are removed
// with the video.
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.videos.Delete(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("video deleted", "video_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// parseIDParam extracts and parses the {id} path parameter, responding
// with 400 on malformed input.
func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
