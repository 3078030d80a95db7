package api

import (
	"log/slog"
	"net/http"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
	"github.com/yy0691/AI-Videos-Play/internal/syncqueue"
)

// SyncQueue exposes the sync queue's status and triggers. Implemented by
// syncqueue.Queue.
type SyncQueue interface {
	Status() syncqueue.Snapshot
	NotifyOnline()
}

// SyncHandler handles sync status and drain trigger requests.
type SyncHandler struct {
	queue  SyncQueue
	logger *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(queue SyncQueue, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		queue:  queue,
		logger: logger.With(slog.String("component", "sync_handler")),
	}
}

// GetStatus handles GET /sync/status.
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, syncStatusToResponse(h.queue.Status()))
}

// TriggerDrain handles POST /sync/drain: requests an asynchronous drain
// attempt, e.g. after the OS reports connectivity returned.
func (h *SyncHandler) TriggerDrain(w http.ResponseWriter, r *http.Request) {
	h.queue.NotifyOnline()
	w.WriteHeader(http.StatusAccepted)
}
