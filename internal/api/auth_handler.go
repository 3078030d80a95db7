package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
)

// SessionManager installs and clears the sync account session.
// Implemented by auth.SessionService.
type SessionManager interface {
	SignIn(ctx context.Context, token string) error
	SignOut(ctx context.Context)
}

// AuthHandler handles session requests.
type AuthHandler struct {
	sessions SessionManager
	queue    SyncQueue
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sessions SessionManager, queue SyncQueue, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessions: sessions,
		queue:    queue,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// SignInRequest is the body for POST /auth/session.
type SignInRequest struct {
	Token string `json:"token" validate:"required"`
}

// SignIn handles POST /auth/session: installs the session token issued
// by the sync service. A fresh session unblocks the sync queue, so a
// drain attempt is triggered on success.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.SignIn(r.Context(), req.Token); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.queue.NotifyOnline()
	w.WriteHeader(http.StatusNoContent)
}

// SignOut handles DELETE /auth/session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
