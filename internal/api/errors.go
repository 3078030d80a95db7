package api

import (
	"errors"
	"net/http"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
	"github.com/yy0691/AI-Videos-Play/internal/service/auth"
	"github.com/yy0691/AI-Videos-Play/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrVideoNotFound),
		errors.Is(err, store.ErrAnalysisNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, scheduler.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidAnalysisKind),
		errors.Is(err, domain.ErrEmptyVideoTitle),
		errors.Is(err, domain.ErrEmptyVideoPath),
		errors.Is(err, domain.ErrInvalidVideoSize):
		return http.StatusBadRequest

	case errors.Is(err, scheduler.ErrSchedulerClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Session expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSession):
		return "Invalid session token"
	case errors.Is(err, store.ErrVideoNotFound):
		return "Video not found"
	case errors.Is(err, store.ErrAnalysisNotFound):
		return "Analysis not found"
	case errors.Is(err, scheduler.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, store.ErrDuplicate):
		return "Video already exists"
	case errors.Is(err, domain.ErrInvalidAnalysisKind):
		return "Invalid analysis kind"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyVideoTitle),
		errors.Is(err, domain.ErrEmptyVideoPath),
		errors.Is(err, domain.ErrInvalidVideoSize):
		return "Invalid entity data"
	case errors.Is(err, scheduler.ErrSchedulerClosed):
		return "Service is shutting down"
	default:
		return "An unexpected error occurred"
	}
}
