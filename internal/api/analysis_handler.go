package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
)

// AnalysisRequester schedules analyses and loads persisted results.
// Implemented by service.AnalysisService.
type AnalysisRequester interface {
	RequestAnalysis(ctx context.Context, videoID uuid.UUID, kind domain.AnalysisKind, params map[string]string) (*scheduler.Handle, error)
	ResultsFor(ctx context.Context, videoID uuid.UUID) ([]*domain.AnalysisResult, error)
}

// AnalysisHandler handles analysis submission and result retrieval.
type AnalysisHandler struct {
	service AnalysisRequester
	logger  *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(service AnalysisRequester, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service: service,
		logger:  logger.With(slog.String("component", "analysis_handler")),
	}
}

// SubmitAnalysisRequest is the body for POST /videos/{id}/analyses.
type SubmitAnalysisRequest struct {
	Kind   string            `json:"kind"   validate:"required,oneof=transcription summary translation key_info"`
	Params map[string]string `json:"params"`
}

// SubmitAnalysisResponse acknowledges an accepted analysis request.
type SubmitAnalysisResponse struct {
	JobID string `json:"job_id"`
}

// SubmitAnalysis handles POST /videos/{id}/analyses: schedules an
// analysis job and returns 202 with the job id. The job runs
// asynchronously; its progress is observable through the jobs endpoints.
func (h *AnalysisHandler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req SubmitAnalysisRequest
	if err := decodeAndValidate(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handle, err := h.service.RequestAnalysis(r.Context(), videoID, domain.AnalysisKind(req.Kind), req.Params)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitAnalysisResponse{JobID: handle.ID.String()})
}

// ListAnalyses handles GET /videos/{id}/analyses: returns the video's
// persisted results, newest first.
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	results, err := h.service.ResultsFor(r.Context(), videoID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	out := make([]AnalysisResultResponse, 0, len(results))
	for _, result := range results {
		out = append(out, analysisToResponse(result))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}
