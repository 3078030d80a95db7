package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yy0691/AI-Videos-Play/internal/api"
	apimiddleware "github.com/yy0691/AI-Videos-Play/internal/api/middleware"
)

// setupRouter builds the HTTP surface the UI layer consumes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.Trace)

	videoHandler := api.NewVideoHandler(app.videos, app.queue, app.logger)
	analysisHandler := api.NewAnalysisHandler(app.analyses, app.logger)
	jobHandler := api.NewJobHandler(app.sched, app.logger)
	syncHandler := api.NewSyncHandler(app.queue, app.logger)
	authHandler := api.NewAuthHandler(app.sessions, app.queue, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/session", authHandler.SignIn)
		r.Delete("/auth/session", authHandler.SignOut)

		r.Post("/videos", videoHandler.ImportVideo)
		r.Get("/videos", videoHandler.ListVideos)
		r.Get("/videos/{id}", videoHandler.GetVideo)
		r.Delete("/videos/{id}", videoHandler.DeleteVideo)

		r.Post("/videos/{id}/analyses", analysisHandler.SubmitAnalysis)
		r.Get("/videos/{id}/analyses", analysisHandler.ListAnalyses)

		r.Get("/jobs", jobHandler.ListJobs)
		r.Get("/jobs/stats", jobHandler.GetStats)
		r.Get("/jobs/{id}", jobHandler.GetJob)
		r.Delete("/jobs/{id}", jobHandler.CancelJob)

		r.Get("/sync/status", syncHandler.GetStatus)
		r.Post("/sync/drain", syncHandler.TriggerDrain)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
