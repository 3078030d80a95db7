// Package service contains application services gluing the domain,
// scheduler, transport, and persistence layers together.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
	"github.com/yy0691/AI-Videos-Play/internal/platform/logger"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
	"github.com/yy0691/AI-Videos-Play/internal/store"
	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

// Submitter delivers a payload to the analysis provider. Implemented by
// transport.Router.
type Submitter interface {
	Submit(ctx context.Context, payload transport.Payload, opts transport.Options) (*transport.ProviderResult, error)
}

// SyncEnqueuer records that an entity changed locally and needs to be
// pushed to the account. Implemented by syncqueue.Queue.
type SyncEnqueuer interface {
	Enqueue(entityID uuid.UUID)
}

// Overall-progress windows for the submission stages. Stage labels come
// from the transport router.
const (
	compressFrom = 0
	compressTo   = 45
	uploadFrom   = 45
	uploadTo     = 70
	submitFrom   = 70
	submitTo     = 100
)

// AnalysisService runs analyses over library videos: it builds the work
// unit for each request, schedules it, and persists and syncs results.
type AnalysisService struct {
	logger   *slog.Logger
	videos   store.VideoStore
	analyses store.AnalysisStore
	sched    *scheduler.Scheduler
	router   Submitter
	queue    SyncEnqueuer
	readFile func(name string) ([]byte, error)
}

// NewAnalysisService creates an AnalysisService with the given
// dependencies. All dependencies are required.
func NewAnalysisService(
	videos store.VideoStore,
	analyses store.AnalysisStore,
	sched *scheduler.Scheduler,
	router Submitter,
	queue SyncEnqueuer,
	log *slog.Logger,
) (*AnalysisService, error) {
	if videos == nil {
		return nil, errors.New("video store cannot be nil")
	}
	if analyses == nil {
		return nil, errors.New("analysis store cannot be nil")
	}
	if sched == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if router == nil {
		return nil, errors.New("router cannot be nil")
	}
	if queue == nil {
		return nil, errors.New("sync queue cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnalysisService{
		logger:   log.With(slog.String("component", "analysis_service")),
		videos:   videos,
		analyses: analyses,
		sched:    sched,
		router:   router,
		queue:    queue,
		readFile: os.ReadFile,
	}, nil
}

// RequestAnalysis schedules an analysis of the given kind for a video
// and returns the job handle. The job runs when the scheduler admits it;
// the returned handle can be awaited or observed through subscriptions.
func (s *AnalysisService) RequestAnalysis(ctx context.Context, videoID uuid.UUID, kind domain.AnalysisKind, params map[string]string) (*scheduler.Handle, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAnalysisKind, kind)
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	handle, err := s.sched.Submit(video.ID, kind, s.workUnit(video, kind, params))
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("analysis scheduled",
		"job_id", handle.ID,
		"video_id", video.ID,
		"kind", kind)
	return handle, nil
}

// workUnit builds the job body: read the media file, submit it through
// the transport router, persist the result, and mark the video for sync.
func (s *AnalysisService) workUnit(video *domain.Video, kind domain.AnalysisKind, params map[string]string) scheduler.WorkFunc {
	return func(ctx context.Context, progress *scheduler.Reporter) (*domain.AnalysisResult, error) {
		data, err := s.readFile(video.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read media file %s: %w", video.FilePath, err)
		}

		providerResult, err := s.router.Submit(ctx, transport.Payload{
			Data:     data,
			MimeType: video.MimeType,
		}, transport.Options{
			Kind:       string(kind),
			Params:     params,
			OnProgress: stageMapper(progress),
		})
		if err != nil {
			return nil, err
		}

		result, err := domain.NewAnalysisResult(video.ID, kind, providerResult.Text, providerResult.Language, providerResult.Model)
		if err != nil {
			return nil, fmt.Errorf("provider returned an invalid result: %w", err)
		}

		// The result is kept even when the job is cancelled between the
		// provider responding and persistence finishing.
		saveCtx := context.WithoutCancel(ctx)
		if err := s.analyses.Save(saveCtx, result); err != nil {
			return nil, fmt.Errorf("failed to persist analysis result: %w", err)
		}

		s.queue.Enqueue(video.ID)
		return result, nil
	}
}

// stageMapper translates the router's per-stage percentages into windows
// of the job's overall progress.
func stageMapper(progress *scheduler.Reporter) func(stage string, percent int) {
	compress := progress.Stage(compressFrom, compressTo, "compressing audio")
	upload := progress.Stage(uploadFrom, uploadTo, "uploading to storage")
	submit := progress.Stage(submitFrom, submitTo, "submitting to provider")

	return func(stage string, percent int) {
		switch stage {
		case "compressing audio":
			compress(percent)
		case "uploading to storage":
			upload(percent)
		case "submitting to provider":
			submit(percent)
		}
	}
}

// ResultsFor returns a video's persisted analysis results, newest first.
func (s *AnalysisService) ResultsFor(ctx context.Context, videoID uuid.UUID) ([]*domain.AnalysisResult, error) {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return s.analyses.GetByVideo(ctx, videoID)
}
