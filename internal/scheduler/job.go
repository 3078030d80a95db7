package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
)

// JobState represents the lifecycle state of a job.
type JobState string

// Job states. Pending is initial; Completed, Failed, and Cancelled are
// terminal.
const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state is one of the three terminal states.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Common scheduler errors.
var (
	// ErrJobCancelled is the terminal error of a cancelled job. Callers
	// distinguish it from genuine failure with errors.Is.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrJobNotFound is returned when an operation names an unknown job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerClosed is returned by Submit after Close.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// WorkFunc is a job's work unit. It receives a context carrying the
// cooperative cancellation signal and a Reporter for progress updates,
// and returns the analysis result or an error.
type WorkFunc func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error)

// Job is a read-only snapshot of one scheduled unit of work, as handed to
// subscribers and read accessors.
type Job struct {
	ID         uuid.UUID           `json:"id"`
	SubjectID  uuid.UUID           `json:"subject_id"`
	Kind       domain.AnalysisKind `json:"kind"`
	State      JobState            `json:"state"`
	Progress   int                 `json:"progress"`
	StageLabel string              `json:"stage_label,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	EndedAt    *time.Time          `json:"ended_at,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// job is the scheduler's internal mutable record. All fields are guarded
// by the scheduler mutex except done, result, and err, which are written
// once before done closes.
type job struct {
	snapshot Job
	work     WorkFunc

	cancel          context.CancelFunc
	cancelRequested bool

	done   chan struct{}
	result *domain.AnalysisResult
	err    error
}

// Handle is returned by Submit. Any number of callers may Await the same
// handle; all observe the same terminal outcome without re-execution.
type Handle struct {
	// ID is the job's unique identifier.
	ID uuid.UUID

	j *job
}

// Await blocks until the job reaches a terminal state or ctx is done.
// It returns the result on completion, the stored error on failure, and
// ErrJobCancelled on cancellation.
func (h *Handle) Await(ctx context.Context) (*domain.AnalysisResult, error) {
	select {
	case <-h.j.done:
		return h.j.result, h.j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats holds job counts per state.
type Stats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
