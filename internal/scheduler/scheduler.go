// Package scheduler provides the bounded-concurrency job scheduler that
// admits, runs, and tracks asynchronous analysis jobs tied to library
// videos. Jobs are in-memory only and are lost on process restart; this
// is a documented limitation of the single-session scope, not a bug.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
)

// DefaultMaxConcurrent bounds the running set when no explicit limit is
// configured.
const DefaultMaxConcurrent = 3

// Subscriber receives the full current job list after every state or
// progress mutation. Delivery is synchronous with the mutation.
type Subscriber func(jobs []Job)

// Scheduler owns the job map, the pending FIFO queue, and the bounded
// running set. It is an explicitly constructed instance; create one per
// process (or per test) and Close it on teardown.
type Scheduler struct {
	mu            sync.Mutex
	logger        *slog.Logger
	maxConcurrent int

	jobs    map[uuid.UUID]*job
	order   []uuid.UUID // submission order; read accessors reverse it for recency
	pending []uuid.UUID // FIFO of jobs awaiting a free slot
	running map[uuid.UUID]struct{}

	subscribers map[int]Subscriber
	nextSubID   int

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// New creates a Scheduler with the given concurrency bound. A bound of
// zero or less falls back to DefaultMaxConcurrent.
func New(maxConcurrent int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		logger.Warn("invalid max concurrent specified, using default",
			"specified", maxConcurrent,
			"default", DefaultMaxConcurrent)
		maxConcurrent = DefaultMaxConcurrent
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		logger:        logger.With("component", "scheduler"),
		maxConcurrent: maxConcurrent,
		jobs:          make(map[uuid.UUID]*job),
		running:       make(map[uuid.UUID]struct{}),
		subscribers:   make(map[int]Subscriber),
		baseCtx:       ctx,
		baseCancel:    cancel,
	}
}

// Submit creates a job in Pending state for the given subject, appends it
// to the pending queue, and attempts immediate admission. The returned
// handle's Await resolves with the job's terminal outcome.
func (s *Scheduler) Submit(subjectID uuid.UUID, kind domain.AnalysisKind, work WorkFunc) (*Handle, error) {
	if work == nil {
		return nil, fmt.Errorf("work func cannot be nil")
	}

	j := &job{
		snapshot: Job{
			ID:        uuid.New(),
			SubjectID: subjectID,
			Kind:      kind,
			State:     StatePending,
			CreatedAt: time.Now().UTC(),
		},
		work: work,
		done: make(chan struct{}),
	}

	var submitErr error
	s.mutate(func() {
		if s.closed {
			submitErr = ErrSchedulerClosed
			return
		}
		s.jobs[j.snapshot.ID] = j
		s.order = append(s.order, j.snapshot.ID)
		s.pending = append(s.pending, j.snapshot.ID)
		s.admitLocked()
	})
	if submitErr != nil {
		return nil, submitErr
	}

	s.logger.Info("job submitted",
		"job_id", j.snapshot.ID,
		"subject_id", subjectID,
		"kind", kind)

	return &Handle{ID: j.snapshot.ID, j: j}, nil
}

// Cancel requests cancellation of a job. A pending job transitions to
// Cancelled immediately and never runs; a running job is signalled
// cooperatively and transitions once its work unit unwinds. Cancelling a
// terminal job is a no-op.
func (s *Scheduler) Cancel(jobID uuid.UUID) error {
	var err error
	s.mutate(func() {
		j, ok := s.jobs[jobID]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
			return
		}

		switch j.snapshot.State {
		case StatePending:
			s.removePendingLocked(jobID)
			j.cancelRequested = true
			s.finishLocked(j, nil, ErrJobCancelled)
		case StateRunning:
			j.cancelRequested = true
			j.cancel()
		default:
			// Terminal: no-op.
		}
	})
	return err
}

// Subscribe registers a callback invoked with the full job list after
// every mutation. The returned function unsubscribes it.
func (s *Scheduler) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// GetAll returns snapshots of every job, most recently submitted first.
func (s *Scheduler) GetAll() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// GetBySubject returns snapshots of the jobs operating on the given
// subject, most recently submitted first.
func (s *Scheduler) GetBySubject(subjectID uuid.UUID) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Job
	for i := len(s.order) - 1; i >= 0; i-- {
		j := s.jobs[s.order[i]]
		if j.snapshot.SubjectID == subjectID {
			out = append(out, j.snapshot)
		}
	}
	return out
}

// Stats returns job counts per state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	for _, j := range s.jobs {
		switch j.snapshot.State {
		case StatePending:
			stats.Pending++
		case StateRunning:
			stats.Running++
		case StateCompleted:
			stats.Completed++
		case StateFailed:
			stats.Failed++
		case StateCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Close stops admission, signals cancellation to all running jobs, and
// waits for their work units to unwind.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.baseCancel()
	s.wg.Wait()
	s.logger.Info("scheduler closed")
}

// mutate serializes a state mutation and delivers the post-mutation job
// list to subscribers synchronously, outside the lock.
func (s *Scheduler) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snapshot := s.snapshotLocked()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// snapshotLocked returns job snapshots most recently submitted first.
// Must be called with s.mu held.
func (s *Scheduler) snapshotLocked() []Job {
	out := make([]Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.jobs[s.order[i]].snapshot)
	}
	return out
}

// admitLocked admits pending jobs in FIFO order until the concurrency
// bound is reached or the queue is empty. Must be called with s.mu held.
func (s *Scheduler) admitLocked() {
	for len(s.running) < s.maxConcurrent && len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]

		j := s.jobs[id]
		now := time.Now().UTC()
		j.snapshot.State = StateRunning
		j.snapshot.StartedAt = &now
		s.running[id] = struct{}{}

		ctx, cancel := context.WithCancel(s.baseCtx)
		j.cancel = cancel

		s.wg.Add(1)
		go s.run(ctx, j)
	}
}

// run executes one job's work unit and records its terminal outcome. Any
// panic or error from the work unit is captured; the scheduler itself
// never crashes from a job failure.
func (s *Scheduler) run(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer j.cancel()

	logger := s.logger.With("job_id", j.snapshot.ID, "kind", j.snapshot.Kind)
	logger.Info("job started")

	var (
		result *domain.AnalysisResult
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		result, err = j.work(ctx, &Reporter{s: s, j: j})
	}()

	s.mutate(func() {
		delete(s.running, j.snapshot.ID)
		s.finishLocked(j, result, err)
		// A freed slot admits the next pending job immediately, even
		// when this one failed.
		s.admitLocked()
	})

	switch {
	case j.err == nil:
		logger.Info("job completed")
	case j.snapshot.State == StateCancelled:
		logger.Info("job cancelled")
	default:
		logger.Error("job failed", "error", j.err)
	}
}

// finishLocked records a job's terminal state. Exactly one of result and
// err is retained; progress is 100 iff the job completed. Must be called
// with s.mu held.
func (s *Scheduler) finishLocked(j *job, result *domain.AnalysisResult, err error) {
	now := time.Now().UTC()
	j.snapshot.EndedAt = &now

	switch {
	case err == nil:
		j.snapshot.State = StateCompleted
		j.snapshot.Progress = 100
		j.snapshot.StageLabel = ""
		j.result = result
	case j.cancelRequested || errors.Is(err, context.Canceled):
		j.snapshot.State = StateCancelled
		j.err = fmt.Errorf("%w: %v", ErrJobCancelled, err)
		if err == ErrJobCancelled {
			j.err = ErrJobCancelled
		}
	default:
		j.snapshot.State = StateFailed
		j.snapshot.Error = err.Error()
		j.err = err
	}

	if j.snapshot.State == StateCancelled {
		j.snapshot.Error = j.err.Error()
	}
	if j.snapshot.State != StateCompleted && j.snapshot.Progress == 100 {
		// Progress 100 is reserved for completed jobs.
		j.snapshot.Progress = 99
	}

	close(j.done)
}

// removePendingLocked removes a job id from the pending queue. Must be
// called with s.mu held.
func (s *Scheduler) removePendingLocked(id uuid.UUID) {
	for i, pid := range s.pending {
		if pid == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}
