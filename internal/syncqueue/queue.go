// Package syncqueue provides the dirty-entity reconciliation queue. Local
// mutations enqueue an entity id; the queue lazily pushes entities to the
// remote store whenever connectivity and authentication allow, in strict
// first-enqueued order, with fixed-delay retry on failure.
//
// The queue is in-memory: entries do not survive a process restart. Per
// the single-session scope this is accepted; a durable variant would
// persist entries next to the domain entities.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// ErrAuthRequired indicates the remote store refused the push for lack of
// a valid authenticated principal. The queue blocks on it instead of
// retrying; the user must re-login.
var ErrAuthRequired = errors.New("authentication required")

// Status describes the queue's current disposition.
type Status string

// Queue statuses.
const (
	StatusIdle         Status = "idle"
	StatusSyncing      Status = "syncing"
	StatusOffline      Status = "offline"
	StatusAuthRequired Status = "auth_required"
	StatusRetrying     Status = "retrying"
)

// RemoteStore pushes one entity's current snapshot to the remote service.
type RemoteStore interface {
	Push(ctx context.Context, entityID uuid.UUID) error
}

// Oracle reports connectivity and authentication state. Consulted before
// every drain attempt.
type Oracle interface {
	// Online reports whether the remote service is reachable.
	Online(ctx context.Context) bool

	// Principal returns the id of the currently authenticated principal,
	// or uuid.Nil when unauthenticated.
	Principal(ctx context.Context) uuid.UUID
}

// Config tunes the queue.
type Config struct {
	// RetryDelay is the fixed delay between drain retries after a push
	// failure.
	RetryDelay time.Duration

	// Interval is the period of the proactive drain timer.
	Interval time.Duration

	// MaxRetries bounds retries within one drain call; the periodic
	// timer picks up where an exhausted drain left off.
	MaxRetries uint64
}

// DefaultConfig returns the queue defaults: 5s retry delay, 5min
// proactive interval.
func DefaultConfig() Config {
	return Config{
		RetryDelay: 5 * time.Second,
		Interval:   5 * time.Minute,
		MaxRetries: 5,
	}
}

// Queue is the sync queue. Construct with New, then Start to enable the
// periodic drain timer, and Close on teardown.
type Queue struct {
	logger *slog.Logger
	remote RemoteStore
	oracle Oracle
	config Config

	mu           sync.Mutex
	ids          []uuid.UUID
	queued       map[uuid.UUID]struct{}
	status       Status
	lastErr      error
	lastSyncTime time.Time
	draining     bool
	closed       bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Queue. Zero config fields fall back to defaults.
func New(remote RemoteStore, oracle Oracle, config Config, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		logger: logger.With("component", "sync_queue"),
		remote: remote,
		oracle: oracle,
		config: config,
		queued: make(map[uuid.UUID]struct{}),
		status: StatusIdle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the periodic drain timer.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-q.ctx.Done():
				return
			case <-ticker.C:
				q.Drain(q.ctx)
			}
		}
	}()
}

// Close stops the timer and any in-flight drain. Enqueue and
// NotifyOnline become no-ops once Close has begun; the closed flag and
// the WaitGroup adds share q.mu so a racing trigger either registers
// before Wait or is dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// Enqueue marks an entity dirty. It is idempotent: an id already queued
// is neither duplicated nor reordered. Enqueuing triggers an immediate
// asynchronous drain attempt; the mutation path never blocks on the
// network.
func (q *Queue) Enqueue(entityID uuid.UUID) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if _, ok := q.queued[entityID]; ok {
		q.mu.Unlock()
		return
	}
	q.queued[entityID] = struct{}{}
	q.ids = append(q.ids, entityID)
	q.wg.Add(1)
	q.mu.Unlock()

	q.logger.Debug("entity marked dirty", "entity_id", entityID)

	go func() {
		defer q.wg.Done()
		q.Drain(q.ctx)
	}()
}

// NotifyOnline triggers a drain attempt; call it on transition-to-online
// events.
func (q *Queue) NotifyOnline() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		q.Drain(q.ctx)
	}()
}

// Drain attempts to flush the queue to the remote store. It is re-entrant
// safe: concurrent calls collapse into the one in flight. If offline or
// unauthenticated it blocks the queue (status Offline / AuthRequired) and
// returns without consuming entries. Push failures stop the drain at the
// failing entry and retry after the fixed delay, up to MaxRetries per
// call; authentication failures never retry.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	backoff := retry.WithMaxRetries(q.config.MaxRetries, retry.NewConstant(q.config.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return q.drainOnce(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		q.logger.Warn("drain gave up until next trigger", "error", err)
	}
}

// drainOnce performs one drain pass. It returns a retryable error for
// push failures and a terminal (nil or non-retryable) outcome otherwise.
func (q *Queue) drainOnce(ctx context.Context) error {
	if !q.oracle.Online(ctx) {
		q.setStatus(StatusOffline, nil)
		q.logger.Debug("drain skipped, offline")
		return nil
	}
	if q.oracle.Principal(ctx) == uuid.Nil {
		q.setStatus(StatusAuthRequired, ErrAuthRequired)
		q.logger.Debug("drain skipped, unauthenticated")
		return nil
	}

	q.setStatus(StatusSyncing, nil)

	for {
		q.mu.Lock()
		if len(q.ids) == 0 {
			q.status = StatusIdle
			q.lastErr = nil
			q.lastSyncTime = time.Now().UTC()
			q.mu.Unlock()
			q.logger.Debug("queue fully drained")
			return nil
		}
		head := q.ids[0]
		q.mu.Unlock()

		if err := q.remote.Push(ctx, head); err != nil {
			if errors.Is(err, ErrAuthRequired) {
				q.setStatus(StatusAuthRequired, err)
				q.logger.Warn("push rejected for authentication, blocking queue", "entity_id", head)
				return err
			}
			q.setStatus(StatusRetrying, err)
			q.logger.Warn("push failed, will retry",
				"entity_id", head,
				"retry_delay", q.config.RetryDelay,
				"error", err)
			return retry.RetryableError(fmt.Errorf("push %s: %w", head, err))
		}

		q.mu.Lock()
		if len(q.ids) > 0 && q.ids[0] == head {
			q.ids = q.ids[1:]
			delete(q.queued, head)
		}
		q.mu.Unlock()
		q.logger.Debug("entity pushed", "entity_id", head)
	}
}

func (q *Queue) setStatus(status Status, err error) {
	q.mu.Lock()
	q.status = status
	q.lastErr = err
	q.mu.Unlock()
}

// Snapshot is a point-in-time view of the queue for display.
type Snapshot struct {
	Status       Status    `json:"status"`
	QueueLength  int       `json:"queue_length"`
	LastSyncTime time.Time `json:"last_sync_time"`
	LastError    string    `json:"last_error,omitempty"`
}

// Status returns a snapshot of the queue's state.
func (q *Queue) Status() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		Status:       q.status,
		QueueLength:  len(q.ids),
		LastSyncTime: q.lastSyncTime,
	}
	if q.lastErr != nil {
		snap.LastError = q.lastErr.Error()
	}
	return snap
}
