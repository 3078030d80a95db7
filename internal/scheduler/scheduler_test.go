package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yy0691/AI-Videos-Play/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testResult(t *testing.T) *domain.AnalysisResult {
	t.Helper()
	result, err := domain.NewAnalysisResult(uuid.New(), domain.AnalysisKindSummary, "summary text", "en", "test-model")
	require.NoError(t, err)
	return result
}

// blockingWork returns a work func that blocks until release is closed,
// then returns the given outcome.
func blockingWork(release <-chan struct{}, result *domain.AnalysisResult, err error) WorkFunc {
	return func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		select {
		case <-release:
			return result, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestBoundedConcurrency(t *testing.T) {
	s := New(3, testLogger())
	defer s.Close()

	var running, maxRunning int64
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		_, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
			defer wg.Done()
			n := atomic.AddInt64(&running, 1)
			for {
				prev := atomic.LoadInt64(&maxRunning)
				if n <= prev || atomic.CompareAndSwapInt64(&maxRunning, prev, n) {
					break
				}
			}
			<-release
			atomic.AddInt64(&running, -1)
			return nil, nil
		})
		require.NoError(t, err)

		// The running set never exceeds the bound at any point.
		assert.LessOrEqual(t, s.Stats().Running, 3)
	}

	close(release)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt64(&maxRunning), int64(3))
}

func TestFIFOAdmission(t *testing.T) {
	s := New(2, testLogger())
	defer s.Close()

	releaseA := make(chan struct{})
	releaseRest := make(chan struct{})
	started := make(chan string, 4)

	submit := func(name string, release <-chan struct{}) *Handle {
		h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
			started <- name
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, nil
		})
		require.NoError(t, err)
		return h
	}

	hA := submit("A", releaseA)
	submit("B", releaseRest)
	submit("C", releaseRest)
	submit("D", releaseRest)

	// A and B occupy both slots.
	assert.Equal(t, "A", <-started)
	assert.Equal(t, "B", <-started)

	// When A completes, C (not D) runs next.
	close(releaseA)
	_, err := hA.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C", <-started)

	close(releaseRest)
}

func TestTerminalExclusivity(t *testing.T) {
	s := New(2, testLogger())
	defer s.Close()

	okResult := testResult(t)
	hOK, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return okResult, nil
	})
	require.NoError(t, err)

	failErr := errors.New("provider blew up")
	hFail, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return nil, failErr
	})
	require.NoError(t, err)

	result, err := hOK.Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, okResult, result)

	result, err = hFail.Await(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, failErr)

	jobs := s.GetAll()
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		switch j.State {
		case StateCompleted:
			assert.Empty(t, j.Error)
			assert.Equal(t, 100, j.Progress)
		case StateFailed:
			assert.NotEmpty(t, j.Error)
			assert.Less(t, j.Progress, 100)
		default:
			t.Fatalf("unexpected non-terminal state %s", j.State)
		}
	}
}

func TestAwaitFanOut(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	okResult := testResult(t)
	release := make(chan struct{})
	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, blockingWork(release, okResult, nil))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.Await(context.Background())
			assert.NoError(t, err)
			assert.Same(t, okResult, result)
		}()
	}

	close(release)
	wg.Wait()
}

func TestCancelPendingJobNeverRuns(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	_, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, blockingWork(release, nil, nil))
	require.NoError(t, err)

	var ran atomic.Bool
	hPending, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		ran.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(hPending.ID))

	_, err = hPending.Await(context.Background())
	assert.ErrorIs(t, err, ErrJobCancelled)
	assert.False(t, ran.Load())
	assert.Equal(t, 1, s.Stats().Cancelled)
}

func TestCancelRunningJobCooperatively(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	polling := make(chan struct{})
	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		close(polling)
		// Poll the cancellation signal the way real work units do
		// between chunks.
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
	})
	require.NoError(t, err)

	<-polling
	require.NoError(t, s.Cancel(h.ID))

	_, err = h.Await(context.Background())
	assert.ErrorIs(t, err, ErrJobCancelled)
	assert.Equal(t, 1, s.Stats().Cancelled)
}

func TestCancelTerminalJobIsNoOp(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Cancel(h.ID))
	assert.Equal(t, 1, s.Stats().Completed)
}

func TestCancelUnknownJob(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	err := s.Cancel(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestFailureDoesNotBlockAdmission(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	hFail, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	hNext, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)

	_, err = hFail.Await(context.Background())
	require.Error(t, err)

	result, err := hNext.Await(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestPanicInWorkUnitBecomesFailure(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		panic("work unit exploded")
	})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work unit exploded")
	assert.Equal(t, 1, s.Stats().Failed)
}

func TestSubscribeReceivesMutations(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	var mu sync.Mutex
	var states [][]Job
	unsubscribe := s.Subscribe(func(jobs []Job) {
		mu.Lock()
		states = append(states, jobs)
		mu.Unlock()
	})

	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		progress.Report(50, "halfway")
		return testResult(t), nil
	})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	require.NoError(t, err)

	mu.Lock()
	notifications := len(states)
	last := states[len(states)-1]
	mu.Unlock()

	// At least: submit(+admit), progress report, completion.
	assert.GreaterOrEqual(t, notifications, 3)
	require.Len(t, last, 1)
	assert.Equal(t, StateCompleted, last[0].State)

	unsubscribe()
	before := len(s.GetAll())
	_, err = s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, len(s.GetAll()))

	mu.Lock()
	assert.Equal(t, notifications, len(states), "unsubscribed callback must not fire")
	mu.Unlock()
}

func TestProgressMonotonicity(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	observed := make(chan int, 16)
	unsubscribe := s.Subscribe(func(jobs []Job) {
		if len(jobs) == 1 && jobs[0].State == StateRunning {
			observed <- jobs[0].Progress
		}
	})
	defer unsubscribe()

	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		progress.Report(30, "stage one")
		progress.Report(10, "regression is dropped")
		progress.Report(250, "over range is clamped")
		return testResult(t), nil
	})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	require.NoError(t, err)
	close(observed)

	last := 0
	for p := range observed {
		assert.GreaterOrEqual(t, p, last, "progress must never decrease")
		last = p
	}

	jobs := s.GetAll()
	require.Len(t, jobs, 1)
	assert.Equal(t, 100, jobs[0].Progress)
}

func TestRunningJobNeverShowsFullProgress(t *testing.T) {
	// Progress 100 is reserved for the completed state; a work unit
	// reporting 100 while still running is held at 99 in every snapshot.
	s := New(1, testLogger())
	defer s.Close()

	unsubscribe := s.Subscribe(func(jobs []Job) {
		for _, j := range jobs {
			if j.State == StateRunning && j.Progress == 100 {
				t.Errorf("running job observed with progress 100")
			}
		}
	})
	defer unsubscribe()

	result := testResult(t)
	reported := make(chan struct{})
	release := make(chan struct{})
	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		progress.Report(100, "submitting to provider")
		close(reported)
		<-release
		return result, nil
	})
	require.NoError(t, err)

	<-reported
	jobs := s.GetAll()
	require.Len(t, jobs, 1)
	assert.Equal(t, StateRunning, jobs[0].State)
	assert.Equal(t, 99, jobs[0].Progress)

	close(release)
	_, err = h.Await(context.Background())
	require.NoError(t, err)

	jobs = s.GetAll()
	require.Len(t, jobs, 1)
	assert.Equal(t, StateCompleted, jobs[0].State)
	assert.Equal(t, 100, jobs[0].Progress)
}

func TestStageReporterMapsWindow(t *testing.T) {
	s := New(1, testLogger())
	defer s.Close()

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Subscribe(func(jobs []Job) {
		if len(jobs) == 1 && jobs[0].State == StateRunning {
			mu.Lock()
			seen = append(seen, jobs[0].Progress)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		compress := progress.Stage(0, 45, "compressing audio")
		compress(0)
		compress(100)

		upload := progress.Stage(45, 70, "uploading to storage")
		upload(50)
		return testResult(t), nil
	})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, 45, "completed compress stage maps to window top")
	assert.Contains(t, seen, 57, "half-done upload maps into its window")
	for _, p := range seen {
		assert.LessOrEqual(t, p, 70)
	}
}

func TestGetBySubjectAndRecency(t *testing.T) {
	s := New(2, testLogger())
	defer s.Close()

	subject := uuid.New()
	other := uuid.New()

	h1, err := s.Submit(subject, domain.AnalysisKindTranscription, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)
	_, err = h1.Await(context.Background())
	require.NoError(t, err)

	h2, err := s.Submit(other, domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)
	_, err = h2.Await(context.Background())
	require.NoError(t, err)

	h3, err := s.Submit(subject, domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return testResult(t), nil
	})
	require.NoError(t, err)
	_, err = h3.Await(context.Background())
	require.NoError(t, err)

	all := s.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, h3.ID, all[0].ID, "most recent first")
	assert.Equal(t, h1.ID, all[2].ID)

	bySubject := s.GetBySubject(subject)
	require.Len(t, bySubject, 2)
	assert.Equal(t, h3.ID, bySubject[0].ID)
	assert.Equal(t, h1.ID, bySubject[1].ID)
}

func TestSubmitAfterCloseFails(t *testing.T) {
	s := New(1, testLogger())
	s.Close()

	_, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestCloseCancelsRunningJobs(t *testing.T) {
	s := New(1, testLogger())

	started := make(chan struct{})
	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	<-started
	s.Close()

	_, err = h.Await(context.Background())
	assert.ErrorIs(t, err, ErrJobCancelled)
}

func TestGenuineFailureDuringCloseIsFailed(t *testing.T) {
	// A job whose work unit fails with its own error while the scheduler
	// shuts down records Failed, not Cancelled.
	s := New(1, testLogger())

	started := make(chan struct{})
	h, err := s.Submit(uuid.New(), domain.AnalysisKindSummary, func(ctx context.Context, progress *Reporter) (*domain.AnalysisResult, error) {
		close(started)
		<-ctx.Done()
		return nil, errors.New("result flush failed")
	})
	require.NoError(t, err)

	<-started
	s.Close()

	jobs := s.GetAll()
	require.Len(t, jobs, 1)
	assert.Equal(t, StateFailed, jobs[0].State)

	_, err = h.Await(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "result flush failed")
	assert.NotErrorIs(t, err, ErrJobCancelled)
}
