package scheduler

// Reporter lets a job's work unit publish progress. It is handed to the
// work func by the scheduler and is only valid for that job's lifetime;
// reports after the job reached a terminal state are dropped.
type Reporter struct {
	s *Scheduler
	j *job
}

// Report records the job's progress percentage and current stage label.
// The percentage is clamped to [0,99]; 100 is reserved for the completed
// state and only ever recorded by the scheduler itself. Progress is
// monotonically non-decreasing while running: a regressing report is
// logged and the last valid value kept, never fatal.
func (r *Reporter) Report(percent int, stage string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}

	r.s.mutate(func() {
		if r.j.snapshot.State != StateRunning {
			return
		}

		if percent < r.j.snapshot.Progress {
			r.s.logger.Warn("non-monotonic progress report dropped",
				"job_id", r.j.snapshot.ID,
				"reported", percent,
				"current", r.j.snapshot.Progress)
		} else {
			r.j.snapshot.Progress = percent
		}
		if stage != "" {
			r.j.snapshot.StageLabel = stage
		}
	})
}

// Stage returns a percentage callback that maps a sub-step's own 0-100
// progress into the [from,to] window of the job's overall progress, with
// the given stage label. Work units hand it to collaborators that report
// their own progress (compression, upload).
func (r *Reporter) Stage(from, to int, label string) func(percent int) {
	if to < from {
		to = from
	}
	span := to - from
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		r.Report(from+span*percent/100, label)
	}
}
