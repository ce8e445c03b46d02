package status

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"lessonreel/internal/fileutil"
	"lessonreel/internal/logging"
)

// Reporter writes Records to a single status file. Each update replaces the
// file atomically. Write failures are logged and never returned: status is an
// observability channel and must not abort the workflow.
type Reporter struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	// observer receives every record whether or not the write succeeded.
	observer func(Record)

	mu   sync.Mutex
	last time.Time
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithObserver registers a callback invoked for every update.
func WithObserver(fn func(Record)) Option {
	return func(r *Reporter) {
		r.observer = fn
	}
}

// NewReporter returns a reporter writing to path.
func NewReporter(path string, logger *slog.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		path:   path,
		logger: logging.NewComponentLogger(logger, "status"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the status file path.
func (r *Reporter) Path() string {
	return r.path
}

// Update overwrites the status file with a new record. updatedAt is strictly
// increasing across calls on the same reporter even if the wall clock steps
// backwards.
func (r *Reporter) Update(step int, status Status, errMsg string) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Nanosecond)
	}
	r.last = ts

	record := Record{
		CurrentStep: step,
		TotalSteps:  TotalSteps,
		Status:      status,
		UpdatedAt:   ts,
		Error:       errMsg,
	}
	r.write(record)
	if r.observer != nil {
		r.observer(record)
	}
	return record
}

func (r *Reporter) write(record Record) {
	if r.path == "" {
		return
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err == nil {
		data = append(data, '\n')
		err = fileutil.WriteFileAtomic(r.path, data, 0o644)
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "status write failed", "status_write_failed",
			logging.String("status_file", r.path),
			logging.String("status", string(record.Status)),
			logging.Int(logging.FieldStepIndex, record.CurrentStep),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the status file directory is writable"),
			logging.String(logging.FieldImpact, "callers polling the status file see stale progress"),
		)
		return
	}
	r.logger.Debug("status updated",
		logging.String("status", string(record.Status)),
		logging.Int(logging.FieldStepIndex, record.CurrentStep),
	)
}
