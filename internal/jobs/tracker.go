// Package jobs tracks in-flight and recently completed asynchronous
// jobs. One coarse lock guards the registry: every operation is an O(1)
// map access, so fine-grained locking buys nothing here.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
)

// Config bounds tracker retention.
type Config struct {
	// Retention is how long a job stays visible after its last update.
	Retention time.Duration
	// MaxTracked caps the registry size; the oldest jobs (by creation
	// time) are evicted first when the cap is exceeded.
	MaxTracked int
	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the documented retention defaults.
func DefaultConfig() Config {
	return Config{
		Retention:     time.Hour,
		MaxTracked:    1000,
		SweepInterval: time.Minute,
	}
}

// Tracker is the concurrency-safe job registry.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	cfg  Config

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker(cfg Config) *Tracker {
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = 1000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Tracker{
		jobs:    make(map[string]*model.Job),
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Submit registers a new pending job for the given unit and returns its
// identifier. Safe for concurrent use.
func (t *Tracker) Submit(unitID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	id := uuid.NewString()
	t.jobs[id] = &model.Job{
		ID:        id,
		UnitID:    unitID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.evictOverCapLocked()
	return id
}

// Update transitions a job's status and attaches a result reference or
// error. Updating an unknown or already-evicted job is a logged no-op:
// the underlying work may legitimately outlive the tracker's view of it.
// Terminal states are stable; a completed or failed job never reverts.
func (t *Tracker) Update(jobID string, status model.JobStatus, recordRef string, jobErr *model.JobError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[jobID]
	if !ok {
		zap.L().Warn("update for unknown or evicted job",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
		)
		return
	}
	if j.Status.Terminal() {
		zap.L().Warn("ignoring update to terminal job",
			zap.String("job_id", jobID),
			zap.String("current", string(j.Status)),
			zap.String("requested", string(status)),
		)
		return
	}

	j.Status = status
	j.UpdatedAt = t.nowFunc()
	if recordRef != "" {
		j.RecordRef = recordRef
	}
	if jobErr != nil {
		j.Error = jobErr
	}
}

// Drop removes a job that was never accepted for execution, so a
// capacity rejection leaves no trace in the tracker.
func (t *Tracker) Drop(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, jobID)
}

// Get returns a copy of the job, or false if it is unknown or evicted.
func (t *Tracker) Get(jobID string) (model.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[jobID]
	if !ok {
		return model.Job{}, false
	}
	return *j, true
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Start runs the periodic retention sweep until ctx is cancelled.
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Sweep evicts jobs whose last update is older than the retention
// window. Evicting a job that is still pending or processing is logged:
// it means the tracker lost visibility, not that the work stopped.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.nowFunc().Add(-t.cfg.Retention)
	evicted := 0
	for id, j := range t.jobs {
		if j.UpdatedAt.Before(cutoff) {
			t.evictLocked(id, j, "retention window")
			evicted++
		}
	}
	return evicted
}

// evictOverCapLocked drops the oldest jobs by creation time until the
// registry fits the cap. Caller holds the lock.
func (t *Tracker) evictOverCapLocked() {
	if len(t.jobs) <= t.cfg.MaxTracked {
		return
	}

	all := make([]*model.Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		return all[i].CreatedAt.Before(all[k].CreatedAt)
	})

	for _, j := range all[:len(all)-t.cfg.MaxTracked] {
		t.evictLocked(j.ID, j, "capacity cap")
	}
}

func (t *Tracker) evictLocked(id string, j *model.Job, reason string) {
	if !j.Status.Terminal() {
		zap.L().Warn("evicting non-terminal job",
			zap.String("job_id", id),
			zap.String("status", string(j.Status)),
			zap.String("reason", reason),
		)
	}
	delete(t.jobs, id)
}
