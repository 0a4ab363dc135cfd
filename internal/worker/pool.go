// Package worker runs the bounded job queue feeding coordinator runs.
package worker

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agchaparroh/noticias-pipeline/internal/jobs"
	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/pipeline"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

type task struct {
	jobID string
	unit  model.ProcessingUnit
}

// Pool owns a fixed set of workers draining a bounded queue. Each
// worker runs one coordinator run to completion before taking the next
// unit.
type Pool struct {
	coord   *pipeline.Coordinator
	tracker *jobs.Tracker
	queue   chan task
	workers int
}

// New creates a pool with the given worker count and queue depth.
func New(coord *pipeline.Coordinator, tracker *jobs.Tracker, workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = workers
	}
	return &Pool{
		coord:   coord,
		tracker: tracker,
		queue:   make(chan task, queueDepth),
		workers: workers,
	}
}

// Submit registers a job and queues the unit for processing, returning
// the job identifier immediately. A full queue rejects the submission
// with a ServiceUnavailable error and the job is never tracked.
func (p *Pool) Submit(unit model.ProcessingUnit) (string, error) {
	jobID := p.tracker.Submit(unit.ID)
	select {
	case p.queue <- task{jobID: jobID, unit: unit}:
		return jobID, nil
	default:
		p.tracker.Drop(jobID)
		return "", resilience.NewError(resilience.KindServiceUnavailable, "submit", "job queue at capacity")
	}
}

// Run blocks draining the queue with the configured number of workers
// until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case t := <-p.queue:
					p.process(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

func (p *Pool) process(ctx context.Context, t task) {
	p.tracker.Update(t.jobID, model.JobStatusProcessing, "", nil)

	ref, _, err := p.coord.Process(ctx, t.unit)
	if err != nil {
		p.tracker.Update(t.jobID, model.JobStatusFailed, "", jobError(err))
		return
	}
	p.tracker.Update(t.jobID, model.JobStatusCompleted, ref, nil)
}

// jobError builds the caller-visible failure record: kind, phase and
// support code survive, raw provider error bodies stay in logs.
func jobError(err error) *model.JobError {
	if pe, ok := resilience.AsPipelineError(err); ok {
		return &model.JobError{
			Kind:        string(pe.Kind),
			Phase:       pe.Phase,
			SupportCode: pe.SupportCode,
			Message:     pe.Message,
		}
	}
	zap.L().Warn("job failed with unclassified error", zap.Error(err))
	return &model.JobError{
		Kind:    string(resilience.KindProcessing),
		Message: "internal error",
	}
}
