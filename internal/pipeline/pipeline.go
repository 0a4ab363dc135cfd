// Package pipeline runs the fixed phase sequence that turns one news
// processing unit into a persistence payload: triage, basic extraction,
// quote and data extraction, normalization and linking, importance
// scoring, and the final conversion to temporary identifiers.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agchaparroh/noticias-pipeline/internal/config"
	"github.com/agchaparroh/noticias-pipeline/internal/metrics"
	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

// Coordinator executes the phase sequence for one processing unit at a
// time. A single Coordinator is shared by all workers; all per-run
// state lives in the run itself, so the shared fields are read-only
// after construction.
type Coordinator struct {
	llm     llm.Client
	scorer  scoring.Client
	store   store.Store
	metrics *metrics.Aggregator

	llmPolicy     resilience.Policy
	rpcPolicy     resilience.Policy
	scoringPolicy resilience.Policy
	rpcTimeout    time.Duration
}

// New wires a Coordinator from its collaborators. Retry policies come
// from config so the documented attempt counts stay adjustable.
func New(cfg *config.Config, llmClient llm.Client, scorer scoring.Client, st store.Store, agg *metrics.Aggregator) *Coordinator {
	llmPolicy := resilience.PolicyFromConfig(resilience.LLMPolicy(),
		cfg.Retry.LLM.MaxAttempts, cfg.Retry.LLM.WaitMs, cfg.Retry.LLM.JitterMs)
	rpcPolicy := resilience.PolicyFromConfig(resilience.RPCPolicy(),
		cfg.Retry.RPC.MaxAttempts, cfg.Retry.RPC.WaitMs, cfg.Retry.RPC.JitterMs)

	scoringPolicy := llmPolicy
	scoringPolicy.Service = "scoring"

	rpcTimeout := time.Duration(cfg.Store.TimeoutSecs) * time.Second
	if rpcTimeout <= 0 {
		rpcTimeout = 30 * time.Second
	}

	return &Coordinator{
		llm:           llmClient,
		scorer:        scorer,
		store:         st,
		metrics:       agg,
		llmPolicy:     llmPolicy,
		rpcPolicy:     rpcPolicy,
		scoringPolicy: scoringPolicy,
		rpcTimeout:    rpcTimeout,
	}
}

// Run executes the full phase sequence for one unit and returns the
// in-memory result plus the converted persistence payload. External
// exhaustions degrade phases via their fallbacks and never fail the
// run; only validation and internal contract violations do.
func (c *Coordinator) Run(ctx context.Context, unit model.ProcessingUnit) (*model.UnitResult, *model.UnitPayload, error) {
	log := zap.L().With(zap.String("unit", unit.ID), zap.String("kind", string(unit.Kind)))
	start := time.Now()

	if problem := unit.Validate(); problem != "" {
		err := resilience.NewError(resilience.KindValidation, PhaseTriage, problem)
		log.Error("unit rejected", zap.String("problem", problem), zap.String("support_code", err.SupportCode))
		c.metrics.RecordRun(time.Since(start), resilience.KindValidation, false)
		return nil, nil, err
	}

	log.Info("run starting")
	alloc := NewAllocator()
	res := &model.UnitResult{Unit: unit}

	// runPhase executes one phase, routing external exhaustion into the
	// phase's fallback. countsDegraded marks whether taking the
	// fallback degrades the run as a whole.
	runPhase := func(name string, countsDegraded bool, fn func(ctx context.Context) error) error {
		phaseStart := time.Now()
		err := fn(ctx)
		elapsed := time.Since(phaseStart)

		if err == nil {
			c.metrics.RecordPhase(name, metrics.PhaseSuccess, elapsed)
			log.Info("phase complete", zap.String("phase", name), zap.Int64("duration_ms", elapsed.Milliseconds()))
			return nil
		}

		pe, ok := resilience.AsPipelineError(err)
		if !ok || pe.Fatal() {
			c.metrics.RecordPhase(name, metrics.PhaseFailure, elapsed)
			log.Error("phase failed", zap.String("phase", name), zap.Error(err))
			return err
		}

		fallbacks[name](res, alloc)
		if countsDegraded {
			res.DegradedPhases = append(res.DegradedPhases, name)
		}
		c.metrics.RecordPhase(name, metrics.PhaseFallback, elapsed)
		log.Info("phase degraded",
			zap.String("phase", name),
			zap.String("kind", string(resilience.KindFallbackExecuted)),
			zap.String("cause", string(pe.Kind)),
			zap.String("support_code", pe.SupportCode),
			zap.Int("attempts", pe.Attempts),
		)
		return nil
	}

	steps := []struct {
		name           string
		countsDegraded bool
		fn             func(ctx context.Context) error
	}{
		{PhaseTriage, true, func(ctx context.Context) error {
			return resilience.Run(ctx, c.llmPolicy, PhaseTriage, func(ctx context.Context) error {
				return c.triage(ctx, res)
			})
		}},
		{PhaseExtract, true, func(ctx context.Context) error {
			return resilience.Run(ctx, c.llmPolicy, PhaseExtract, func(ctx context.Context) error {
				return c.extract(ctx, res, alloc)
			})
		}},
		// Quotes are non-critical: exhaustion omits this phase's output
		// without degrading the run further.
		{PhaseQuotes, false, func(ctx context.Context) error {
			return resilience.Run(ctx, c.llmPolicy, PhaseQuotes, func(ctx context.Context) error {
				return c.quotes(ctx, res, alloc)
			})
		}},
		// link manages its own retry policies per sub-call.
		{PhaseLink, true, func(ctx context.Context) error {
			return c.link(ctx, res)
		}},
		{PhaseScore, true, func(ctx context.Context) error {
			return resilience.Run(ctx, c.scoringPolicy, PhaseScore, func(ctx context.Context) error {
				return c.score(ctx, res)
			})
		}},
	}

	for _, step := range steps {
		if err := runPhase(step.name, step.countsDegraded, step.fn); err != nil {
			c.metrics.RecordRun(time.Since(start), resilience.KindOf(err), false)
			return nil, nil, err
		}
	}

	var payload *model.UnitPayload
	if err := runPhase(PhaseConvert, false, func(context.Context) error {
		p, convErr := Convert(res, alloc)
		if convErr != nil {
			return convErr
		}
		payload = p
		return nil
	}); err != nil {
		c.metrics.RecordRun(time.Since(start), resilience.KindOf(err), false)
		return nil, nil, err
	}

	degraded := len(res.DegradedPhases) > 0
	c.metrics.RecordRun(time.Since(start), "", degraded)
	log.Info("run complete",
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int("facts", len(res.Facts)),
		zap.Int("entities", len(res.Entities)),
		zap.Strings("degraded_phases", res.DegradedPhases),
	)
	return res, payload, nil
}

// Persist hands the payload to the storage collaborator under the RPC
// retry policy and returns the persisted-record reference.
func (c *Coordinator) Persist(ctx context.Context, payload *model.UnitPayload) (string, error) {
	insert := c.store.InsertArticle
	if payload.Kind == model.UnitKindFragment {
		insert = c.store.InsertFragment
	}
	return resilience.Execute(ctx, c.rpcPolicy, "persist", func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
		defer cancel()
		return insert(ctx, payload)
	})
}

// Process runs the phase sequence and persists the converted payload,
// returning the persisted-record reference.
func (c *Coordinator) Process(ctx context.Context, unit model.ProcessingUnit) (string, *model.UnitResult, error) {
	res, payload, err := c.Run(ctx, unit)
	if err != nil {
		return "", nil, err
	}
	ref, err := c.Persist(ctx, payload)
	if err != nil {
		return "", res, err
	}
	return ref, res, nil
}

// recordUsage attributes token consumption to a phase.
func (c *Coordinator) recordUsage(res *model.UnitResult, phase string, usage llm.TokenUsage) {
	res.Usage = append(res.Usage, model.PhaseUsage{
		Phase:        phase,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	})
}
