package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior for one external-service class.
// Waits are fixed per attempt, not exponential.
type Policy struct {
	// Service names the target class for logging ("llm", "rpc", "scoring").
	Service string

	// Kind is the PipelineError kind raised on exhaustion.
	Kind Kind

	// MaxAttempts is the total number of attempts including the first.
	// A value of 1 means no retries.
	MaxAttempts int

	// Wait is the fixed delay between attempts.
	Wait time.Duration

	// Jitter adds a uniform random delay in [0, Jitter) on top of Wait.
	Jitter time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, IsTransient is used. Non-retryable errors short-circuit to
	// immediate failure without consuming further attempts.
	ShouldRetry func(err error) bool
}

// LLMPolicy is the retry policy for LLM API calls: 3 total attempts,
// fixed 5s wait plus up to 1s jitter, retrying connection errors, rate
// limits, timeouts and 5xx responses.
func LLMPolicy() Policy {
	return Policy{
		Service:     "llm",
		Kind:        KindExternalAPI,
		MaxAttempts: 3,
		Wait:        5 * time.Second,
		Jitter:      time.Second,
	}
}

// RPCPolicy is the retry policy for database RPC calls: 2 total attempts
// with a fixed 2s wait for connection-class failures. Validation-class
// failures are non-transient and therefore make exactly one attempt.
func RPCPolicy() Policy {
	return Policy{
		Service:     "rpc",
		Kind:        KindExternalRPC,
		MaxAttempts: 2,
		Wait:        2 * time.Second,
	}
}

// Execute runs fn under the policy and converts exhaustion into a
// PipelineError of the policy's kind, tagged with the phase and the
// number of attempts actually performed. Context cancellation stops
// retries immediately.
func Execute[T any](ctx context.Context, p Policy, phase string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		attempts++
		if err == nil {
			if attempt > 0 {
				zap.L().Info("call recovered after retry",
					zap.String("service", p.Service),
					zap.String("phase", phase),
					zap.Int("attempts", attempts),
				)
			}
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		// Non-retryable errors fail immediately; retrying a validation
		// error wastes time and cannot succeed.
		if !shouldRetry(lastErr) {
			break
		}

		if attempt >= p.MaxAttempts-1 {
			break
		}

		zap.L().Warn("retrying call",
			zap.String("service", p.Service),
			zap.String("phase", phase),
			zap.Int("attempt", attempts),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(waitWithJitter(p))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, exhausted(p, phase, attempts, lastErr)
		case <-timer.C:
		}
	}

	return zero, exhausted(p, phase, attempts, lastErr)
}

// Run is Execute for operations without a return value.
func Run(ctx context.Context, p Policy, phase string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, p, phase, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func exhausted(p Policy, phase string, attempts int, cause error) *PipelineError {
	pe := WrapError(p.Kind, phase, fmt.Sprintf("%s call failed after %d attempt(s)", p.Service, attempts), cause)
	pe.Attempts = attempts
	return pe
}

func waitWithJitter(p Policy) time.Duration {
	d := p.Wait
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter)))
	}
	return d
}
