// Package resilience provides the pipeline error taxonomy and the
// per-service retry engine used at every external-call boundary.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// Kind classifies a pipeline failure. Every error crossing a phase
// boundary carries exactly one kind.
type Kind string

const (
	// KindValidation marks malformed input. Never retried, always fatal
	// to the current run before any phase executes.
	KindValidation Kind = "validation"
	// KindExternalAPI marks an LLM-service failure after retry exhaustion.
	KindExternalAPI Kind = "external_api"
	// KindExternalRPC marks a persistence/lookup-service failure after
	// retry exhaustion.
	KindExternalRPC Kind = "external_rpc"
	// KindProcessing marks an internal contract violation. Always fatal;
	// indicates a bug rather than an external fault.
	KindProcessing Kind = "processing"
	// KindServiceUnavailable marks the orchestration layer itself being
	// overloaded. Surfaced from the submission API, never produced mid-run.
	KindServiceUnavailable Kind = "service_unavailable"
	// KindFallbackExecuted is informational: a phase completed via its
	// degraded output. Not a true failure.
	KindFallbackExecuted Kind = "fallback_executed"
)

// PipelineError is the typed outcome of a failed operation. It is
// created at the failure site and never mutated, only wrapped.
type PipelineError struct {
	Kind        Kind
	Phase       string
	Message     string
	SupportCode string
	// Attempts is the number of call attempts actually performed before
	// the error surfaced (retry exhaustion only).
	Attempts int
	// UnitID identifies the processing unit, when known.
	UnitID string
	// Detail carries provider error text and other internal context for
	// logging. It is not forwarded verbatim to external callers.
	Detail map[string]any
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Phase, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error aborts the run. Only validation and
// processing kinds do; external-service kinds are absorbed by fallbacks
// and service-unavailable never enters a run.
func (e *PipelineError) Fatal() bool {
	return e.Kind == KindValidation || e.Kind == KindProcessing
}

// NewError builds a PipelineError with a freshly derived support code.
func NewError(kind Kind, phase, message string) *PipelineError {
	return &PipelineError{
		Kind:        kind,
		Phase:       phase,
		Message:     message,
		SupportCode: SupportCode(phase),
	}
}

// WrapError builds a PipelineError around an underlying cause.
func WrapError(kind Kind, phase, message string, err error) *PipelineError {
	pe := NewError(kind, phase, message)
	pe.Err = err
	if err != nil {
		pe.Detail = map[string]any{"cause": err.Error()}
	}
	return pe
}

// SupportCode derives an opaque log-correlation code from the phase tag
// and the current UTC time. Codes are not guaranteed unique under
// sub-millisecond concurrency; that is an accepted tradeoff.
func SupportCode(phase string) string {
	if phase == "" {
		phase = "core"
	}
	return fmt.Sprintf("%s-%s", phase, time.Now().UTC().Format("20060102T150405.000"))
}

// AsPipelineError extracts a PipelineError from err's chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the kind in err's chain, or KindProcessing for
// unclassified errors.
func KindOf(err error) Kind {
	if pe, ok := AsPipelineError(err); ok {
		return pe.Kind
	}
	return KindProcessing
}

// TransientError wraps a provider error that is safe to retry
// (connection failure, rate limit, timeout, 5xx).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err (or anything in its chain) is a
// TransientError or matches common network-level transient patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by HTTP and database clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"context deadline exceeded",
		"server closed idle connection",
		"connection refused",
		"database is locked",
		"database table is locked",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
