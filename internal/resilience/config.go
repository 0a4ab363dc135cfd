package resilience

import (
	"time"
)

// PolicyFromConfig overrides a base policy with configured values.
// Zero or negative values keep the base defaults, so partial config
// blocks are safe.
func PolicyFromConfig(base Policy, maxAttempts, waitMs, jitterMs int) Policy {
	if maxAttempts > 0 {
		base.MaxAttempts = maxAttempts
	}
	if waitMs > 0 {
		base.Wait = time.Duration(waitMs) * time.Millisecond
	}
	if jitterMs > 0 {
		base.Jitter = time.Duration(jitterMs) * time.Millisecond
	}
	return base
}
