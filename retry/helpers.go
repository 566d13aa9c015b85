package retry

import (
	"time"

	"google.golang.org/grpc/codes"
)

// ============================================================
// Preset option bundles
// ============================================================

var (
	// GRPCDefaults retries the gRPC codes that signal a transient
	// upstream condition.
	GRPCDefaults = []Option{
		MaxAttempts(3),
		Condition(RetryOnGRPCCodes(
			codes.Unavailable,
			codes.DeadlineExceeded,
			codes.ResourceExhausted,
		)),
		Backoff(ExponentialBackoff(time.Second)),
	}

	// HTTPDefaults retries rate limiting and upstream 5xx statuses.
	HTTPDefaults = []Option{
		MaxAttempts(3),
		Condition(RetryOnHTTPStatus(429, 500, 502, 503, 504)),
		Backoff(ExponentialBackoff(time.Second)),
	}

	// DatabaseDefaults retries transient connection errors with a short
	// backoff.
	DatabaseDefaults = []Option{
		MaxAttempts(3),
		Condition(RetryOnTemporaryError()),
		Backoff(ExponentialBackoff(100 * time.Millisecond)),
	}
)
