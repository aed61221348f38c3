package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// withDeadline bounds one invocation of fn to deadline wall-clock time
// (spec §5: "each stage handler has a wall-clock deadline; on expiry it
// must abort any outstanding blob I/O and return a retryable failure").
// Cancelling ctx aborts any blob I/O fn has in flight since the store
// adapter's S3 calls are context-aware; a deadline <= 0 disables the
// timeout entirely.
func withDeadline(ctx context.Context, deadline time.Duration, stage string, fn func(ctx context.Context) error) error {
	if deadline <= 0 {
		return fn(ctx)
	}
	dctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	err := fn(dctx)
	if err != nil && dctx.Err() == context.DeadlineExceeded {
		return models.NewStageError(models.DeadlineExceeded, stage,
			fmt.Errorf("exceeded %s stage deadline: %w", deadline, err))
	}
	return err
}

// withRetry re-invokes fn up to maxRetries additional times on a retryable
// error, backing off exponentially — generalized from the teacher's
// asynq RetryDelayFunc (`1<<n` minutes), scaled down to seconds for the
// driver's tighter per-item retry loop (spec §5).
func withRetry(ctx context.Context, maxRetries int, stage string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: cancelled during backoff: %w", stage, ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !models.Retryable(err) {
			return err
		}
	}
	return fmt.Errorf("%s: exhausted %d retries: %w", stage, maxRetries, lastErr)
}
