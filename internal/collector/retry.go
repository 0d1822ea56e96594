package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/furkanakkurt1335/gather-commits-issues-prs/internal/errors"
)

const (
	// maxAttempts is the number of tries for a single remote call.
	maxAttempts = 3

	// maxRateLimitWait caps the sleep until a reported rate-limit reset.
	// Longer waits are skipped so a harvest never stalls indefinitely.
	maxRateLimitWait = 5 * time.Minute

	// rateLimitMargin is added to the reset wait to absorb clock skew.
	rateLimitMargin = time.Second
)

// retryer executes a remote call with retries, exponential backoff, and
// rate-limit-aware waiting. Sleeps block the calling goroutine.
type retryer struct {
	attempts int
	log      logrus.FieldLogger
	sleep    func(time.Duration)
}

func newRetryer(log logrus.FieldLogger) *retryer {
	return &retryer{
		attempts: maxAttempts,
		log:      log,
		sleep:    time.Sleep,
	}
}

// do runs call up to r.attempts times. Between attempts it sleeps 2^attempt
// seconds; after a rate-limit error it first sleeps until the reported reset
// unless that wait exceeds maxRateLimitWait. Non-retryable errors (not
// found, bad credentials) are returned immediately.
func (r *retryer) do(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperrors.IsRetryable(err) {
			return err
		}
		if attempt == r.attempts-1 {
			break
		}

		if appErr, ok := err.(*apperrors.AppError); ok && apperrors.IsRateLimited(err) && !appErr.ResetAt.IsZero() {
			wait := time.Until(appErr.ResetAt) + rateLimitMargin
			if wait > 0 && wait < maxRateLimitWait {
				r.log.Warnf("API rate limit exceeded, waiting %s until reset", wait.Round(time.Second))
				r.sleep(wait)
			}
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		r.log.Debugf("%s failed (attempt %d/%d): %v, retrying in %s", operation, attempt+1, r.attempts, err, backoff)
		r.sleep(backoff)
	}
	return apperrors.NewExhaustedError(operation, lastErr)
}
