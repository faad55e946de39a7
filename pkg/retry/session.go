package retry

import (
	"context"
	"time"

	"postarchiver/pkg/browser"
	"postarchiver/pkg/logger"
)

// SessionFactory creates browser sessions
type SessionFactory interface {
	New(ctx context.Context) (browser.Session, error)
}

// SessionOperation runs against a live session
type SessionOperation[T any] func(ctx context.Context, s browser.Session) (T, error)

// SessionPolicy retries operations against a browser, replacing the session
// after every failure
type SessionPolicy struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	Factory     SessionFactory
	Logger      logger.Logger
}

// DefaultSessionPolicy returns three attempts with a constant five second pause
func DefaultSessionPolicy(factory SessionFactory, log logger.Logger) *SessionPolicy {
	return &SessionPolicy{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 5 * time.Second},
		Factory:     factory,
		Logger:      log,
	}
}

// WithSession runs op against session. After a failure it waits the backoff,
// closes the session, obtains a fresh one from the factory and tries again.
// A failed session launch uses up an attempt. When every attempt failed the
// zero value is returned; the error is logged, never returned.
//
// The returned session is the one callers must use from now on. It may differ
// from the session passed in, and may be nil when the last launch failed.
// A nil session on entry is launched before the first attempt.
func WithSession[T any](ctx context.Context, p *SessionPolicy, session browser.Session, op SessionOperation[T]) (T, browser.Session) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	log := p.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = &ConstantBackoff{Delay: 5 * time.Second}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoff.NextDelay(attempt - 1)
			log.WithError(lastErr).WarnWithFields("Operation failed, replacing browser session", map[string]interface{}{
				"attempt":      attempt - 1,
				"max_attempts": maxAttempts,
				"delay_ms":     delay.Milliseconds(),
			})
			if err := Wait(ctx, delay); err != nil {
				lastErr = err
				break
			}
			if session != nil {
				if err := session.Close(); err != nil {
					log.WithError(err).Debug("Closing failed session")
				}
				session = nil
			}
		}

		if session == nil {
			s, err := p.Factory.New(ctx)
			if err != nil {
				lastErr = err
				continue
			}
			session = s
		}

		result, err := op(ctx, session)
		if err == nil {
			return result, session
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	log.WithError(lastErr).ErrorWithFields("Giving up after retries", map[string]interface{}{
		"max_attempts": maxAttempts,
	})
	return zero, session
}
