package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
)

// Operation is one attempt of a retried call
type Operation func() error

// OperationWithResult is an attempt that also yields a value
type OperationWithResult[T any] func() (T, error)

// Config controls Do
type Config struct {
	// MaxAttempts caps the attempts; 0 retries until ctx is done
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether an error is worth another attempt. Nil means
	// DefaultRetryIf.
	RetryIf func(error) bool
	// OnRetry runs before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig is three attempts with exponential backoff, logged through
// the process logger
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	return cfg
}

// DefaultRetryIf retries typed network and session errors and any untyped
// error, but never a cancelled or expired context
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		if typed.Code != 0 {
			return errs.IsRetryableStatusCode(typed.Code)
		}
		return errs.IsRetryable(typed.Type)
	}
	return true
}

// Do runs op until it succeeds. It gives up on an error RetryIf rejects
// (returned as is), after MaxAttempts failures (wrapped), or when ctx is
// done while waiting.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := cfg.withDefaults()

	for attempt := 1; ; attempt++ {
		err := op()
		switch {
		case err == nil:
			if attempt > 1 {
				c.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		case !c.RetryIf(err):
			return err
		case c.MaxAttempts > 0 && attempt >= c.MaxAttempts:
			c.Logger.WithError(err).WarnWithFields("max retry attempts exceeded", map[string]interface{}{"attempts": attempt})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", c.MaxAttempts, err)
		}

		delay := c.Backoff.NextDelay(attempt)
		if c.OnRetry != nil {
			c.OnRetry(attempt, err, delay)
		}
		c.Logger.WithError(err).DebugWithFields("retrying operation", map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		})
		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
