package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"postarchiver/pkg/browser"
	"postarchiver/pkg/browser/browsertest"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Fatalf("Delay %v outside jitter range", delay)
		}
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")

	err := Do(context.Background(), func() error {
		attempts++
		return persistent
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	if !errors.Is(err, persistent) {
		t.Errorf("Expected wrapped persistent error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := &errs.Error{Type: errs.ErrorTypeNetwork, Message: "image gone", Code: 404}

	err := Do(context.Background(), func() error {
		attempts++
		return notFound
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	if err != notFound {
		t.Errorf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("fail")
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Second}})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"cancelled", context.Canceled, false},
		{"network", errs.New(errs.ErrorTypeNetwork, "reset"), true},
		{"session", errs.New(errs.ErrorTypeSession, "target closed"), true},
		{"config", errs.New(errs.ErrorTypeConfig, "bad"), false},
		{"server error", &errs.Error{Type: errs.ErrorTypeNetwork, Code: 503}, true},
		{"forbidden", &errs.Error{Type: errs.ErrorTypeNetwork, Code: 403}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
}

// countingFactory hands out fresh fake sessions and counts launches
type countingFactory struct {
	launched []*browsertest.Session
	failNext int
}

func (f *countingFactory) New(context.Context) (browser.Session, error) {
	if f.failNext > 0 {
		f.failNext--
		return nil, errs.New(errs.ErrorTypeSession, "browser did not start")
	}
	s := browsertest.New()
	f.launched = append(f.launched, s)
	return s, nil
}

func testPolicy(f SessionFactory) *SessionPolicy {
	return &SessionPolicy{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Factory:     f,
		Logger:      logger.NewNopLogger(),
	}
}

func TestWithSessionSucceedsFirstTime(t *testing.T) {
	factory := &countingFactory{}
	original := browsertest.New()

	got, session := WithSession(context.Background(), testPolicy(factory), browser.Session(original),
		func(ctx context.Context, s browser.Session) (int, error) { return 42, nil })

	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if session != browser.Session(original) {
		t.Error("Expected the original session to be kept")
	}
	if len(factory.launched) != 0 {
		t.Errorf("Expected no new sessions, got %d", len(factory.launched))
	}
}

func TestWithSessionReplacesSessionAfterFailure(t *testing.T) {
	factory := &countingFactory{}
	original := browsertest.New()
	calls := 0

	got, session := WithSession(context.Background(), testPolicy(factory), browser.Session(original),
		func(ctx context.Context, s browser.Session) ([]string, error) {
			calls++
			if s == browser.Session(original) {
				return nil, errors.New("navigation timeout")
			}
			return []string{"ok"}, nil
		})

	if len(got) != 1 || calls != 2 {
		t.Fatalf("Expected success on second call, got %v after %d calls", got, calls)
	}
	if !original.Closed() {
		t.Error("Expected failed session to be closed")
	}
	if len(factory.launched) != 1 || session != browser.Session(factory.launched[0]) {
		t.Error("Expected the replacement session to be returned")
	}
}

func TestWithSessionExhaustionReturnsZero(t *testing.T) {
	factory := &countingFactory{}
	calls := 0

	got, session := WithSession(context.Background(), testPolicy(factory), nil,
		func(ctx context.Context, s browser.Session) ([]string, error) {
			calls++
			return nil, errors.New("always fails")
		})

	if got != nil {
		t.Errorf("Expected zero result, got %v", got)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(factory.launched) != 3 {
		t.Errorf("Expected 3 launched sessions, got %d", len(factory.launched))
	}
	if session == nil || session != browser.Session(factory.launched[2]) {
		t.Error("Expected the latest session to be returned")
	}
	for i, s := range factory.launched[:2] {
		if !s.Closed() {
			t.Errorf("Expected session %d to be closed", i)
		}
	}
}

func TestWithSessionLaunchFailureUsesAttempt(t *testing.T) {
	factory := &countingFactory{failNext: 1}
	calls := 0

	_, session := WithSession(context.Background(), testPolicy(factory), nil,
		func(ctx context.Context, s browser.Session) (bool, error) {
			calls++
			return true, nil
		})

	if calls != 1 || session == nil {
		t.Errorf("Expected success on the second attempt, calls=%d session=%v", calls, session)
	}
}

func TestDefaultSessionPolicy(t *testing.T) {
	p := DefaultSessionPolicy(&countingFactory{}, nil)
	if p.MaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", p.MaxAttempts)
	}
	if d := p.Backoff.NextDelay(1); d != 5*time.Second {
		t.Errorf("Expected 5s backoff, got %v", d)
	}
}
