// Package browsertest provides a scriptable browser.Session for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"postarchiver/pkg/browser"
)

// Session records calls and delegates to the optional hook functions.
// Unset hooks succeed with zero values.
type Session struct {
	FamilyName browser.Family

	NavigateFunc func(ctx context.Context, url string) error
	EvaluateFunc func(ctx context.Context, script string) (interface{}, error)
	WaitFunc     func(ctx context.Context, selector string, timeout time.Duration) error
	ContentFunc  func(ctx context.Context) (string, error)
	QueryAllFunc func(ctx context.Context, selector string) ([]string, error)

	mu        sync.Mutex
	navigated []string
	scripts   []string
	closed    bool
}

var _ browser.Session = (*Session)(nil)

// New returns a chromium session with no hooks
func New() *Session {
	return &Session{FamilyName: browser.Chromium}
}

func (s *Session) Family() browser.Family {
	return s.FamilyName
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	s.mu.Unlock()

	if s.NavigateFunc != nil {
		return s.NavigateFunc(ctx, url)
	}
	return nil
}

// Evaluate passes the hook's return value through JSON into res, the way
// the DevTools driver decodes script results
func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	s.mu.Lock()
	s.scripts = append(s.scripts, script)
	s.mu.Unlock()

	if s.EvaluateFunc == nil {
		return nil
	}
	v, err := s.EvaluateFunc(ctx, script)
	if err != nil || res == nil || v == nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if s.WaitFunc != nil {
		return s.WaitFunc(ctx, selector, timeout)
	}
	return nil
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if s.ContentFunc != nil {
		return s.ContentFunc(ctx)
	}
	return "<html><body></body></html>", nil
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]string, error) {
	if s.QueryAllFunc != nil {
		return s.QueryAllFunc(ctx, selector)
	}
	return nil, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Navigated returns every URL passed to Navigate
func (s *Session) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigated...)
}

// Scripts returns every script passed to Evaluate
func (s *Session) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}
