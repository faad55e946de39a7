package collector

import (
	"context"
	"fmt"
	"time"

	"postarchiver/pkg/browser"
	"postarchiver/pkg/retry"
)

const (
	scriptHeight         = "document.documentElement.scrollHeight"
	scriptScrollToBottom = "window.scrollTo(0, document.documentElement.scrollHeight)"
)

// ScrollDriver scrolls the page of a browser session and measures it
type ScrollDriver struct {
	session browser.Session
}

// NewScrollDriver creates a driver for session
func NewScrollDriver(session browser.Session) *ScrollDriver {
	return &ScrollDriver{session: session}
}

// Height returns the document scroll height
func (d *ScrollDriver) Height(ctx context.Context) (int64, error) {
	var h float64
	if err := d.session.Evaluate(ctx, scriptHeight, &h); err != nil {
		return 0, err
	}
	return int64(h), nil
}

// ScrollToBottom scrolls to the current end of the document
func (d *ScrollDriver) ScrollToBottom(ctx context.Context) error {
	return d.session.Evaluate(ctx, scriptScrollToBottom, nil)
}

// ScrollTo scrolls to vertical offset y
func (d *ScrollDriver) ScrollTo(ctx context.Context, y int64) error {
	return d.session.Evaluate(ctx, fmt.Sprintf("window.scrollTo(0, %d)", y), nil)
}

// ScrollUntilStable scrolls to the bottom, waiting settle after each scroll,
// until the height stops changing. It returns the final height.
func (d *ScrollDriver) ScrollUntilStable(ctx context.Context, settle time.Duration) (int64, error) {
	last, err := d.Height(ctx)
	if err != nil {
		return 0, err
	}

	for {
		if err := d.ScrollToBottom(ctx); err != nil {
			return last, err
		}
		if err := retry.Wait(ctx, settle); err != nil {
			return last, err
		}
		h, err := d.Height(ctx)
		if err != nil {
			return last, err
		}
		if h == last {
			return h, nil
		}
		last = h
	}
}

// StepThrough scrolls from the top to height in steps of step pixels, waiting
// delay at each stop so lazily loaded images get requested
func (d *ScrollDriver) StepThrough(ctx context.Context, height int64, step int, delay time.Duration) error {
	if step <= 0 {
		return fmt.Errorf("invalid scroll step %d", step)
	}
	for y := int64(0); y < height; y += int64(step) {
		if err := d.ScrollTo(ctx, y); err != nil {
			return err
		}
		if err := retry.Wait(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}
