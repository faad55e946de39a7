// Package browser drives a headless Chromium-family browser over the Chrome
// DevTools Protocol. A Session is one browser process with one tab.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postarchiver/pkg/config"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/proxy"
)

// Family names a browser engine
type Family string

const (
	Chromium Family = "chromium"
	Firefox  Family = "firefox"
	WebKit   Family = "webkit"
)

// ErrSelectorTimeout is returned when a selector does not appear in time
var ErrSelectorTimeout = errors.New("timed out waiting for selector")

// ParseFamily maps a user-supplied name to a Family
func ParseFamily(name string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(name))) {
	case Chromium, "chrome", "":
		return Chromium, nil
	case Firefox:
		return Firefox, nil
	case WebKit:
		return WebKit, nil
	default:
		return "", errs.New(errs.ErrorTypeConfig, fmt.Sprintf("unknown browser %q", name))
	}
}

// Session is a live browser page. Implementations are not safe for
// concurrent use; the archiver drives one operation at a time.
type Session interface {
	Family() Family
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// Evaluate runs script in the page and decodes its result into res.
	// res may be nil when the script returns nothing.
	Evaluate(ctx context.Context, script string, res interface{}) error
	// WaitForSelector blocks until selector matches a visible element.
	// It returns ErrSelectorTimeout after timeout.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the current document markup
	Content(ctx context.Context) (string, error)
	// QueryAll returns the outer HTML of every element matching selector
	QueryAll(ctx context.Context, selector string) ([]string, error)
	Close() error
}

// Options controls how sessions are launched
type Options struct {
	Family          Family
	ExecPath        string
	Headless        bool
	UserAgent       string
	WindowWidth     int
	WindowHeight    int
	NavigateTimeout time.Duration
}

// OptionsFromConfig builds launch options from the browser config section
func OptionsFromConfig(cfg config.BrowserConfig) (Options, error) {
	family, err := ParseFamily(cfg.Family)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Family:          family,
		ExecPath:        cfg.ExecPath,
		Headless:        cfg.Headless,
		UserAgent:       cfg.UserAgent,
		WindowWidth:     cfg.WindowWidth,
		WindowHeight:    cfg.WindowHeight,
		NavigateTimeout: cfg.NavigateTimeout,
	}, nil
}

// Launcher starts a browser session, optionally behind p
type Launcher func(ctx context.Context, opts Options, p *proxy.Proxy, log logger.Logger) (Session, error)

// Factory creates sessions of one family, rotating through the proxy pool
type Factory struct {
	opts   Options
	pool   *proxy.Pool
	launch Launcher
	logger logger.Logger
}

// NewFactory creates a factory. pool may be nil when no proxies are configured.
func NewFactory(opts Options, pool *proxy.Pool, log logger.Logger) *Factory {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Factory{
		opts:   opts,
		pool:   pool,
		launch: Launch,
		logger: log.WithField("component", "browser"),
	}
}

// WithLauncher replaces the launcher, used by tests
func (f *Factory) WithLauncher(l Launcher) *Factory {
	f.launch = l
	return f
}

// Family returns the browser family every session of this factory uses
func (f *Factory) Family() Family {
	return f.opts.Family
}

// New launches a session using the next proxy of the pool, if any
func (f *Factory) New(ctx context.Context) (Session, error) {
	var p *proxy.Proxy
	if f.pool != nil {
		next, err := f.pool.Next()
		if err != nil {
			return nil, err
		}
		p = &next
	}

	fields := map[string]interface{}{"browser": string(f.opts.Family)}
	if p != nil {
		fields["proxy"] = p.String()
	}
	f.logger.DebugWithFields("Launching browser session", fields)

	s, err := f.launch(ctx, f.opts, p, f.logger)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeSession, "failed to launch browser", err)
	}
	return s, nil
}
