package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/proxy"
)

type chromeSession struct {
	family          Family
	ctx             context.Context
	cancel          context.CancelFunc
	allocCancel     context.CancelFunc
	navigateTimeout time.Duration
	closeOnce       sync.Once
}

// Launch starts a browser process and opens a tab. The session outlives ctx;
// ctx only bounds the launch itself, and the browser runs until Close.
func Launch(ctx context.Context, opts Options, p *proxy.Proxy, log logger.Logger) (Session, error) {
	if opts.Family == WebKit {
		return nil, errs.New(errs.ErrorTypeFatal, "webkit is not supported by the DevTools driver; use chromium or firefox")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(opts, p)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
	)

	s := &chromeSession{
		family:          opts.Family,
		ctx:             tabCtx,
		cancel:          cancel,
		allocCancel:     allocCancel,
		navigateTimeout: opts.NavigateTimeout,
	}

	setup := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
	}
	if p != nil && p.HasAuth() {
		listenForProxyAuth(tabCtx, *p)
		setup = append(setup, fetch.Enable().WithHandleAuthRequests(true))
	}

	if err := s.start(ctx, setup...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// start runs the first actions on the tab. The first run allocates the
// browser, and the process and its connection live exactly as long as the
// context of that run, so it must run on the tab context itself. ctx only
// aborts a launch that takes too long.
func (s *chromeSession) start(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, actions...) }()

	select {
	case err := <-done:
		if err != nil {
			return errs.Wrap(errs.ErrorTypeSession, "failed to start browser", err)
		}
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// listenForProxyAuth answers the proxy's auth challenge with p's credentials.
// Handlers must not block the event loop, so each reply runs in its own goroutine.
func listenForProxyAuth(ctx context.Context, p proxy.Proxy) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *fetch.EventRequestPaused:
			go func() {
				execCtx := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)
				_ = fetch.ContinueRequest(ev.RequestID).Do(execCtx)
			}()
		case *fetch.EventAuthRequired:
			go func() {
				execCtx := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)
				_ = fetch.ContinueWithAuth(ev.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: p.Username,
					Password: p.Password,
				}).Do(execCtx)
			}()
		}
	})
}

// run executes actions on an already started tab, aborting them when ctx is
// done. Cancelling runCtx only abandons the actions; the browser belongs to
// s.ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.Wrap(errs.ErrorTypeSession, "browser command failed", err)
	}
	return nil
}

func (s *chromeSession) Family() Family {
	return s.family
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if s.navigateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.navigateTimeout)
		defer cancel()
	}
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, fmt.Sprintf("failed to navigate to %s", url), err)
	}
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, res interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, res))
}

func (s *chromeSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s", ErrSelectorTimeout, selector)
	}
	return err
}

func (s *chromeSession) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) QueryAll(ctx context.Context, selector string) ([]string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => e.outerHTML)`, quoted)

	var nodes []string
	if err := s.Evaluate(ctx, script, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// closeTimeout bounds the graceful shutdown; after it the process is killed
const closeTimeout = 5 * time.Second

// Close shuts the browser down. It is safe to call more than once.
func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, closeTimeout)
		defer cancel()
		err = chromedp.Cancel(ctx)
		s.cancel()
		s.allocCancel()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
