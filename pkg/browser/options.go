package browser

import (
	"github.com/chromedp/chromedp"
	"postarchiver/pkg/proxy"
)

const (
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 1024
)

// firefoxExecutable is looked up on PATH when no explicit path is configured
const firefoxExecutable = "firefox"

// AllocatorOptions builds the exec allocator flags for opts, routing traffic
// through p when it is not nil
func AllocatorOptions(opts Options, p *proxy.Proxy) []chromedp.ExecAllocatorOption {
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = DefaultWindowWidth, DefaultWindowHeight
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(width, height),
	)

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	switch {
	case opts.ExecPath != "":
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	case opts.Family == Firefox:
		allocOpts = append(allocOpts, chromedp.ExecPath(firefoxExecutable))
	}

	if p != nil {
		allocOpts = append(allocOpts, chromedp.ProxyServer(p.Server()))
	}

	return allocOpts
}
