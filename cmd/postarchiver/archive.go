package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"postarchiver/pkg/archiver"
	"postarchiver/pkg/config"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/page"
	"postarchiver/pkg/ui"
	"postarchiver/pkg/ui/tui"
)

var (
	getComments    bool
	getImages      bool
	downloadImages bool
	imageQuality   string
	proxySource    string
	useVault       bool
	outputDir      string
	verbose        bool
	trace          bool
	browserFamily  string
	memberOnly     bool
	useTUI         bool
	notify         bool
)

func init() {
	registerArchiveFlags(rootCmd.Flags())
}

func registerArchiveFlags(f *pflag.FlagSet) {
	f.BoolVarP(&getComments, "get-comments", "c", false, "collect the comments of every post")
	f.BoolVarP(&getImages, "get-images", "i", false, "collect image URLs of every post")
	f.BoolVarP(&downloadImages, "download-images", "d", false, "download collected images (requires -i)")
	f.StringVarP(&imageQuality, "image-quality", "q", "all", "image quality: sd, hd or all (requires -i)")
	f.StringVar(&proxySource, "proxy", "", "proxy file or URL (http(s)://user:pass@host:port or socks5://host:port)")
	f.BoolVar(&useVault, "proxy-vault", false, "use the proxies stored with 'postarchiver proxy add'")
	f.StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log progress details")
	f.BoolVarP(&trace, "trace", "t", false, "log everything, including caller information")
	f.StringVar(&browserFamily, "browser", "chromium", "browser: chromium, firefox or webkit")
	f.BoolVar(&memberOnly, "member-only", false, "keep only member-only posts")
	f.BoolVar(&useTUI, "tui", false, "show the interactive dashboard")
	f.BoolVar(&notify, "notify", false, "send a desktop notification when done")
}

// validateFeedURL accepts YouTube community tab URLs only
func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if u.Host != "www.youtube.com" {
		return fmt.Errorf("URL must be on www.youtube.com, got %q", u.Host)
	}
	if !strings.Contains(u.Path, "/community") {
		return fmt.Errorf("URL must point to a community tab (…/community)")
	}
	return nil
}

// collectFlags maps the flags and the amount argument the user actually gave
// to config keys, so defaults never override the config file or the
// environment. amountArg is empty when no amount was given.
func collectFlags(fs *pflag.FlagSet, amountArg string) (map[string]interface{}, error) {
	flags := map[string]interface{}{}

	if amountArg != "" {
		n, err := config.ParseAmount(amountArg)
		if err != nil {
			return nil, err
		}
		flags["amount"] = n
	}

	if fs.Changed("image-quality") {
		q := strings.ToLower(imageQuality)
		if q != "all" && !getImages {
			return nil, fmt.Errorf("--image-quality requires --get-images")
		}
		flags["image-quality"] = q
	}
	if downloadImages && !getImages {
		return nil, fmt.Errorf("--download-images requires --get-images")
	}

	setBool := func(name, key string, v bool) {
		if fs.Changed(name) {
			flags[key] = v
		}
	}
	setBool("get-comments", "get-comments", getComments)
	setBool("get-images", "get-images", getImages)
	setBool("download-images", "download-images", downloadImages)
	setBool("proxy-vault", "proxy-vault", useVault)
	setBool("member-only", "member-only", memberOnly)
	setBool("tui", "tui", useTUI)
	setBool("notify", "notify", notify)

	if fs.Changed("proxy") {
		flags["proxy"] = proxySource
	}
	if fs.Changed("output") {
		flags["output"] = outputDir
	}
	if fs.Changed("browser") {
		flags["browser"] = browserFamily
	}

	switch {
	case trace:
		flags["log-level"] = "debug"
		flags["caller"] = true
	case verbose:
		flags["log-level"] = "info"
	}
	return flags, nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	feedURL := strings.TrimSpace(args[0])
	if err := validateFeedURL(feedURL); err != nil {
		return err
	}

	var amountArg string
	if len(args) == 2 {
		amountArg = strings.TrimSpace(args[1])
	}

	flags, err := collectFlags(cmd.Flags(), amountArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel, _ := page.ChannelName(feedURL)

	if cfg.Notifications.TUI {
		return runWithDashboard(ctx, cfg, channel, feedURL)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ui.PrintBanner()
	ui.PrintInfo("Channel", channel)

	a, err := archiver.New(cfg, log)
	if err != nil {
		return err
	}
	a.SetReporter(ui.NewProgressDisplay(channel, verbose || trace))
	if cfg.Notifications.Enabled {
		a.SetNotifier(ui.NewNotifier())
	}

	_, err = a.Run(ctx, feedURL)
	return err
}

// runWithDashboard runs the archive in the background while the dashboard
// owns the terminal. Quitting the dashboard cancels the run, which still
// exports what it collected.
func runWithDashboard(ctx context.Context, cfg *config.Config, channel, feedURL string) error {
	dashboard := tui.NewTUI(channel)

	logCfg := cfg.Logging
	logCfg.Format = "json"
	if logCfg.Level == "warn" {
		logCfg.Level = "info"
	}
	log, err := logger.NewWithWriter(&logCfg, tui.NewLogWriter(dashboard))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)

	a, err := archiver.New(cfg, log)
	if err != nil {
		return err
	}
	a.SetReporter(dashboard)
	if cfg.Notifications.Enabled {
		a.SetNotifier(ui.NewNotifier())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		summary, err := a.Run(ctx, feedURL)
		if err != nil {
			dashboard.LogError("%v", err)
		} else if summary.OutputPath != "" {
			dashboard.LogInfo("Press q to exit")
		}
		done <- err
	}()

	if err := dashboard.Start(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("dashboard failed: %w", err)
	}

	cancel()
	return <-done
}
