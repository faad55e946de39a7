package archiver

import (
	"context"
	"fmt"
	"time"

	"postarchiver/internal/downloader"
	"postarchiver/pkg/browser"
	"postarchiver/pkg/checkpoint"
	"postarchiver/pkg/collector"
	"postarchiver/pkg/config"
	"postarchiver/pkg/enrich"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/fetch"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
	"postarchiver/pkg/page"
	"postarchiver/pkg/ratelimit"
	"postarchiver/pkg/retry"
	"postarchiver/pkg/storage"
	"postarchiver/pkg/ui"
)

// Archiver runs one archive of a community feed: startup, collection,
// enrichment and the final export
type Archiver struct {
	cfg      *config.Config
	factory  retry.SessionFactory
	fetcher  downloader.Fetcher
	reporter ui.Reporter
	notifier *ui.Notifier
	logger   logger.Logger
	now      func() time.Time
}

// New creates an archiver from cfg. Proxies are resolved here, so a run
// that asked for proxies and has none fails before any browser starts.
func New(cfg *config.Config, log logger.Logger) (*Archiver, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	opts, err := browser.OptionsFromConfig(cfg.Browser)
	if err != nil {
		return nil, err
	}

	pool, err := LoadProxies(cfg.Proxy, nil)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		log.InfoWithFields("Using proxies", map[string]interface{}{"count": pool.Len()})
	}

	client := fetch.NewClient(cfg.Download.Timeout, cfg.Download.UserAgent, log)
	return NewWithFactory(cfg, browser.NewFactory(opts, pool, log), client, log), nil
}

// NewWithFactory creates an archiver around an existing session factory and
// image fetcher
func NewWithFactory(cfg *config.Config, factory retry.SessionFactory, fetcher downloader.Fetcher, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Archiver{
		cfg:      cfg,
		factory:  factory,
		fetcher:  fetcher,
		reporter: ui.NopReporter{},
		logger:   log.WithField("component", "archiver"),
		now:      time.Now,
	}
}

// SetReporter sets where progress events go
func (a *Archiver) SetReporter(r ui.Reporter) {
	if r == nil {
		r = ui.NopReporter{}
	}
	a.reporter = r
}

// SetNotifier enables desktop notifications for the run summary
func (a *Archiver) SetNotifier(n *ui.Notifier) {
	a.notifier = n
}

// SetClock replaces the clock used for the run timestamp, used by tests
func (a *Archiver) SetClock(now func() time.Time) {
	a.now = now
}

// Run archives the feed at feedURL. The returned error is always a startup
// failure: a bad URL, no browser session or an unreachable feed. Once
// collection has begun every failure degrades the result instead, and a
// cancelled ctx still writes what was gathered, flagged as interrupted.
func (a *Archiver) Run(ctx context.Context, feedURL string) (ui.Summary, error) {
	started := a.now()

	channel, err := page.ChannelName(feedURL)
	if err != nil {
		return ui.Summary{}, err
	}
	log := a.logger.WithField("channel", channel)
	summary := ui.Summary{Channel: channel}

	a.reporter.Phase(ui.PhaseStartup)
	logger.LogComponentStart(log, "archiver", map[string]interface{}{
		"url":         feedURL,
		"max_posts":   a.cfg.Collection.MaxPosts,
		"images":      a.cfg.Enrichment.GetImages,
		"download":    a.cfg.Enrichment.DownloadImages,
		"comments":    a.cfg.Enrichment.GetComments,
		"member_only": a.cfg.Collection.MemberOnly,
	})

	session, err := a.factory.New(ctx)
	if err != nil {
		return summary, errs.Wrap(errs.ErrorTypeFatal, "could not start a browser session", err)
	}
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	if err := session.Navigate(ctx, feedURL); err != nil {
		return summary, errs.Wrap(errs.ErrorTypeFatal, fmt.Sprintf("could not open %s", feedURL), err)
	}

	store, err := storage.NewManager(a.cfg.Output.BaseDirectory, channel, started, log)
	if err != nil {
		return summary, errs.Wrap(errs.ErrorTypeFatal, "no writable output directory", err)
	}
	writer := checkpoint.NewWriter(store.RunDir(), channel, store.Stamp(), log).WithClock(a.now)

	result := &models.CollectionResult{
		Channel:     channel,
		CollectedAt: started,
		Items:       []models.Item{},
	}

	if err := session.WaitForSelector(ctx, page.PostThread, a.cfg.Browser.SelectorTimeout); err != nil {
		if ctx.Err() != nil {
			return a.finish(log, writer, result, summary, started, true), nil
		}
		log.WithError(err).Warn("No posts found")
		a.reporter.LogWarning("No posts found on %s", feedURL)
		return a.finish(log, writer, result, summary, started, false), nil
	}

	reader := page.NewReader(session, log)
	if icon, err := reader.ChannelIcon(ctx); err != nil {
		log.WithError(err).Warn("Could not read channel icon")
	} else {
		result.ChannelIcon = icon
	}

	a.reporter.Phase(ui.PhaseCollect)
	engine := collector.NewEngine(collector.Options{
		SettleDelay:    a.cfg.Browser.SettleDelay,
		StallThreshold: a.cfg.Collection.StallThreshold,
		MemberOnly:     a.cfg.Collection.MemberOnly,
	}, log)
	engine.OnProgress(func(p collector.Progress) {
		a.reporter.ScrollCycle(p.Cycle, p.Collected, p.Stalled, p.Height)
	})

	items, err := engine.Collect(ctx, reader, collector.NewScrollDriver(session), a.cfg.Collection.MaxPosts)
	if items != nil {
		result.Items = items
	}
	if err != nil {
		return a.finish(log, writer, result, summary, started, true), nil
	}
	a.reporter.LogInfo("Collected %d posts", len(result.Items))

	if a.enrichmentRequested() && len(result.Items) > 0 {
		var failed int
		session, err = a.enrich(ctx, log, session, store, writer, result, &failed)
		summary.FailedDownloads = failed
		if err != nil {
			return a.finish(log, writer, result, summary, started, true), nil
		}
	}

	return a.finish(log, writer, result, summary, started, false), nil
}

func (a *Archiver) enrichmentRequested() bool {
	e := a.cfg.Enrichment
	return e.GetImages || e.DownloadImages || e.GetComments
}

// enrich runs the image, download and comment phases and returns the session
// to close afterwards
func (a *Archiver) enrich(ctx context.Context, log logger.Logger, session browser.Session, store *storage.Manager,
	writer *checkpoint.Writer, result *models.CollectionResult, failed *int) (browser.Session, error) {
	e := a.cfg.Enrichment

	var dl enrich.ImageDownloader
	if e.DownloadImages {
		d := downloader.New(a.fetcher, store, ratelimit.PerMinute(a.cfg.Download.RequestsPerMinute), log)
		d.OnResult(func(r downloader.Result) {
			if r.Error != nil {
				*failed++
			}
			a.reporter.ImageDownloaded(r.URL, r.Path, r.Size, r.Error)
		})
		dl = d
	}

	policy := &retry.SessionPolicy{
		MaxAttempts: e.RetryAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: e.RetryBackoff},
		Factory:     a.factory,
		Logger:      log,
	}

	pipeline := enrich.NewPipeline(enrich.Options{
		Images:             e.GetImages,
		Download:           e.DownloadImages,
		Quality:            page.ImageQuality(e.ImageQuality),
		Comments:           e.GetComments,
		SettleDelay:        a.cfg.Browser.SettleDelay,
		FocusDelay:         e.FocusDelay,
		IconScrollStep:     e.IconScrollStep,
		CheckpointInterval: e.CheckpointInterval,
	}, policy, dl, &reportingCheckpointer{writer: writer, reporter: a.reporter}, log)

	if a.cfg.Browser.SettleDelay > 0 {
		pipeline.WithNavigationLimiter(ratelimit.NewTokenBucket(1, a.cfg.Browser.SettleDelay))
	}

	phase := ""
	pipeline.OnProgress(func(p enrich.Progress) {
		if p.Phase != phase {
			phase = p.Phase
			a.reporter.Phase(phase)
		}
		a.reporter.PostProgress(p.Phase, p.Index, p.Total, p.Found)
	})

	if e.GetImages {
		phase = ui.PhaseImages
		a.reporter.Phase(phase)
	}
	return pipeline.Run(ctx, session, result)
}

// finish writes the final document and reports the summary
func (a *Archiver) finish(log logger.Logger, writer *checkpoint.Writer, result *models.CollectionResult,
	summary ui.Summary, started time.Time, interrupted bool) ui.Summary {
	if interrupted {
		log.WarnWithFields("Run interrupted, saving collected posts", map[string]interface{}{
			"posts": len(result.Items),
		})
	}

	path, err := writer.Finalize(result)
	if err != nil {
		log.WithError(err).Error("Failed to export posts")
		a.reporter.LogError("Failed to export posts: %v", err)
	}

	summary.Posts = len(result.Items)
	summary.OutputPath = path
	summary.Interrupted = interrupted
	summary.Elapsed = a.now().Sub(started)
	for _, item := range result.Items {
		summary.Images += len(item.Images)
		summary.Comments += len(item.Comments)
	}

	a.reporter.Phase(ui.PhaseDone)
	a.reporter.Complete(summary)
	if a.notifier != nil {
		a.notifier.Summary(summary)
	}
	logger.LogComponentStop(log, "archiver", fmt.Sprintf("%d posts exported", summary.Posts))
	return summary
}

// reportingCheckpointer forwards snapshots to the writer and tells the
// reporter about them
type reportingCheckpointer struct {
	writer   *checkpoint.Writer
	reporter ui.Reporter
}

func (c *reportingCheckpointer) Checkpoint(r *models.CollectionResult, processed int) error {
	if err := c.writer.Checkpoint(r, processed); err != nil {
		return err
	}
	c.reporter.Checkpoint(processed, c.writer.TempPath())
	return nil
}
