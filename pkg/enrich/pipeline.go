package enrich

import (
	"context"
	"time"

	"postarchiver/internal/downloader"
	"postarchiver/pkg/browser"
	"postarchiver/pkg/collector"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
	"postarchiver/pkg/page"
	"postarchiver/pkg/ratelimit"
	"postarchiver/pkg/retry"
)

// Phase names reported in Progress
const (
	PhaseImages   = "images"
	PhaseDownload = "download"
	PhaseComments = "comments"
)

// Options selects the phases to run and their pacing
type Options struct {
	Images   bool
	Download bool
	Quality  page.ImageQuality
	Comments bool

	// SettleDelay is waited after navigating and after each scroll
	SettleDelay time.Duration
	// FocusDelay is waited after scrolling a post or icon row into view
	FocusDelay time.Duration
	// IconScrollStep is the stride of the commenter icon pass, in pixels
	IconScrollStep int
	// CheckpointInterval writes a snapshot after every n posts
	CheckpointInterval int
}

// DefaultOptions returns the pacing used against the live site
func DefaultOptions() Options {
	return Options{
		Quality:            page.QualityAll,
		SettleDelay:        2 * time.Second,
		FocusDelay:         500 * time.Millisecond,
		IconScrollStep:     500,
		CheckpointInterval: 5,
	}
}

// Checkpointer persists a truncated snapshot of the result
type Checkpointer interface {
	Checkpoint(r *models.CollectionResult, processed int) error
}

// ImageDownloader downloads the images of one post
type ImageDownloader interface {
	DownloadItem(ctx context.Context, postIndex int, item *models.Item) ([]downloader.Result, error)
}

// Progress reports the post a phase is working on
type Progress struct {
	Phase string
	Index int
	Total int
	Found int
}

// Pipeline adds images and comments to collected posts. Each post and each
// phase fails on its own: a post whose images or comments cannot be read
// keeps its defaults and the run goes on.
type Pipeline struct {
	opts       Options
	policy     *retry.SessionPolicy
	downloader ImageDownloader
	checkpoint Checkpointer
	navLimiter ratelimit.Limiter
	onProgress func(Progress)
	logger     logger.Logger
}

// NewPipeline creates a pipeline. policy is required for the comment phase,
// dl for downloads and cp for checkpoints; any of them may be nil otherwise.
func NewPipeline(opts Options, policy *retry.SessionPolicy, dl ImageDownloader, cp Checkpointer, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultOptions().CheckpointInterval
	}
	if opts.IconScrollStep <= 0 {
		opts.IconScrollStep = DefaultOptions().IconScrollStep
	}
	if opts.Quality == "" {
		opts.Quality = page.QualityAll
	}
	return &Pipeline{
		opts:       opts,
		policy:     policy,
		downloader: dl,
		checkpoint: cp,
		logger:     log.WithField("component", "enrich"),
	}
}

// WithNavigationLimiter paces permalink navigations in the comment phase
func (p *Pipeline) WithNavigationLimiter(l ratelimit.Limiter) *Pipeline {
	p.navLimiter = l
	return p
}

// OnProgress registers a callback invoked after each post in each phase
func (p *Pipeline) OnProgress(fn func(Progress)) {
	p.onProgress = fn
}

// Run enriches result.Items in place. session must show the feed the items
// were collected from. The session to keep using is returned; it differs
// from the one passed in when the comment phase had to replace it. A
// non-nil error means ctx ended the run; result then holds whatever was
// enriched so far.
func (p *Pipeline) Run(ctx context.Context, session browser.Session, result *models.CollectionResult) (browser.Session, error) {
	total := len(result.Items)

	if p.opts.Images {
		if err := p.imagePhase(ctx, session, result.Items); err != nil {
			return session, err
		}
	}

	if !p.opts.Images && !p.opts.Download && !p.opts.Comments {
		return session, nil
	}

	// the snapshot cadence runs whenever any phase did, images alone included

	for i := range result.Items {
		index := i + 1
		item := &result.Items[i]

		if p.opts.Download && p.downloader != nil && len(item.Images) > 0 {
			results, err := p.downloader.DownloadItem(ctx, index, item)
			if err != nil {
				return session, err
			}
			p.report(Progress{Phase: PhaseDownload, Index: index, Total: total, Found: len(results)})
		}

		if p.opts.Comments && p.policy != nil {
			comments, next := retry.WithSession(ctx, p.policy, session, func(ctx context.Context, s browser.Session) ([]models.Comment, error) {
				return p.fetchComments(ctx, s, item.PostURL)
			})
			session = next
			if err := ctx.Err(); err != nil {
				return session, err
			}
			if comments == nil {
				comments = []models.Comment{}
			}
			item.Comments = comments
			logger.LogEnrichment(p.logger, PhaseComments, index, total, item.PostURL, len(comments))
			p.report(Progress{Phase: PhaseComments, Index: index, Total: total, Found: len(comments)})
		}

		if p.checkpoint != nil && index%p.opts.CheckpointInterval == 0 {
			if err := p.checkpoint.Checkpoint(result, index); err != nil {
				p.logger.WithError(err).WarnWithFields("Failed to save progress", map[string]interface{}{
					"processed": index,
				})
			}
		}
	}

	return session, nil
}

// imagePhase reads the image URLs of every post from the feed page
func (p *Pipeline) imagePhase(ctx context.Context, session browser.Session, items []models.Item) error {
	reader := page.NewReader(session, p.logger)
	driver := collector.NewScrollDriver(session)

	if err := driver.ScrollTo(ctx, 0); err != nil {
		p.logger.WithError(err).Warn("Failed to scroll to top before image pass")
	}

	for i := range items {
		item := &items[i]
		index := i + 1

		images, err := p.readImages(ctx, reader, item.PostURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.WithError(err).WarnWithFields("Failed to read images", map[string]interface{}{
				"url": item.PostURL,
			})
			continue
		}
		if images == nil {
			continue
		}

		item.Images = images
		logger.LogEnrichment(p.logger, PhaseImages, index, len(items), item.PostURL, len(images))
		p.report(Progress{Phase: PhaseImages, Index: index, Total: len(items), Found: len(images)})
	}
	return nil
}

// readImages returns nil without an error when the post is not rendered
func (p *Pipeline) readImages(ctx context.Context, reader *page.Reader, postURL string) ([]models.ImageRef, error) {
	found, err := reader.ScrollPostIntoView(ctx, postURL)
	if err != nil {
		return nil, err
	}
	if !found {
		p.logger.WarnWithFields("Post not found on page", map[string]interface{}{"url": postURL})
		return nil, nil
	}

	if err := retry.Wait(ctx, p.opts.FocusDelay); err != nil {
		return nil, err
	}

	html, err := reader.PostMarkup(ctx, postURL)
	if err != nil {
		return nil, err
	}
	if html == "" {
		p.logger.WarnWithFields("Post not found on page", map[string]interface{}{"url": postURL})
		return nil, nil
	}
	return page.ParseImages(html, p.opts.Quality)
}

// fetchComments opens a post's permalink and reads its comments. A second
// pass walks back down the page so commenter avatars load before they are
// read and attached by position.
func (p *Pipeline) fetchComments(ctx context.Context, s browser.Session, postURL string) ([]models.Comment, error) {
	if p.navLimiter != nil {
		if err := p.navLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.Navigate(ctx, postURL); err != nil {
		return nil, err
	}
	if err := retry.Wait(ctx, p.opts.SettleDelay); err != nil {
		return nil, err
	}

	driver := collector.NewScrollDriver(s)
	height, err := driver.ScrollUntilStable(ctx, p.opts.SettleDelay)
	if err != nil {
		return nil, err
	}

	reader := page.NewReader(s, p.logger)
	comments, err := reader.ReadComments(ctx)
	if err != nil {
		return nil, err
	}

	if err := driver.ScrollTo(ctx, 0); err != nil {
		return nil, err
	}
	if err := retry.Wait(ctx, p.opts.SettleDelay); err != nil {
		return nil, err
	}
	if err := driver.StepThrough(ctx, height, p.opts.IconScrollStep, p.opts.FocusDelay); err != nil {
		return nil, err
	}

	icons, err := reader.ReadCommenterIcons(ctx)
	if err != nil {
		return nil, err
	}
	page.AttachIcons(comments, icons)

	return comments, nil
}

func (p *Pipeline) report(pr Progress) {
	if p.onProgress != nil {
		p.onProgress(pr)
	}
}
