// Package collector scrolls a community feed and collects its posts.
package collector

import (
	"context"
	"time"

	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
	"postarchiver/pkg/page"
	"postarchiver/pkg/retry"
)

// BlockReader returns the post blocks currently rendered in the feed
type BlockReader interface {
	ReadItemBlocks(ctx context.Context) ([]page.FieldMap, error)
}

// Scroller loads more of the feed and reports the document height
type Scroller interface {
	ScrollToBottom(ctx context.Context) error
	Height(ctx context.Context) (int64, error)
}

// Options tunes the scroll loop
type Options struct {
	// SettleDelay is waited after every scroll for lazy content to render
	SettleDelay time.Duration
	// StallThreshold is the number of consecutive cycles without new posts
	// required, together with an unchanged height, before the loop stops
	StallThreshold int
	// MemberOnly keeps only posts carrying the members badge
	MemberOnly bool
}

// DefaultOptions returns the loop settings used against the live site
func DefaultOptions() Options {
	return Options{SettleDelay: 2 * time.Second, StallThreshold: 3}
}

// Progress is reported after every scroll cycle
type Progress struct {
	Cycle     int
	Collected int
	Stalled   int
	Height    int64
}

// Engine runs the scroll, extract and dedup loop
type Engine struct {
	opts       Options
	logger     logger.Logger
	onProgress func(Progress)
}

// NewEngine creates an engine
func NewEngine(opts Options, log logger.Logger) *Engine {
	if opts.StallThreshold <= 0 {
		opts.StallThreshold = DefaultOptions().StallThreshold
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{opts: opts, logger: log.WithField("component", "collector")}
}

// OnProgress registers fn to be called after every cycle
func (e *Engine) OnProgress(fn func(Progress)) {
	e.onProgress = fn
}

// Collect scrolls the feed until it is exhausted or maxItems posts were
// collected (maxItems <= 0 means no cap) and returns the posts in discovery
// order. The loop ends when the height did not change since the previous
// cycle and no new post appeared for StallThreshold consecutive cycles;
// height alone is not trusted because the page grows before new posts are
// rendered. A cancelled ctx stops the loop at the next wait and returns what
// was collected with ctx's error.
func (e *Engine) Collect(ctx context.Context, reader BlockReader, scroller Scroller, maxItems int) ([]models.Item, error) {
	store := NewDedupStore()

	lastHeight, err := scroller.Height(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Could not measure initial feed height")
	}

	stalled := 0
	for cycle := 1; ; cycle++ {
		before := store.Len()

		if err := scroller.ScrollToBottom(ctx); err != nil {
			e.logger.WithError(err).WarnWithFields("Scroll failed", map[string]interface{}{"cycle": cycle})
		}
		if err := retry.Wait(ctx, e.opts.SettleDelay); err != nil {
			return store.Items(), err
		}

		blocks, err := reader.ReadItemBlocks(ctx)
		if err != nil {
			e.logger.WithError(err).WarnWithFields("Reading post blocks failed", map[string]interface{}{"cycle": cycle})
		}

		for _, block := range blocks {
			item, ok := ItemFromFields(block)
			if !ok {
				e.logger.Debug("Dropping post block without permalink")
				continue
			}
			if e.opts.MemberOnly && !item.MemberOnly {
				continue
			}
			if !store.Add(item) {
				continue
			}

			logger.LogPostFound(e.logger, item.PostURL, item.Timestamp, item.LikeCount, item.CommentCount, item.MemberOnly)
			if maxItems > 0 && store.Len() >= maxItems {
				e.logger.InfoWithFields("Reached requested number of posts", map[string]interface{}{"posts": maxItems})
				e.report(Progress{Cycle: cycle, Collected: store.Len(), Stalled: stalled, Height: lastHeight})
				return store.Items(), nil
			}
		}

		height, err := scroller.Height(ctx)
		if err != nil {
			e.logger.WithError(err).Warn("Could not measure feed height")
			height = lastHeight
		}

		if store.Len() == before {
			stalled++
		} else {
			stalled = 0
		}

		logger.LogScrollCycle(e.logger, cycle, store.Len(), height, lastHeight, stalled)
		e.report(Progress{Cycle: cycle, Collected: store.Len(), Stalled: stalled, Height: height})

		if height == lastHeight && stalled >= e.opts.StallThreshold {
			break
		}
		lastHeight = height
	}

	e.logger.InfoWithFields("Feed exhausted", map[string]interface{}{"posts": store.Len()})
	return store.Items(), nil
}

func (e *Engine) report(p Progress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}

// ItemFromFields builds an item from a post block. It returns false when the
// block has no permalink.
func ItemFromFields(fm page.FieldMap) (models.Item, bool) {
	key, ok := fm.String(page.FieldPostURL)
	if !ok || key == "" {
		return models.Item{}, false
	}

	item := models.Item{
		PostURL:      key,
		Timestamp:    fm.StringOr(page.FieldTimestamp, ""),
		MemberOnly:   fm.Bool(page.FieldMemberOnly),
		Links:        fm.Links(),
		Images:       []models.ImageRef{},
		LikeCount:    fm.StringOr(page.FieldLikeCount, "0"),
		CommentCount: fm.StringOr(page.FieldCommentCount, "0"),
	}
	if content, ok := fm.String(page.FieldContent); ok {
		item.Content = &content
	}
	return item, true
}
