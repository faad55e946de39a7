package page

import (
	"context"
	"encoding/json"
	"fmt"

	"postarchiver/pkg/browser"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
)

// Reader reads community tab markup from a live browser session
type Reader struct {
	session browser.Session
	logger  logger.Logger
}

// NewReader creates a reader over session
func NewReader(session browser.Session, log logger.Logger) *Reader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Reader{session: session, logger: log}
}

// ReadItemBlocks returns the fields of every post thread currently rendered.
// A block whose markup cannot be parsed is skipped.
func (r *Reader) ReadItemBlocks(ctx context.Context) ([]FieldMap, error) {
	blocks, err := r.session.QueryAll(ctx, PostThread)
	if err != nil {
		return nil, err
	}

	fields := make([]FieldMap, 0, len(blocks))
	for i, html := range blocks {
		fm, err := ParsePostBlock(html)
		if err != nil {
			r.logger.WithError(err).WarnWithFields("Skipping unreadable post block", map[string]interface{}{"index": i})
			continue
		}
		fields = append(fields, fm)
	}
	return fields, nil
}

// ChannelIcon reads the channel avatar URL from the current page
func (r *Reader) ChannelIcon(ctx context.Context) (string, error) {
	html, err := r.session.Content(ctx)
	if err != nil {
		return "", err
	}
	return ParseChannelIcon(html)
}

// ScrollPostIntoView scrolls the post with the given permalink into view.
// It returns false when the post is not rendered.
func (r *Reader) ScrollPostIntoView(ctx context.Context, postURL string) (bool, error) {
	sel, err := anchorSelector(postURL)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(`(() => {
		const a = document.querySelector(%s);
		if (!a) return false;
		a.scrollIntoView(true);
		return true;
	})()`, sel)

	var found bool
	if err := r.session.Evaluate(ctx, script, &found); err != nil {
		return false, err
	}
	return found, nil
}

// PostMarkup returns the outer HTML of the thread holding the post with the
// given permalink, or "" when it is not rendered
func (r *Reader) PostMarkup(ctx context.Context, postURL string) (string, error) {
	sel, err := anchorSelector(postURL)
	if err != nil {
		return "", err
	}
	thread, _ := json.Marshal(PostThread)
	script := fmt.Sprintf(`(() => {
		const a = document.querySelector(%s);
		const t = a && a.closest(%s);
		return t ? t.outerHTML : "";
	})()`, sel, thread)

	var html string
	if err := r.session.Evaluate(ctx, script, &html); err != nil {
		return "", err
	}
	return html, nil
}

// ReadComments parses the comment threads rendered on a post page
func (r *Reader) ReadComments(ctx context.Context) ([]models.Comment, error) {
	html, err := r.session.Content(ctx)
	if err != nil {
		return nil, err
	}
	return ParseComments(html)
}

// ReadCommenterIcons returns the avatar of each rendered comment thread, in order
func (r *Reader) ReadCommenterIcons(ctx context.Context) ([]*string, error) {
	html, err := r.session.Content(ctx)
	if err != nil {
		return nil, err
	}
	return ParseCommenterIcons(html)
}

// anchorSelector returns a JSON-quoted selector for the permalink anchor
func anchorSelector(postURL string) (string, error) {
	key := PostKey(postURL)
	if key == "" {
		return "", fmt.Errorf("post URL %q has no key", postURL)
	}
	quoted, err := json.Marshal(fmt.Sprintf(`a[href*=%q]`, key))
	if err != nil {
		return "", err
	}
	return string(quoted), nil
}
