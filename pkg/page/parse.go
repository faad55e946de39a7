package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"postarchiver/pkg/models"
)

// ImageQuality selects which image URLs are recorded
type ImageQuality string

const (
	QualitySD  ImageQuality = "sd"
	QualityHD  ImageQuality = "hd"
	QualityAll ImageQuality = "all"
)

// WantsStandard reports whether standard-resolution URLs are recorded
func (q ImageQuality) WantsStandard() bool { return q == QualitySD || q == QualityAll }

// WantsHighRes reports whether high-resolution URLs are recorded
func (q ImageQuality) WantsHighRes() bool { return q == QualityHD || q == QualityAll }

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return doc, nil
}

// ParsePostBlock reads the fields of one post thread
func ParsePostBlock(html string) (FieldMap, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	fields := FieldMap{
		FieldMemberOnly: doc.Find(MemberBadge).Length() > 0,
	}

	if a := doc.Find(PostPermalink).First(); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			fields[FieldPostURL] = resolve(href)
			fields[FieldTimestamp] = a.Text()
		}
	}

	if content := doc.Find(PostContent).First(); content.Length() > 0 {
		text, links := ExpandLinks(content)
		fields[FieldContent] = text
		fields[FieldLinks] = links
	}

	fields[FieldLikeCount] = "0"
	if like := doc.Find(LikeCount).First(); like.Length() > 0 {
		fields[FieldLikeCount] = strings.TrimSpace(like.Text())
	}

	fields[FieldCommentCount] = "0"
	if cc := doc.Find(CommentCount).First(); cc.Length() > 0 {
		if tokens := strings.Fields(cc.Text()); len(tokens) > 0 {
			fields[FieldCommentCount] = tokens[0]
		}
	}

	return fields, nil
}

// ExpandLinks returns the text of content with every shortened link label
// replaced by its absolute URL, and the label/URL pairs in document order
func ExpandLinks(content *goquery.Selection) (string, []models.Link) {
	text := content.Text()
	links := []models.Link{}

	content.Find(ContentLink).Each(func(_ int, a *goquery.Selection) {
		label := a.Text()
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "/") {
			href = BaseURL + href
		}
		if label != "" {
			text = strings.ReplaceAll(text, label, href)
		}
		links = append(links, models.Link{Text: label, URL: href})
	})

	return text, links
}

// ParseImages reads the attached images of a post thread. The multi-image
// layout wins over the single-image one when both are present.
func ParseImages(html string, quality ImageQuality) ([]models.ImageRef, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	images := []models.ImageRef{}
	add := func(img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		src = FixScheme(src)

		var ref models.ImageRef
		if quality.WantsStandard() {
			ref.Standard = src
		}
		if quality.WantsHighRes() {
			ref.HighRes = HighRes(src)
		}
		images = append(images, ref)
	}

	if multi := doc.Find(MultiImage); multi.Length() > 0 {
		multi.Each(func(_ int, img *goquery.Selection) { add(img) })
		return images, nil
	}

	if single := doc.Find(SingleImage).First(); single.Length() > 0 {
		add(single)
	}
	return images, nil
}

// ParseComments reads every comment thread of a post page
func ParseComments(html string) ([]models.Comment, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	doc.Find(CommentThread).Each(func(_ int, thread *goquery.Selection) {
		comments = append(comments, models.Comment{
			CommenterName: trimmedText(thread, CommenterName, ""),
			Timestamp:     trimmedText(thread, CommentTimestamp, ""),
			Content:       trimmedText(thread, CommentContent, ""),
			LikeCount:     trimmedText(thread, CommentLikes, "0"),
		})
	})
	return comments, nil
}

// ParseCommenterIcons returns one entry per comment thread, in order; an entry
// is nil when the avatar has not loaded
func ParseCommenterIcons(html string) ([]*string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var icons []*string
	doc.Find(CommentThread).Each(func(_ int, thread *goquery.Selection) {
		var icon *string
		if src, ok := thread.Find(CommenterIcon).First().Attr("src"); ok && src != "" {
			fixed := FixScheme(src)
			icon = &fixed
		}
		icons = append(icons, icon)
	})
	return icons, nil
}

// AttachIcons copies icons onto comments by position
func AttachIcons(comments []models.Comment, icons []*string) {
	for i, icon := range icons {
		if i >= len(comments) {
			break
		}
		if icon != nil {
			comments[i].CommenterIcon = icon
		}
	}
}

// ParseChannelIcon reads the channel avatar from the feed markup
func ParseChannelIcon(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	src, _ := doc.Find(ChannelIcon).First().Attr("src")
	return FixScheme(src), nil
}

// ChannelName returns the handle of a channel URL such as
// https://www.youtube.com/@handle/community
func ChannelName(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	_, rest, found := strings.Cut(u.Path, "@")
	if !found {
		return "", fmt.Errorf("no channel handle in %q", pageURL)
	}
	name, _, _ := strings.Cut(rest, "/")
	if name == "" {
		return "", fmt.Errorf("empty channel handle in %q", pageURL)
	}
	return name, nil
}

// HighRes derives the 2160px variant of an image URL
func HighRes(src string) string {
	if src == "" {
		return ""
	}
	base, _, _ := strings.Cut(src, "=")
	return base + highResSuffix
}

// FixScheme turns protocol-relative URLs into https ones
func FixScheme(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// PostKey returns the trailing path segment of a post permalink, used to
// find the post's anchor in the feed
func PostKey(postURL string) string {
	trimmed := strings.TrimRight(postURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func resolve(href string) string {
	base, _ := url.Parse(BaseURL)
	ref, err := url.Parse(href)
	if err != nil {
		return BaseURL + href
	}
	return base.ResolveReference(ref).String()
}

func trimmedText(s *goquery.Selection, selector, def string) string {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return def
	}
	return strings.TrimSpace(el.Text())
}
