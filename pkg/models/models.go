// Package models holds the records the archiver collects and persists.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Link is a shortened link found in a post body and the URL it resolves to
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ImageRef is one image attached to a post. Which URLs are set depends on the
// requested image quality. The *Path fields are filled after a successful
// download; the remote URLs are always kept.
type ImageRef struct {
	Standard     string `json:"standard,omitempty"`
	HighRes      string `json:"high_res,omitempty"`
	StandardPath string `json:"standard_path,omitempty"`
	HighResPath  string `json:"high_res_path,omitempty"`
}

// Comment is one top-level comment on a post
type Comment struct {
	CommenterName string  `json:"commenter_name"`
	Timestamp     string  `json:"timestamp"`
	Content       string  `json:"content"`
	LikeCount     string  `json:"like_count"`
	CommenterIcon *string `json:"commenter_icon"`
}

// Item is one community post. PostURL is its identity.
type Item struct {
	PostURL   string  `json:"post_url"`
	Timestamp string  `json:"timestamp"`
	Content   *string `json:"content"`
	// MemberOnly is set when the post carries the channel-members badge
	MemberOnly   bool       `json:"member_only"`
	Links        []Link     `json:"links"`
	Images       []ImageRef `json:"images"`
	LikeCount    string     `json:"like_count"`
	CommentCount string     `json:"comment_count"`
	// Comments stays nil until the comment phase ran for this item; an empty
	// non-nil slice means the phase ran and found nothing.
	Comments []Comment `json:"comments"`
}

// MarshalJSON omits the comments key for items the comment phase never touched.
// Post text and URLs are written without HTML escaping; an enclosing encoder
// cannot undo escaping done here.
func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	var comments *[]Comment
	if it.Comments != nil {
		comments = &it.Comments
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		plain
		Comments *[]Comment `json:"comments,omitempty"`
	}{plain(it), comments}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CollectionResult is everything one run produced
type CollectionResult struct {
	Channel     string
	ChannelIcon string
	CollectedAt time.Time
	Items       []Item
}

// Document is the on-disk JSON layout of a result
type Document struct {
	Channel         string `json:"channel"`
	ChannelIcon     string `json:"channel_icon"`
	ScrapeDate      string `json:"scrape_date"`
	ScrapeTimestamp int64  `json:"scrape_timestamp"`
	PostsCount      int    `json:"posts_count"`
	Posts           []Item `json:"posts"`
}

// NewDocument builds the document for r with posts truncated to the first
// processed items. PostsCount always reports the full item count.
func NewDocument(r *CollectionResult, processed int, now time.Time) Document {
	if processed < 0 {
		processed = 0
	}
	if processed > len(r.Items) {
		processed = len(r.Items)
	}
	posts := r.Items[:processed]
	if posts == nil {
		posts = []Item{}
	}
	return Document{
		Channel:         r.Channel,
		ChannelIcon:     r.ChannelIcon,
		ScrapeDate:      now.Format("2006-01-02T15:04:05.000000"),
		ScrapeTimestamp: now.Unix(),
		PostsCount:      len(r.Items),
		Posts:           posts,
	}
}
