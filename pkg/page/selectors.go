package page

// Community tab DOM selectors. YouTube changes this markup without notice;
// when extraction breaks, this is the file to update.

const (
	// BaseURL resolves relative post and link hrefs
	BaseURL = "https://www.youtube.com"

	// Feed
	PostThread  = "ytd-backstage-post-thread-renderer"
	ChannelIcon = PostThread + " > div > ytd-backstage-post-renderer > div > div > a > yt-img-shadow > img"

	// Post block, relative to a thread
	MemberBadge   = "div > ytd-backstage-post-renderer span ytd-sponsors-only-badge-renderer"
	PostPermalink = "div > ytd-backstage-post-renderer > div > div > div > div > yt-formatted-string > a"
	PostContent   = "yt-formatted-string#content-text"
	ContentLink   = "a.yt-simple-endpoint"
	LikeCount     = "ytd-comment-action-buttons-renderer > div > span"
	CommentCount  = "ytd-comment-action-buttons-renderer > div > div > ytd-button-renderer > yt-button-shape > a > div > span"

	// Attachments, relative to a thread
	MultiImage  = "div#content-attachment ytd-post-multi-image-renderer img#img"
	SingleImage = "div#content-attachment ytd-backstage-image-renderer img#img"

	// Comments on a post page
	CommentThread    = "ytd-comment-thread-renderer"
	CommenterName    = "div > div > div > h3 > a > span"
	CommentTimestamp = "div > div > div > div > span > a"
	CommentContent   = "div > div > ytd-expander > div > yt-attributed-string"
	CommentLikes     = "div > div > ytd-comment-engagement-bar > div > span"
	CommenterIcon    = "ytd-comment-view-model > div > div > a > yt-img-shadow > img"
)

// high resolution variant appended to image URLs after the first '='
const highResSuffix = "=s2160"
