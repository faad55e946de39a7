package page

import "postarchiver/pkg/models"

// FieldMap is the raw field set read from one post block. Keys are the
// Field* constants; a key is absent when the block did not carry the field.
type FieldMap map[string]interface{}

const (
	FieldPostURL      = "post_url"
	FieldTimestamp    = "timestamp"
	FieldContent      = "content"
	FieldLinks        = "links"
	FieldLikeCount    = "like_count"
	FieldCommentCount = "comment_count"
	FieldMemberOnly   = "member_only"
)

// String returns the string stored under key
func (f FieldMap) String(key string) (string, bool) {
	v, ok := f[key].(string)
	return v, ok
}

// StringOr returns the string stored under key, or def
func (f FieldMap) StringOr(key, def string) string {
	if v, ok := f.String(key); ok {
		return v
	}
	return def
}

// Bool returns the bool stored under key, false when absent
func (f FieldMap) Bool(key string) bool {
	v, _ := f[key].(bool)
	return v
}

// Links returns the expanded links, never nil
func (f FieldMap) Links() []models.Link {
	if v, ok := f[FieldLinks].([]models.Link); ok && v != nil {
		return v
	}
	return []models.Link{}
}
