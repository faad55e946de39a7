package collector

import "postarchiver/pkg/models"

// DedupStore keeps items unique by post URL, in first-seen order
type DedupStore struct {
	seen  map[string]struct{}
	items []models.Item
}

// NewDedupStore creates an empty store
func NewDedupStore() *DedupStore {
	return &DedupStore{seen: make(map[string]struct{})}
}

// Seen reports whether key was already recorded
func (d *DedupStore) Seen(key string) bool {
	_, ok := d.seen[key]
	return ok
}

// Add records item unless its key was seen before. It reports whether the
// item was new.
func (d *DedupStore) Add(item models.Item) bool {
	if item.PostURL == "" || d.Seen(item.PostURL) {
		return false
	}
	d.seen[item.PostURL] = struct{}{}
	d.items = append(d.items, item)
	return true
}

// Len returns the number of recorded items
func (d *DedupStore) Len() int {
	return len(d.items)
}

// Items returns the recorded items in discovery order
func (d *DedupStore) Items() []models.Item {
	out := make([]models.Item, len(d.items))
	copy(out, d.items)
	return out
}
