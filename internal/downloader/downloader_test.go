package downloader

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
)

// mockFetcher serves canned bodies and fails for URLs in failures
type mockFetcher struct {
	failures map[string]bool
	requests []string
	mu       sync.Mutex
}

func (m *mockFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, url)
	if m.failures[url] {
		return nil, errors.New("connection reset")
	}
	return []byte("data:" + url), nil
}

// mockStorage keeps saved images in memory
type mockStorage struct {
	saved     map[string][]byte
	saveError error
}

func newMockStorage() *mockStorage {
	return &mockStorage{saved: make(map[string][]byte)}
}

func (m *mockStorage) IsSaved(name string) bool {
	_, ok := m.saved[name]
	return ok
}

func (m *mockStorage) SaveImage(r io.Reader, name string) (string, error) {
	if m.saveError != nil {
		return "", m.saveError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return filepath.Join(m.ImagesDir(), name), nil
}

func (m *mockStorage) ImagesDir() string {
	return "/run/images"
}

func itemWithImages(refs ...models.ImageRef) *models.Item {
	return &models.Item{PostURL: "https://www.youtube.com/post/x", Images: refs}
}

func TestDownloadItemSavesEveryVariantInOrder(t *testing.T) {
	fetcher := &mockFetcher{}
	store := newMockStorage()
	d := New(fetcher, store, nil, logger.NewNopLogger())

	item := itemWithImages(
		models.ImageRef{Standard: "https://img/1", HighRes: "https://img/1=s2160"},
		models.ImageRef{Standard: "https://img/2"},
	)

	results, err := d.DownloadItem(context.Background(), 4, item)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"https://img/1", "https://img/1=s2160", "https://img/2"}, fetcher.requests)
	assert.Equal(t, "/run/images/post_4_img_1_standard.jpg", item.Images[0].StandardPath)
	assert.Equal(t, "/run/images/post_4_img_1_highres.jpg", item.Images[0].HighResPath)
	assert.Equal(t, "/run/images/post_4_img_2_standard.jpg", item.Images[1].StandardPath)
	assert.Empty(t, item.Images[1].HighResPath)

	assert.Equal(t, []byte("data:https://img/2"), store.saved["post_4_img_2_standard.jpg"])
}

func TestDownloadItemKeepsURLOnFailure(t *testing.T) {
	fetcher := &mockFetcher{failures: map[string]bool{"https://img/1": true}}
	d := New(fetcher, newMockStorage(), nil, logger.NewNopLogger())

	item := itemWithImages(
		models.ImageRef{Standard: "https://img/1"},
		models.ImageRef{Standard: "https://img/2"},
	)

	results, err := d.DownloadItem(context.Background(), 1, item)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Error(t, results[0].Error)
	assert.Equal(t, "https://img/1", item.Images[0].Standard)
	assert.Empty(t, item.Images[0].StandardPath)

	assert.NoError(t, results[1].Error)
	assert.NotEmpty(t, item.Images[1].StandardPath)
}

func TestDownloadItemSaveFailure(t *testing.T) {
	store := newMockStorage()
	store.saveError = errors.New("disk full")
	d := New(&mockFetcher{}, store, nil, logger.NewNopLogger())

	item := itemWithImages(models.ImageRef{HighRes: "https://img/1=s2160"})
	results, err := d.DownloadItem(context.Background(), 1, item)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Error, "save failed")
	assert.Empty(t, item.Images[0].HighResPath)
}

func TestDownloadItemSkipsSavedImages(t *testing.T) {
	fetcher := &mockFetcher{}
	store := newMockStorage()
	store.saved["post_2_img_1_standard.jpg"] = []byte("old")
	d := New(fetcher, store, nil, logger.NewNopLogger())

	var reported []Result
	d.OnResult(func(r Result) { reported = append(reported, r) })

	item := itemWithImages(models.ImageRef{Standard: "https://img/1"})
	_, err := d.DownloadItem(context.Background(), 2, item)
	require.NoError(t, err)

	assert.Empty(t, fetcher.requests)
	require.Len(t, reported, 1)
	assert.True(t, reported[0].Skipped)
	assert.Equal(t, "/run/images/post_2_img_1_standard.jpg", item.Images[0].StandardPath)
}

// blockedLimiter never allows a request
type blockedLimiter struct{}

func (blockedLimiter) Allow() bool { return false }
func (blockedLimiter) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
func (blockedLimiter) Reset() {}

func TestDownloadItemStopsOnCancellation(t *testing.T) {
	fetcher := &mockFetcher{}
	d := New(fetcher, newMockStorage(), blockedLimiter{}, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	item := itemWithImages(models.ImageRef{Standard: "https://img/1"})
	_, err := d.DownloadItem(ctx, 1, item)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.requests)
}
