package checkpoint

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
)

func sampleResult() *models.CollectionResult {
	content := "café <b>launch</b> & more"
	return &models.CollectionResult{
		Channel:     "somechannel",
		ChannelIcon: "https://yt3.ggpht.com/icon",
		Items: []models.Item{
			{PostURL: "https://www.youtube.com/post/1", Content: &content, Links: []models.Link{}, Images: []models.ImageRef{}, LikeCount: "1", CommentCount: "0"},
			{PostURL: "https://www.youtube.com/post/2", Links: []models.Link{}, Images: []models.ImageRef{}, LikeCount: "2", CommentCount: "0"},
			{PostURL: "https://www.youtube.com/post/3", Links: []models.Link{}, Images: []models.ImageRef{}, LikeCount: "3", CommentCount: "0"},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestWriterPaths(t *testing.T) {
	w := NewWriter("/out/run", "chan", "20240501_100000", logger.NewNopLogger())

	if got, want := w.TempPath(), filepath.Join("/out/run", "posts_chan_temp_20240501_100000.json"); got != want {
		t.Errorf("TempPath() = %s, want %s", got, want)
	}
	if got, want := w.FinalPath(), filepath.Join("/out/run", "posts_chan_20240501_100000.json"); got != want {
		t.Errorf("FinalPath() = %s, want %s", got, want)
	}
}

func TestCheckpointIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "somechannel", "20240501_100000", logger.NewNopLogger()).WithClock(fixedClock)
	r := sampleResult()

	if err := w.Checkpoint(r, 2); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	first, err := os.ReadFile(w.TempPath())
	if err != nil {
		t.Fatalf("Failed to read checkpoint: %v", err)
	}

	if err := w.Checkpoint(r, 2); err != nil {
		t.Fatalf("Second checkpoint failed: %v", err)
	}
	second, err := os.ReadFile(w.TempPath())
	if err != nil {
		t.Fatalf("Failed to read checkpoint: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("Repeated checkpoints at the same count should be byte-identical")
	}

	var doc models.Document
	if err := json.Unmarshal(first, &doc); err != nil {
		t.Fatalf("Checkpoint is not valid JSON: %v", err)
	}
	if len(doc.Posts) != 2 {
		t.Errorf("Expected 2 posts in checkpoint, got %d", len(doc.Posts))
	}
	if doc.PostsCount != 3 {
		t.Errorf("Expected posts_count 3 (all collected), got %d", doc.PostsCount)
	}

	if _, err := os.Stat(w.TempPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not be left behind")
	}
}

func TestFinalize(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "somechannel", "20240501_100000", logger.NewNopLogger()).WithClock(fixedClock)
	r := sampleResult()

	path, err := w.Finalize(r)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if path != w.FinalPath() {
		t.Errorf("Expected %s, got %s", w.FinalPath(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read final file: %v", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Final file is not valid JSON: %v", err)
	}
	if doc.PostsCount != len(r.Items) || len(doc.Posts) != len(r.Items) {
		t.Errorf("Expected %d posts, got count=%d len=%d", len(r.Items), doc.PostsCount, len(doc.Posts))
	}
	if doc.Channel != "somechannel" || doc.ChannelIcon != "https://yt3.ggpht.com/icon" {
		t.Errorf("Unexpected channel metadata: %+v", doc)
	}
	if doc.ScrapeTimestamp != fixedClock().Unix() {
		t.Errorf("Unexpected scrape timestamp %d", doc.ScrapeTimestamp)
	}

	// non-ASCII and markup characters are written as-is
	if !bytes.Contains(data, []byte("café <b>launch</b> & more")) {
		t.Error("Expected unescaped content in output")
	}
	if !bytes.Contains(data, []byte("\n  \"channel\": ")) {
		t.Error("Expected two-space indentation")
	}
}

func TestCheckpointFailsForMissingDirectory(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing"), "c", "s", logger.NewNopLogger())
	if err := w.Checkpoint(sampleResult(), 1); err == nil {
		t.Error("Expected an error when the run directory does not exist")
	}
}
