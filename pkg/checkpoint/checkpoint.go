package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
)

// Writer persists a run's result: progress snapshots while enrichment runs
// and the final document at the end
type Writer struct {
	dir     string
	channel string
	stamp   string
	now     func() time.Time
	logger  logger.Logger
}

// NewWriter creates a writer for the run directory dir. stamp is the run's
// YYYYMMDD_HHMMSS timestamp used in both file names.
func NewWriter(dir, channel, stamp string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{
		dir:     dir,
		channel: channel,
		stamp:   stamp,
		now:     time.Now,
		logger:  log.WithField("component", "checkpoint"),
	}
}

// WithClock replaces the clock used for scrape_date and scrape_timestamp
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// TempPath is the progress snapshot file
func (w *Writer) TempPath() string {
	return filepath.Join(w.dir, fmt.Sprintf("posts_%s_temp_%s.json", w.channel, w.stamp))
}

// FinalPath is the canonical output file
func (w *Writer) FinalPath() string {
	return filepath.Join(w.dir, fmt.Sprintf("posts_%s_%s.json", w.channel, w.stamp))
}

// Checkpoint writes r with its posts truncated to the first processed items.
// Each call rewrites the whole file, so repeating it is harmless.
func (w *Writer) Checkpoint(r *models.CollectionResult, processed int) error {
	doc := models.NewDocument(r, processed, w.now())
	if err := writeAtomic(w.TempPath(), doc); err != nil {
		return err
	}

	w.logger.DebugWithFields("Progress saved", map[string]interface{}{
		"processed": len(doc.Posts),
		"total":     doc.PostsCount,
		"path":      w.TempPath(),
	})
	return nil
}

// Finalize writes every item of r to the final output file and returns its path
func (w *Writer) Finalize(r *models.CollectionResult) (string, error) {
	doc := models.NewDocument(r, len(r.Items), w.now())
	if err := writeAtomic(w.FinalPath(), doc); err != nil {
		return "", err
	}

	w.logger.InfoWithFields("Exported posts", map[string]interface{}{
		"posts": doc.PostsCount,
		"path":  w.FinalPath(),
	})
	return w.FinalPath(), nil
}

// writeAtomic encodes doc to a temporary file and renames it over path
func writeAtomic(path string, doc models.Document) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
