package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
)

// StampLayout formats run timestamps in directory and file names
const StampLayout = "20060102_150405"

const imagesDirName = "images"

// Manager owns a run's output directory and the images saved under it
type Manager struct {
	runDir string
	stamp  string
	saved  map[string]bool
	logger logger.Logger
	mu     sync.RWMutex
}

// NewManager creates <baseDir>/<channel>_<stamp> for a run started at
// started. When the directory cannot be created the current working
// directory is used instead and the failure is logged.
func NewManager(baseDir, channel string, started time.Time, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "storage")

	stamp := started.Format(StampLayout)
	runDir := filepath.Join(baseDir, fmt.Sprintf("%s_%s", channel, stamp))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return nil, errs.Wrap(errs.ErrorTypeResource, "failed to create output directory", err)
		}
		log.WarnWithFields("Failed to create output directory, using current directory", map[string]interface{}{
			"path":  runDir,
			"error": err.Error(),
		})
		runDir = cwd
	}

	m := &Manager{
		runDir: runDir,
		stamp:  stamp,
		saved:  make(map[string]bool),
		logger: log,
	}
	log.DebugWithFields("Output directory ready", map[string]interface{}{"path": runDir})
	return m, nil
}

// RunDir returns the directory holding the run's JSON files
func (m *Manager) RunDir() string {
	return m.runDir
}

// Stamp returns the run timestamp used in file names
func (m *Manager) Stamp() string {
	return m.stamp
}

// ImagesDir returns the directory downloaded images are written to
func (m *Manager) ImagesDir() string {
	return filepath.Join(m.runDir, imagesDirName)
}

// ImageName names the nth image (1-based) of the post at index (1-based)
func ImageName(postIndex, n int, variant string) string {
	return fmt.Sprintf("post_%d_img_%d_%s.jpg", postIndex, n, variant)
}

// IsSaved reports whether name was already written during this run or
// exists on disk
func (m *Manager) IsSaved(name string) bool {
	m.mu.RLock()
	if m.saved[name] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	if _, err := os.Stat(filepath.Join(m.ImagesDir(), name)); err == nil {
		m.mu.Lock()
		m.saved[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// SaveImage writes r to the images directory under name and returns the
// full path. The file only appears once it is complete.
func (m *Manager) SaveImage(r io.Reader, name string) (string, error) {
	dir := m.ImagesDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errs.Wrap(errs.ErrorTypeResource, "failed to create images directory", err)
	}

	filename := filepath.Join(dir, name)
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeResource, "failed to create temporary file", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeResource, "failed to write image data", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeResource, "failed to close file", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.ErrorTypeResource, "failed to rename temporary file", err)
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()

	return filename, nil
}

// SavedCount returns the number of images written during this run
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
