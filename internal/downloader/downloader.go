package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"postarchiver/pkg/logger"
	"postarchiver/pkg/models"
	"postarchiver/pkg/ratelimit"
	"postarchiver/pkg/storage"
)

const (
	variantStandard = "standard"
	variantHighRes  = "highres"
)

// Fetcher downloads raw bytes
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ImageStorage persists downloaded images
type ImageStorage interface {
	IsSaved(name string) bool
	SaveImage(r io.Reader, name string) (string, error)
	ImagesDir() string
}

// Result is the outcome of one image download
type Result struct {
	URL      string
	Path     string
	Skipped  bool
	Size     int
	Duration time.Duration
	Error    error
}

// Downloader fetches a post's images one at a time, in order
type Downloader struct {
	fetcher  Fetcher
	storage  ImageStorage
	limiter  ratelimit.Limiter
	onResult func(Result)
	logger   logger.Logger
}

// New creates a downloader. limiter may be nil.
func New(fetcher Fetcher, store ImageStorage, limiter ratelimit.Limiter, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		fetcher: fetcher,
		storage: store,
		limiter: limiter,
		logger:  log.WithField("component", "downloader"),
	}
}

// OnResult registers a callback invoked after every image
func (d *Downloader) OnResult(fn func(Result)) {
	d.onResult = fn
}

// DownloadItem downloads the images of the post at postIndex (1-based) and
// records the local paths on item. A failed image keeps only its remote URL.
// The returned error is non-nil only when ctx ends the run.
func (d *Downloader) DownloadItem(ctx context.Context, postIndex int, item *models.Item) ([]Result, error) {
	var results []Result

	for i := range item.Images {
		ref := &item.Images[i]
		n := i + 1

		if ref.Standard != "" {
			res, err := d.download(ctx, ref.Standard, storage.ImageName(postIndex, n, variantStandard))
			if err != nil {
				return results, err
			}
			if res.Error == nil {
				ref.StandardPath = res.Path
			}
			results = append(results, res)
		}

		if ref.HighRes != "" {
			res, err := d.download(ctx, ref.HighRes, storage.ImageName(postIndex, n, variantHighRes))
			if err != nil {
				return results, err
			}
			if res.Error == nil {
				ref.HighResPath = res.Path
			}
			results = append(results, res)
		}
	}

	return results, nil
}

// download fetches one image. Only cancellation is returned as an error;
// everything else is reported in the Result.
func (d *Downloader) download(ctx context.Context, url, name string) (Result, error) {
	start := time.Now()
	result := Result{URL: url}

	if d.storage.IsSaved(name) {
		result.Path = filepath.Join(d.storage.ImagesDir(), name)
		result.Skipped = true
		d.report(result)
		return result, nil
	}

	if d.limiter != nil && !d.limiter.Allow() {
		d.logger.DebugWithFields("Waiting for download rate limit", map[string]interface{}{
			"file": name,
		})
		if err := d.limiter.Wait(ctx); err != nil {
			return result, err
		}
	}

	data, err := d.fetcher.Get(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogImageDownload(d.logger, url, "", result.Error)
		d.report(result)
		return result, nil
	}
	result.Size = len(data)

	path, err := d.storage.SaveImage(bytes.NewReader(data), name)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogImageDownload(d.logger, url, "", result.Error)
		d.report(result)
		return result, nil
	}

	result.Path = path
	result.Duration = time.Since(start)
	logger.LogImageDownload(d.logger, url, path, nil)
	d.report(result)
	return result, nil
}

func (d *Downloader) report(r Result) {
	if d.onResult != nil {
		d.onResult(r)
	}
}
