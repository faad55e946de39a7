package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/retry"
)

// maxBodySize bounds a single downloaded image
const maxBodySize int64 = 64 << 20

// Client downloads raw bytes over HTTP
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	retry      *retry.Config
	logger     logger.Logger
	maxBody    int64
}

// NewClient creates a client whose requests time out after timeout
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "fetch")

	headers := map[string]string{
		"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}

	cfg := retry.DefaultConfig()
	cfg.Logger = log

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
		retry:      cfg,
		logger:     log,
		maxBody:    maxBodySize,
	}
}

// WithRetry replaces the retry configuration
func (c *Client) WithRetry(cfg *retry.Config) *Client {
	c.retry = cfg
	return c
}

// Get downloads url and returns the response body. Transient failures
// (network errors, 429 and 5xx) are retried; other statuses fail at once.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return retry.DoWithResult(ctx, func() ([]byte, error) {
		return c.get(ctx, url)
	}, c.retry)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, url); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "failed to read response body", err)
	}
	if int64(len(data)) > c.maxBody {
		c.logger.WarnWithFields("Response body too large", map[string]interface{}{
			"url":   url,
			"limit": c.maxBody,
		})
		return nil, errs.New(errs.ErrorTypeResource, fmt.Sprintf("response body exceeds %d bytes", c.maxBody))
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"size":     len(data),
		"duration": time.Since(start),
	})
	return data, nil
}

// checkResponseStatus maps non-2xx statuses to typed network errors
func (c *Client) checkResponseStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    url,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("Rate limited by image host", fields)
	case resp.StatusCode >= 500:
		c.logger.WarnWithFields("Image host error", fields)
	default:
		c.logger.DebugWithFields("Unexpected status", fields)
	}

	return &errs.Error{
		Type:    errs.ErrorTypeNetwork,
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}
