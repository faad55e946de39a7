package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogScrollCycle logs one iteration of the feed scroll loop
func LogScrollCycle(l Logger, cycle, collected int, height, lastHeight int64, stalled int) {
	l.DebugWithFields("Scroll cycle finished", map[string]interface{}{
		"cycle":       cycle,
		"collected":   collected,
		"height":      height,
		"last_height": lastHeight,
		"stalled":     stalled,
	})
}

// LogPostFound logs a newly discovered post
func LogPostFound(l Logger, url, timestamp, likes, comments string, memberOnly bool) {
	l.InfoWithFields("Found post", map[string]interface{}{
		"url":         url,
		"timestamp":   timestamp,
		"likes":       likes,
		"comments":    comments,
		"member_only": memberOnly,
	})
}

// LogImageDownload logs the outcome of a single image download
func LogImageDownload(l Logger, url, path string, err error) {
	fields := map[string]interface{}{
		"url":  url,
		"path": path,
	}
	if err != nil {
		l.WithError(err).ErrorWithFields("Image download failed", fields)
		return
	}
	l.DebugWithFields("Image downloaded", fields)
}

// LogEnrichment logs the result of an enrichment phase for one post
func LogEnrichment(l Logger, phase string, index, total int, postURL string, found int) {
	l.InfoWithFields("Post enriched", map[string]interface{}{
		"phase": phase,
		"index": index,
		"total": total,
		"url":   postURL,
		"found": found,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	log := l.WithField("component", component)
	if len(config) > 0 {
		log = log.WithFields(config)
	}
	log.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
