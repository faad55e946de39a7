package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"postarchiver/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	return &zerologLogger{z: zerolog.New(buf).With().Timestamp().Logger()}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "warn level console",
			cfg:     &config.LoggingConfig{Level: "warn", Format: "console"},
			wantErr: false,
		},
		{
			name:    "debug level json",
			cfg:     &config.LoggingConfig{Level: "debug", Format: "json"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "chatty"},
			wantErr: true,
		},
		{
			name: "file output",
			cfg: &config.LoggingConfig{
				Level: "info",
				File:  filepath.Join(t.TempDir(), "logs", "run.log"),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.WithField("channel", "somechannel").Info("collection finished")

	out := buf.String()
	if !strings.Contains(out, `"app":"postarchiver"`) {
		t.Errorf("expected app field, got %s", out)
	}
	if !strings.Contains(out, `"channel":"somechannel"`) {
		t.Errorf("expected channel field, got %s", out)
	}
	if !strings.Contains(out, "collection finished") {
		t.Errorf("expected message, got %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestFieldsAreCopiedNotShared(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	withPost := base.WithField("post", "https://www.youtube.com/post/abc")
	_ = base.WithField("post", "overwritten")

	withPost.Info("comments collected")
	if !strings.Contains(buf.String(), `"post":"https://www.youtube.com/post/abc"`) {
		t.Errorf("derived logger lost its field: %s", buf.String())
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return the same logger")
	}

	log.WithError(errors.New("navigation timed out")).Error("comment attempt failed")
	out := buf.String()
	if !strings.Contains(out, "navigation timed out") || !strings.Contains(out, "comment attempt failed") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestStructuredFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := newBufferLogger(&buf)

	log.DebugWithFields("Scroll cycle finished", map[string]interface{}{
		"cycle":     3,
		"height":    int64(4200),
		"collected": 17,
		"stalled":   []int{0, 1},
	})

	out := buf.String()
	for _, want := range []string{`"cycle":3`, `"height":4200`, `"collected":17`, `"stalled":[0,1]`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestHelpersWriteThroughTestLogger(t *testing.T) {
	log := NewTestLogger()

	LogPostFound(log, "https://www.youtube.com/post/1", "2 days ago", "1.2K", "30", false)
	LogImageDownload(log, "https://img/1", "/tmp/1.jpg", errors.New("404"))
	LogComponentStart(log.WithField("run", 1), "collector", map[string]interface{}{"max": 10})

	if !log.HasMessage("Found post") {
		t.Error("expected post message")
	}
	if !log.HasError() {
		t.Error("expected download failure to be logged as error")
	}
	starts := log.GetMessagesByLevel("INFO")
	last := starts[len(starts)-1]
	if last.Fields["component"] != "collector" || last.Fields["run"] != 1 || last.Fields["max"] != 10 {
		t.Errorf("unexpected fields on component start: %v", last.Fields)
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "error"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}

	test := NewTestLogger()
	SetLogger(test)
	GetLogger().WithField("k", "v").Warn("routed")
	if !test.HasMessage("routed") {
		t.Error("expected GetLogger to return the logger set with SetLogger")
	}
}
