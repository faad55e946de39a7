package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Unlimited marks a collection run without an item cap.
const Unlimited = 0

// Config holds all configuration options for the post archiver
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Feed collection loop
	Collection CollectionConfig `yaml:"collection" json:"collection"`

	// Image and comment enrichment
	Enrichment EnrichmentConfig `yaml:"enrichment" json:"enrichment"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Proxy settings
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds browser session configuration
type BrowserConfig struct {
	Family          string        `yaml:"family" json:"family"`
	ExecPath        string        `yaml:"exec_path" json:"exec_path"`
	Headless        bool          `yaml:"headless" json:"headless"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth     int           `yaml:"window_width" json:"window_width"`
	WindowHeight    int           `yaml:"window_height" json:"window_height"`
	SettleDelay     time.Duration `yaml:"settle_delay" json:"settle_delay"`
	SelectorTimeout time.Duration `yaml:"selector_timeout" json:"selector_timeout"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
}

// CollectionConfig holds scroll loop configuration
type CollectionConfig struct {
	// MaxPosts caps the number of collected posts; Unlimited (0) collects everything.
	MaxPosts       int  `yaml:"max_posts" json:"max_posts"`
	StallThreshold int  `yaml:"stall_threshold" json:"stall_threshold"`
	MemberOnly     bool `yaml:"member_only" json:"member_only"`
}

// EnrichmentConfig holds configuration for the image and comment phases
type EnrichmentConfig struct {
	GetImages          bool          `yaml:"get_images" json:"get_images"`
	DownloadImages     bool          `yaml:"download_images" json:"download_images"`
	ImageQuality       string        `yaml:"image_quality" json:"image_quality"`
	GetComments        bool          `yaml:"get_comments" json:"get_comments"`
	RetryAttempts      int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBackoff       time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
	CheckpointInterval int           `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	IconScrollStep     int           `yaml:"icon_scroll_step" json:"icon_scroll_step"`
	FocusDelay         time.Duration `yaml:"focus_delay" json:"focus_delay"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// ProxyConfig holds proxy configuration
type ProxyConfig struct {
	// Source is either a path to a file with one proxy per line or a single proxy URL.
	Source   string `yaml:"source" json:"source"`
	UseVault bool   `yaml:"use_vault" json:"use_vault"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
	TUI        bool `yaml:"tui" json:"tui"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
	Caller bool   `yaml:"caller" json:"caller"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Family:          "chromium",
			Headless:        true,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			WindowWidth:     1280,
			WindowHeight:    1024,
			SettleDelay:     2 * time.Second,
			SelectorTimeout: 10 * time.Second,
			NavigateTimeout: 60 * time.Second,
		},
		Collection: CollectionConfig{
			MaxPosts:       Unlimited,
			StallThreshold: 3,
		},
		Enrichment: EnrichmentConfig{
			ImageQuality:       "all",
			RetryAttempts:      3,
			RetryBackoff:       5 * time.Second,
			CheckpointInterval: 5,
			IconScrollStep:     500,
			FocusDelay:         500 * time.Millisecond,
		},
		Download: DownloadConfig{
			Timeout:           30 * time.Second,
			RequestsPerMinute: 120,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if family := os.Getenv("POSTARCHIVER_BROWSER"); family != "" {
		c.Browser.Family = family
	}
	if execPath := os.Getenv("POSTARCHIVER_BROWSER_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if headless := os.Getenv("POSTARCHIVER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if userAgent := os.Getenv("POSTARCHIVER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
		c.Download.UserAgent = userAgent
	}
	if delay := os.Getenv("POSTARCHIVER_SETTLE_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTARCHIVER_SETTLE_DELAY: %w", err))
		} else {
			c.Browser.SettleDelay = d
		}
	}

	if maxPosts := os.Getenv("POSTARCHIVER_MAX_POSTS"); maxPosts != "" {
		n, err := ParseAmount(maxPosts)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTARCHIVER_MAX_POSTS: %w", err))
		} else {
			c.Collection.MaxPosts = n
		}
	}

	if quality := os.Getenv("POSTARCHIVER_IMAGE_QUALITY"); quality != "" {
		c.Enrichment.ImageQuality = strings.ToLower(quality)
	}
	if attempts := os.Getenv("POSTARCHIVER_RETRY_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTARCHIVER_RETRY_ATTEMPTS: %w", err))
		} else {
			c.Enrichment.RetryAttempts = n
		}
	}

	if outputDir := os.Getenv("POSTARCHIVER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if proxy := os.Getenv("POSTARCHIVER_PROXY"); proxy != "" {
		c.Proxy.Source = proxy
	}

	if notifEnabled := os.Getenv("POSTARCHIVER_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv("POSTARCHIVER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("POSTARCHIVER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".postarchiver.yaml",
		".postarchiver.yml",
		filepath.Join(home, ".config", "postarchiver", "config.yaml"),
		filepath.Join(home, ".config", "postarchiver", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath returns the user-level config file location used by `config init`.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "postarchiver", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Browser.Family {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Errorf("unknown browser family %q", c.Browser.Family))
	}
	if c.Browser.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Browser.SelectorTimeout <= 0 {
		errs = append(errs, errors.New("selector timeout must be positive"))
	}

	if c.Collection.MaxPosts < 0 {
		errs = append(errs, errors.New("max posts cannot be negative"))
	}
	if c.Collection.StallThreshold <= 0 {
		errs = append(errs, errors.New("stall threshold must be positive"))
	}

	switch c.Enrichment.ImageQuality {
	case "sd", "hd", "all":
	default:
		errs = append(errs, errors.New("image quality must be 'sd', 'hd', or 'all'"))
	}
	if c.Enrichment.DownloadImages && !c.Enrichment.GetImages {
		errs = append(errs, errors.New("downloading images requires image collection"))
	}
	if c.Enrichment.RetryAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}
	if c.Enrichment.CheckpointInterval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}
	if c.Enrichment.IconScrollStep <= 0 {
		errs = append(errs, errors.New("icon scroll step must be positive"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("download requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, errors.New("log format must be 'console' or 'json'"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied, so unset flags never clobber
// values that came from the file or the environment.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["get-comments"].(bool); ok {
		c.Enrichment.GetComments = v
	}
	if v, ok := flags["get-images"].(bool); ok {
		c.Enrichment.GetImages = v
	}
	if v, ok := flags["download-images"].(bool); ok {
		c.Enrichment.DownloadImages = v
	}
	if v, ok := flags["image-quality"].(string); ok && v != "" {
		c.Enrichment.ImageQuality = strings.ToLower(v)
	}
	if v, ok := flags["amount"].(int); ok {
		c.Collection.MaxPosts = v
	}
	if v, ok := flags["member-only"].(bool); ok {
		c.Collection.MemberOnly = v
	}
	if v, ok := flags["proxy"].(string); ok && v != "" {
		c.Proxy.Source = v
	}
	if v, ok := flags["proxy-vault"].(bool); ok {
		c.Proxy.UseVault = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["browser"].(string); ok && v != "" {
		c.Browser.Family = strings.ToLower(v)
	}
	if v, ok := flags["tui"].(bool); ok {
		c.Notifications.TUI = v
	}
	if v, ok := flags["notify"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["caller"].(bool); ok {
		c.Logging.Caller = v
	}
}

// ParseAmount parses a post count. "max", an empty string, and any value <= 0
// mean Unlimited.
func ParseAmount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "max") {
		return Unlimited, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("amount must be a positive integer or 'max', got %q", value)
	}
	if n <= 0 {
		return Unlimited, nil
	}
	return n, nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postarchiver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
