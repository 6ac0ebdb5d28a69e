package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

// Defaults applied by Validate.
const (
	DefaultTMDbBaseURL    = "https://api.themoviedb.org/3"
	DefaultImageBaseURL   = "https://image.tmdb.org/t/p/w500"
	DefaultPlaceholderURL = "https://via.placeholder.com/300x450?text=No+Image"
	DefaultTimeout        = 30 * time.Second
	DefaultSearchDebounce = 500 * time.Millisecond
	DefaultOverviewLength = 100
	DefaultWebPort        = 8080
	DefaultSessionTTL     = 30 * time.Minute
	DefaultMaxSessions    = 1000
	DefaultLogLevel       = "info"
	envPrefix             = "MOVIEEXPLORER_"
	maxOverviewLength     = 10000
)

// Config represents the main application configuration
type Config struct {
	// Metadata provider
	TMDb TMDbConfig `yaml:"tmdb"`

	// Browsing behaviour shared by all frontends
	Browser BrowserConfig `yaml:"browser"`

	// Frontends
	Web      WebConfig       `yaml:"web"`
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`

	// Application settings
	App AppConfig `yaml:"app"`
}

// TMDbConfig holds TMDb API configuration
type TMDbConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	ImageBaseURL   string        `yaml:"image_base_url,omitempty"`
	PlaceholderURL string        `yaml:"placeholder_url,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// BrowserConfig tunes the browsing controller
type BrowserConfig struct {
	SearchDebounce time.Duration `yaml:"search_debounce,omitempty"`
	OverviewLength int           `yaml:"overview_length,omitempty"` // synopsis length on cards
}

// WebConfig holds the web widget settings
type WebConfig struct {
	Port        int           `yaml:"port,omitempty"`
	SessionTTL  time.Duration `yaml:"session_ttl,omitempty"`  // idle sessions are dropped after this
	MaxSessions int           `yaml:"max_sessions,omitempty"` // oldest idle session is dropped beyond this
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids,omitempty"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
	LogFile  string `yaml:"log_file"`  // used by the terminal UI; empty discards logs
}

// Load loads configuration from a YAML file with environment variable
// overrides. A .env file in the working directory is read first; variables
// already set in the environment take precedence over it.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// applyEnvOverrides overrides config values with MOVIEEXPLORER_* variables
func (c *Config) applyEnvOverrides() error {
	// TMDb
	setString(&c.TMDb.APIKey, "TMDB_API_KEY")
	setString(&c.TMDb.BaseURL, "TMDB_BASE_URL")
	setString(&c.TMDb.ImageBaseURL, "TMDB_IMAGE_BASE_URL")
	setString(&c.TMDb.PlaceholderURL, "TMDB_PLACEHOLDER_URL")
	if err := setDuration(&c.TMDb.Timeout, "TMDB_TIMEOUT"); err != nil {
		return err
	}

	// Browser
	if err := setDuration(&c.Browser.SearchDebounce, "SEARCH_DEBOUNCE"); err != nil {
		return err
	}

	// Web
	if err := setInt(&c.Web.Port, "WEB_PORT"); err != nil {
		return err
	}
	if err := setDuration(&c.Web.SessionTTL, "WEB_SESSION_TTL"); err != nil {
		return err
	}
	if err := setInt(&c.Web.MaxSessions, "WEB_MAX_SESSIONS"); err != nil {
		return err
	}

	// Telegram: a token in the environment enables the bot
	if v := os.Getenv(envPrefix + "TELEGRAM_BOT_TOKEN"); v != "" {
		if c.Telegram == nil {
			c.Telegram = &TelegramConfig{}
		}
		c.Telegram.BotToken = v
	}

	// App
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.App.LogFile, "LOG_FILE")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

// Validate fills in defaults and validates the configuration
func (c *Config) Validate() error {
	c.setDefaults()

	if c.TMDb.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required")
	}
	for _, u := range []struct{ value, field string }{
		{c.TMDb.BaseURL, "tmdb.base_url"},
		{c.TMDb.ImageBaseURL, "tmdb.image_base_url"},
		{c.TMDb.PlaceholderURL, "tmdb.placeholder_url"},
	} {
		if err := validateURL(u.value, u.field); err != nil {
			return err
		}
	}
	if c.TMDb.Timeout < 0 {
		return fmt.Errorf("tmdb.timeout must be positive")
	}

	if c.Browser.SearchDebounce < 0 {
		return fmt.Errorf("browser.search_debounce must be positive")
	}
	if c.Browser.OverviewLength < 1 || c.Browser.OverviewLength > maxOverviewLength {
		return fmt.Errorf("browser.overview_length must be between 1 and %d", maxOverviewLength)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}
	if c.Web.SessionTTL < 0 {
		return fmt.Errorf("web.session_ttl must be positive")
	}
	if c.Web.MaxSessions < 0 {
		return fmt.Errorf("web.max_sessions must be positive")
	}

	if c.Telegram != nil && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}

	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug, info, warn, error")
	}

	return nil
}

// setDefaults fills zero values. Negative values are kept so Validate can
// reject them.
func (c *Config) setDefaults() {
	t := &c.TMDb
	if t.BaseURL == "" {
		t.BaseURL = DefaultTMDbBaseURL
	}
	if t.ImageBaseURL == "" {
		t.ImageBaseURL = DefaultImageBaseURL
	}
	if t.PlaceholderURL == "" {
		t.PlaceholderURL = DefaultPlaceholderURL
	}
	t.BaseURL = strings.TrimRight(t.BaseURL, "/")
	t.ImageBaseURL = strings.TrimRight(t.ImageBaseURL, "/")
	if t.Timeout == 0 {
		t.Timeout = DefaultTimeout
	}

	if c.Browser.SearchDebounce == 0 {
		c.Browser.SearchDebounce = DefaultSearchDebounce
	}
	if c.Browser.OverviewLength == 0 {
		c.Browser.OverviewLength = DefaultOverviewLength
	}

	if c.Web.Port == 0 {
		c.Web.Port = DefaultWebPort
	}
	if c.Web.SessionTTL == 0 {
		c.Web.SessionTTL = DefaultSessionTTL
	}
	if c.Web.MaxSessions == 0 {
		c.Web.MaxSessions = DefaultMaxSessions
	}

	if c.App.LogLevel == "" {
		c.App.LogLevel = DefaultLogLevel
	}
}

// validateConfigPath checks that path names a readable regular file.
func validateConfigPath(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	return nil
}

// validateURL checks that raw is an absolute http(s) URL with a host.
func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}

// TelegramEnabled reports whether the bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram != nil && c.Telegram.BotToken != ""
}
