package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FACTSCAN_CLASSIFIER_ENDPOINT.
const EnvPrefix = "FACTSCAN"

type Config struct {
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Settings   SettingsConfig   `mapstructure:"settings"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ClassifierConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	TimeoutMS       int    `mapstructure:"timeout_ms"`
	MaxConcurrent   int    `mapstructure:"max_concurrent"`
	HealthTimeoutMS int    `mapstructure:"health_timeout_ms"`
	Origin          string `mapstructure:"origin"`
}

type AnalysisConfig struct {
	MinTextLength       int  `mapstructure:"min_text_length"`
	ManualMinTextLength int  `mapstructure:"manual_min_text_length"`
	MaxMultiArticles    int  `mapstructure:"max_multi_articles"`
	CacheSize           int  `mapstructure:"cache_size"`
	MultiArticleWorkers int  `mapstructure:"multi_article_workers"`
	AutoAnalyze         bool `mapstructure:"auto_analyze"`
	HistorySize         int  `mapstructure:"history_size"`
}

type FetchConfig struct {
	Mode            string `mapstructure:"mode"`
	Timeout         int    `mapstructure:"timeout"`
	UserAgent       string `mapstructure:"user_agent"`
	BrowserAgent    string `mapstructure:"browser_agent"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	MaxRedirects    int    `mapstructure:"max_redirects"`
	WaitForSelector string `mapstructure:"wait_for_selector"`
	ReaderURL       string `mapstructure:"reader_url"`
	ReaderAPIKey    string `mapstructure:"reader_api_key"`
}

type BrowserConfig struct {
	Cookies string            `mapstructure:"cookies"`
	Paths   map[string]string `mapstructure:"paths"`
}

type SettingsConfig struct {
	Path          string `mapstructure:"path"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	RetryDelayMS  int    `mapstructure:"retry_delay_ms"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Endpoint:        "http://localhost:5000/api/v1/analyze",
			TimeoutMS:       15000,
			MaxConcurrent:   2,
			HealthTimeoutMS: 3000,
		},
		Analysis: AnalysisConfig{
			MinTextLength:       50,
			ManualMinTextLength: 100,
			MaxMultiArticles:    5,
			CacheSize:           2,
			MultiArticleWorkers: 1,
			AutoAnalyze:         true,
			HistorySize:         50,
		},
		Fetch: FetchConfig{
			Mode:            "auto",
			Timeout:         30,
			FollowRedirects: true,
			MaxRedirects:    10,
		},
		Browser: BrowserConfig{
			Cookies: "none",
			Paths:   map[string]string{},
		},
		Settings: SettingsConfig{
			RetryAttempts: 3,
			RetryDelayMS:  1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Durations derived from the millisecond and second fields.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c ClassifierConfig) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutMS) * time.Millisecond
}

func (c FetchConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c SettingsConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// Dir returns $XDG_CONFIG_HOME/factscan, falling back to ~/.config/factscan.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "factscan"), nil
}

// DefaultPath is the config file read when none is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads configFile, or the default location when empty, and applies
// FACTSCAN_* environment overrides. A missing default file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setDefaults registers every key so that env overrides apply to keys the
// file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("classifier.endpoint", cfg.Classifier.Endpoint)
	v.SetDefault("classifier.timeout_ms", cfg.Classifier.TimeoutMS)
	v.SetDefault("classifier.max_concurrent", cfg.Classifier.MaxConcurrent)
	v.SetDefault("classifier.health_timeout_ms", cfg.Classifier.HealthTimeoutMS)
	v.SetDefault("classifier.origin", cfg.Classifier.Origin)

	v.SetDefault("analysis.min_text_length", cfg.Analysis.MinTextLength)
	v.SetDefault("analysis.manual_min_text_length", cfg.Analysis.ManualMinTextLength)
	v.SetDefault("analysis.max_multi_articles", cfg.Analysis.MaxMultiArticles)
	v.SetDefault("analysis.cache_size", cfg.Analysis.CacheSize)
	v.SetDefault("analysis.multi_article_workers", cfg.Analysis.MultiArticleWorkers)
	v.SetDefault("analysis.auto_analyze", cfg.Analysis.AutoAnalyze)
	v.SetDefault("analysis.history_size", cfg.Analysis.HistorySize)

	v.SetDefault("fetch.mode", cfg.Fetch.Mode)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.browser_agent", cfg.Fetch.BrowserAgent)
	v.SetDefault("fetch.follow_redirects", cfg.Fetch.FollowRedirects)
	v.SetDefault("fetch.max_redirects", cfg.Fetch.MaxRedirects)
	v.SetDefault("fetch.wait_for_selector", cfg.Fetch.WaitForSelector)
	v.SetDefault("fetch.reader_url", cfg.Fetch.ReaderURL)
	v.SetDefault("fetch.reader_api_key", cfg.Fetch.ReaderAPIKey)

	v.SetDefault("browser.cookies", cfg.Browser.Cookies)

	v.SetDefault("settings.path", cfg.Settings.Path)
	v.SetDefault("settings.retry_attempts", cfg.Settings.RetryAttempts)
	v.SetDefault("settings.retry_delay_ms", cfg.Settings.RetryDelayMS)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Fetch.Mode {
	case "auto", "static", "javascript", "reader":
	default:
		return fmt.Errorf("invalid fetch.mode %q (want auto, static, javascript or reader)", c.Fetch.Mode)
	}
	switch c.Browser.Cookies {
	case "none", "auto", "chrome", "firefox", "safari", "zen":
	default:
		return fmt.Errorf("invalid browser.cookies %q", c.Browser.Cookies)
	}
	if c.Classifier.Endpoint == "" {
		return errors.New("classifier.endpoint must be set")
	}
	if c.Classifier.TimeoutMS <= 0 || c.Classifier.MaxConcurrent <= 0 {
		return errors.New("classifier.timeout_ms and classifier.max_concurrent must be positive")
	}
	if c.Analysis.CacheSize <= 0 {
		return errors.New("analysis.cache_size must be positive")
	}
	return nil
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# factscan configuration file

[classifier]
# Full URL of the classification service analyze route
endpoint = "http://localhost:5000/api/v1/analyze"
timeout_ms = 15000         # per request
max_concurrent = 2         # simultaneous classification calls
health_timeout_ms = 3000
origin = ""                # sent as Origin and checked against CORS headers

[analysis]
min_text_length = 50           # shortest text analyzed automatically
manual_min_text_length = 100   # manual analysis and content gate
max_multi_articles = 5         # articles dispatched from one listing page
cache_size = 2                 # results kept, least recently used evicted
multi_article_workers = 1      # 1 = one article at a time
auto_analyze = true            # seeds the stored autoAnalyze setting
history_size = 50

[fetch]
mode = "auto"              # auto, static, javascript, reader
timeout = 30               # seconds
user_agent = ""            # custom user agent (empty = browser_agent)
browser_agent = ""         # auto, chrome, firefox, safari, edge
follow_redirects = true
max_redirects = 10
wait_for_selector = ""     # CSS selector to wait for when rendering
reader_url = ""            # reader mode proxy (empty = https://r.jina.ai/)
reader_api_key = ""        # or JINA_API_KEY

[browser]
# Import cookies from a local browser for static fetches
cookies = "none"           # none, auto, chrome, firefox, safari, zen

# Specific browser profile paths (optional)
[browser.paths]
zen = ""

[settings]
path = ""                  # settings file (empty = $XDG_CONFIG_HOME/factscan/settings.yaml)
retry_attempts = 3
retry_delay_ms = 1000      # attempt n waits n x this before retrying

[logging]
level = "info"             # debug, info, warn, error
file = ""                  # log file path (empty = stderr only)
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
