package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/session"
)

// Defaults for the build service and local tooling
const (
	DefaultServiceURL       = "https://build-bench.com"
	DefaultExplorerURL      = "https://godbolt.org"
	DefaultRequestTimeout   = 3 * time.Minute
	DefaultProgressInterval = time.Second
	DefaultProgressDuration = 2 * time.Minute
	DefaultLogLevel         = "info"
)

// LatestCompiler is offered in addition to the known compiler list
const LatestCompiler = "clang-11.0"

// DefaultCompilers are the compilers the build service is known to provide
var DefaultCompilers = []string{
	"clang-3.8", "clang-3.9", "clang-4.0", "clang-5.0",
	"clang-6.0", "clang-7.0", "clang-7.1", "clang-8.0", "clang-9.0",
	"clang-10.0", "gcc-5.5", "gcc-6.4", "gcc-6.5", "gcc-7.2", "gcc-7.3",
	"gcc-7.4", "gcc-7.5", "gcc-8.1", "gcc-8.2", "gcc-8.3", "gcc-8.4",
	"gcc-9.1", "gcc-9.2", "gcc-9.3", "gcc-10.1",
}

type Config struct {
	ServiceURL       string
	ExplorerURL      string
	MaxCodeSize      int
	RequestTimeout   time.Duration
	ProgressInterval time.Duration
	ProgressDuration time.Duration
	BrowserCommand   string   // Custom command to open links (optional)
	Compilers        []string // Compilers offered by the options selector
	Defaults         models.Options
	LogLevel         string

	TooLargeTemplate string // Mustache template for oversize-code notices
	Dir              string // Directory the config was read from
}

type tomlConfig struct {
	ServiceURL       string         `toml:"service_url"`
	ExplorerURL      string         `toml:"explorer_url"`
	MaxCodeSize      int            `toml:"max_code_size"`
	RequestTimeout   string         `toml:"request_timeout"`
	ProgressInterval string         `toml:"progress_interval"`
	ProgressDuration string         `toml:"progress_duration"`
	BrowserCommand   string         `toml:"browser_command"`
	Compilers        []string       `toml:"compilers"`
	LogLevel         string         `toml:"log_level"`
	Defaults         models.Options `toml:"defaults"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		ServiceURL:       DefaultServiceURL,
		ExplorerURL:      DefaultExplorerURL,
		MaxCodeSize:      session.DefaultMaxCodeSize,
		RequestTimeout:   DefaultRequestTimeout,
		ProgressInterval: DefaultProgressInterval,
		ProgressDuration: DefaultProgressDuration,
		Compilers:        append([]string(nil), DefaultCompilers...),
		Defaults:         models.DefaultOptions(),
		LogLevel:         DefaultLogLevel,
		TooLargeTemplate: session.DefaultTooLargeTemplate,
	}
}

// Dir returns ~/.config/qbench, or "" when the home directory is unknown
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qbench")
}

// Load reads config from ~/.config/qbench/
func Load() (*Config, error) {
	return LoadFrom(Dir())
}

// LoadFrom reads config.toml and template overrides from dir, then applies
// environment overrides. A missing directory or file yields the defaults.
func LoadFrom(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	if dir != "" {
		tomlPath := filepath.Join(dir, "config.toml")
		if _, err := os.Stat(tomlPath); err == nil {
			var tc tomlConfig
			if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
			}
			if err := cfg.apply(tc); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", tomlPath, err)
			}
		}

		// If a custom notice template exists, use it
		if data, err := os.ReadFile(filepath.Join(dir, "too_large.mustache")); err == nil {
			if tmpl := strings.TrimSpace(string(data)); tmpl != "" {
				cfg.TooLargeTemplate = tmpl
			}
		}
	}

	cfg.ServiceURL = envStr("QBENCH_URL", cfg.ServiceURL)
	cfg.MaxCodeSize = envInt("QBENCH_MAX_CODE_SIZE", cfg.MaxCodeSize)
	cfg.LogLevel = envStr("QBENCH_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) apply(tc tomlConfig) error {
	if tc.ServiceURL != "" {
		c.ServiceURL = tc.ServiceURL
	}
	if tc.ExplorerURL != "" {
		c.ExplorerURL = tc.ExplorerURL
	}
	if tc.MaxCodeSize != 0 {
		c.MaxCodeSize = tc.MaxCodeSize
	}
	if tc.BrowserCommand != "" {
		c.BrowserCommand = strings.TrimSpace(tc.BrowserCommand)
	}
	if len(tc.Compilers) > 0 {
		c.Compilers = tc.Compilers
	}
	if tc.LogLevel != "" {
		c.LogLevel = tc.LogLevel
	}
	c.Defaults = c.Defaults.Merge(tc.Defaults)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"request_timeout", tc.RequestTimeout, &c.RequestTimeout},
		{"progress_interval", tc.ProgressInterval, &c.ProgressInterval},
		{"progress_duration", tc.ProgressDuration, &c.ProgressDuration},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// Validate rejects settings the client cannot work with
func (c *Config) Validate() error {
	if err := checkURL("service_url", c.ServiceURL); err != nil {
		return err
	}
	if err := checkURL("explorer_url", c.ExplorerURL); err != nil {
		return err
	}
	if c.MaxCodeSize < 1 {
		return fmt.Errorf("max_code_size must be positive, got %d", c.MaxCodeSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ProgressInterval <= 0 || c.ProgressDuration <= 0 {
		return fmt.Errorf("progress_interval and progress_duration must be positive")
	}
	if c.ProgressInterval > c.ProgressDuration {
		return fmt.Errorf("progress_interval %s exceeds progress_duration %s", c.ProgressInterval, c.ProgressDuration)
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// CompilerChoices returns the configured compilers followed by the latest
// compiler when it is not already listed
func (c *Config) CompilerChoices() []string {
	out := append([]string(nil), c.Compilers...)
	for _, name := range out {
		if name == LatestCompiler {
			return out
		}
	}
	return append(out, LatestCompiler)
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
