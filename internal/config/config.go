package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randomtoy/jokes-go/internal/adapters/jokeapi"
	"github.com/randomtoy/jokes-go/internal/adapters/metrics"
)

const configPathEnv = "JOKES_CONFIG"

type Config struct {
	HTTPAddr         string
	LogLevel         slog.Level
	JokeAPIURL       string
	FetchTimeout     time.Duration
	MetricsNamespace string
}

// fileConfig is the YAML shape. Empty fields keep the defaults.
type fileConfig struct {
	HTTPAddr         string        `yaml:"http_addr"`
	LogLevel         string        `yaml:"log_level"`
	JokeAPIURL       string        `yaml:"joke_api_url"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path (or $JOKES_CONFIG when path is empty) and environment overrides, in
// that order.
func Load(path string) (Config, error) {
	c := Config{
		HTTPAddr:         ":8080",
		LogLevel:         slog.LevelInfo,
		JokeAPIURL:       jokeapi.DefaultEndpoint,
		FetchTimeout:     10 * time.Second,
		MetricsNamespace: metrics.DefaultNamespace,
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if err := c.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.HTTPAddr != "" {
		c.HTTPAddr = fc.HTTPAddr
	}
	if fc.JokeAPIURL != "" {
		c.JokeAPIURL = fc.JokeAPIURL
	}
	if fc.FetchTimeout != 0 {
		c.FetchTimeout = fc.FetchTimeout
	}
	if fc.MetricsNamespace != "" {
		c.MetricsNamespace = fc.MetricsNamespace
	}
	if fc.LogLevel != "" {
		level, err := ParseLogLevel(fc.LogLevel)
		if err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		c.LogLevel = level
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.JokeAPIURL = envOr("JOKE_API_URL", c.JokeAPIURL)
	c.MetricsNamespace = envOr("METRICS_NAMESPACE", c.MetricsNamespace)

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", v, err)
		}
		c.FetchTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := ParseLogLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	return nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.JokeAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid joke API URL %q: must be an absolute http(s) URL", c.JokeAPIURL)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout %s: must be positive", c.FetchTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseLogLevel accepts debug, info, warn and error in any case.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
