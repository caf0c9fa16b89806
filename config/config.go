package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"colorwall/wallpaper"

	"gopkg.in/yaml.v3"
)

const DefaultUserAgent = "AnimeWallpaperApp/1.0"

type SourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	UserAgent string `yaml:"user_agent"`
	ProxyURL  string `yaml:"proxy_url"`

	// Worker pool widths for the per-source and per-item fan-outs.
	SourceConcurrency  int `yaml:"source_concurrency"`
	ResolveConcurrency int `yaml:"resolve_concurrency"`

	PreviewLimit int `yaml:"preview_limit"`

	// Page cache is disabled when CachePath is empty.
	CachePath string        `yaml:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// Resolution memo is disabled when ResolveCacheSize is 0.
	ResolveCacheSize int           `yaml:"resolve_cache_size"`
	ResolveCacheTTL  time.Duration `yaml:"resolve_cache_ttl"`

	Sources map[wallpaper.Source]SourceConfig `yaml:"sources"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:          DefaultUserAgent,
		SourceConcurrency:  5,
		ResolveConcurrency: 5,
		PreviewLimit:       50,
		CacheTTL:           6 * time.Hour,
		ResolveCacheSize:   256,
		ResolveCacheTTL:    time.Hour,
		Sources: map[wallpaper.Source]SourceConfig{
			wallpaper.SourceWallhaven:      {BaseURL: "https://wallhaven.cc", Timeout: 15 * time.Second},
			wallpaper.SourceZerochan:       {BaseURL: "https://www.zerochan.net", Timeout: 15 * time.Second},
			wallpaper.SourceWallpapers:     {BaseURL: "https://wallpapers.com", Timeout: 15 * time.Second},
			wallpaper.SourceMoewalls:       {BaseURL: "https://moewalls.com", Timeout: 15 * time.Second},
			wallpaper.SourceWallpaperFlare: {BaseURL: "https://www.wallpaperflare.com", Timeout: 20 * time.Second},
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// COLORWALL_CONFIG (if set) and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("COLORWALL_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.ProxyURL = v
	}
	if v := os.Getenv("COLORWALL_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("COLORWALL_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("COLORWALL_SOURCE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("COLORWALL_SOURCE_CONCURRENCY: %w", err)
		}
		cfg.SourceConcurrency = n
	}
	if v := os.Getenv("COLORWALL_RESOLVE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("COLORWALL_RESOLVE_CONCURRENCY: %w", err)
		}
		cfg.ResolveConcurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Sources present in the
// file replace only the fields they set.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	defaults := c.Sources
	c.Sources = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		c.Sources = defaults
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	merged := make(map[wallpaper.Source]SourceConfig, len(defaults))
	for src, sc := range defaults {
		merged[src] = sc
	}
	for src, sc := range c.Sources {
		base := merged[src]
		if sc.BaseURL != "" {
			base.BaseURL = sc.BaseURL
		}
		if sc.Timeout > 0 {
			base.Timeout = sc.Timeout
		}
		merged[src] = base
	}
	c.Sources = merged
	return nil
}

func (c *Config) Validate() error {
	if c.SourceConcurrency < 1 {
		return fmt.Errorf("source_concurrency must be positive, got %d", c.SourceConcurrency)
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("resolve_concurrency must be positive, got %d", c.ResolveConcurrency)
	}
	if c.PreviewLimit < 1 {
		return fmt.Errorf("preview_limit must be positive, got %d", c.PreviewLimit)
	}
	for src, sc := range c.Sources {
		if !src.Valid() {
			return fmt.Errorf("unknown source %q in config", src)
		}
		if sc.BaseURL == "" {
			return fmt.Errorf("source %s: base_url is required", src)
		}
		if sc.Timeout <= 0 {
			return fmt.Errorf("source %s: timeout must be positive", src)
		}
	}
	return nil
}

// Source returns the settings for src, falling back to the defaults.
func (c *Config) Source(src wallpaper.Source) SourceConfig {
	if sc, ok := c.Sources[src]; ok {
		return sc
	}
	return DefaultConfig().Sources[src]
}
