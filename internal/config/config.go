package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Resolver ResolverConfig `yaml:"resolver"`
	Cache    CacheConfig    `yaml:"cache"`
	Capture  CaptureConfig  `yaml:"capture"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// ResolverConfig holds post metadata API configuration.
type ResolverConfig struct {
	APIBase       string        `yaml:"api_base" envconfig:"FXTWITTER_API_BASE" default:"https://api.fxtwitter.com"`
	OEmbedBase    string        `yaml:"oembed_base" envconfig:"OEMBED_API_BASE" default:"https://publish.twitter.com/oembed"`
	UserAgent     string        `yaml:"user_agent" envconfig:"RESOLVER_USER_AGENT" default:"tweetframe/0.1"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"RESOLVER_TIMEOUT" default:"30s"`
	MaxReplyDepth int           `yaml:"max_reply_depth" envconfig:"REPLY_CHAIN_MAX_DEPTH" default:"8"`
}

// CacheConfig holds resolution cache configuration.
// GraceTTL is the shortened lifetime applied to a stale value after a failed
// refresh; it is tunable independently of the main TTL.
type CacheConfig struct {
	TTL            time.Duration `yaml:"ttl" envconfig:"CACHE_TTL" default:"10m"`
	GraceTTL       time.Duration `yaml:"grace_ttl" envconfig:"CACHE_GRACE_TTL" default:"3m20s"`
	MaxEntries     int           `yaml:"max_entries" envconfig:"CACHE_MAX_ENTRIES" default:"300"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" envconfig:"CACHE_RESOLVE_TIMEOUT" default:"45s"`
}

// CaptureConfig holds rendering-surface and composition configuration.
type CaptureConfig struct {
	Headless           bool          `yaml:"headless" envconfig:"CAPTURE_HEADLESS" default:"true"`
	ViewportMargin     int           `yaml:"viewport_margin" envconfig:"CAPTURE_VIEWPORT_MARGIN" default:"120"`
	ViewportHeight     int           `yaml:"viewport_height" envconfig:"CAPTURE_VIEWPORT_HEIGHT" default:"1700"`
	ContentLoadTimeout time.Duration `yaml:"content_load_timeout" envconfig:"CAPTURE_CONTENT_TIMEOUT" default:"30s"`
	SelectorTimeout    time.Duration `yaml:"selector_timeout" envconfig:"CAPTURE_SELECTOR_TIMEOUT" default:"20s"`
	ReadinessTimeout   time.Duration `yaml:"readiness_timeout" envconfig:"CAPTURE_READINESS_TIMEOUT" default:"10s"`
	ImageWaitMillis    int           `yaml:"image_wait_millis" envconfig:"CAPTURE_IMAGE_WAIT_MILLIS" default:"2500"`
	FFmpegPath         string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	DownloadTimeout    time.Duration `yaml:"download_timeout" envconfig:"CAPTURE_DOWNLOAD_TIMEOUT" default:"2m"`
	UserAgent          string        `yaml:"user_agent" envconfig:"CAPTURE_USER_AGENT" default:"tweetframe/0.1"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Resolver.APIBase == "" {
		return fmt.Errorf("FXTWITTER_API_BASE is required")
	}
	if c.Resolver.MaxReplyDepth < 0 {
		return fmt.Errorf("REPLY_CHAIN_MAX_DEPTH must not be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.GraceTTL <= 0 {
		return fmt.Errorf("CACHE_GRACE_TTL must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
