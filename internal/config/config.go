// Package config holds the process-wide settings for talking to the visual
// testing service. A Config is built once at startup and treated as read-only.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains every runtime option the eyes packages read.
type Config struct {
	// Host and Port locate the local visual-testing service.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// BatchTimeout bounds the batchEnd confirmation poll.
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// PollInterval is the pause between batchEnd polls.
	PollInterval time.Duration `yaml:"poll_interval"`
	// HTTPTimeout bounds a single round trip. Zero means no client timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	UploadConcurrency int `yaml:"upload_concurrency"`
	FetchConcurrency  int `yaml:"fetch_concurrency"`

	// DOMProps lists the computed style properties captured with each check.
	DOMProps []string `yaml:"dom_props"`

	Browser  BrowserConfig `yaml:"browser"`
	LogLevel string        `yaml:"log_level"`
}

// BrowserConfig controls the chromedp-backed page used by the runner.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`
	// IdleAfter is how long the network must stay quiet before a page counts as loaded.
	IdleAfter time.Duration `yaml:"idle_after"`
	// MaxSettle caps the wait for network idle after navigation.
	MaxSettle time.Duration `yaml:"max_settle"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
}

// DefaultDOMProps are the style properties captured when none are configured.
var DefaultDOMProps = []string{
	"background-repeat",
	"background-origin",
	"background-position",
	"background-color",
	"background-image",
	"background-size",
	"border-width",
	"border-color",
	"border-style",
	"color",
	"display",
	"font-size",
	"line-height",
	"margin",
	"opacity",
	"overflow",
	"padding",
	"visibility",
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              7373,
		BatchTimeout:      2 * time.Minute,
		PollInterval:      500 * time.Millisecond,
		HTTPTimeout:       5 * time.Minute,
		UploadConcurrency: 8,
		FetchConcurrency:  4,
		DOMProps:          append([]string(nil), DefaultDOMProps...),
		Browser: BrowserConfig{
			Headless:  true,
			IdleAfter: 2 * time.Second,
			MaxSettle: 15 * time.Second,
			Width:     1024,
			Height:    768,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file and overlays it on DefaultConfig. Keys missing from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing YAML: %w", err)
	}
	return cfg, cfg.Validate()
}

// Env variable names read by ApplyEnv.
const (
	EnvHost    = "EYES_HOST"
	EnvPort    = "EYES_PORT"
	EnvTimeout = "EYES_TIMEOUT"
)

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv. EYES_TIMEOUT accepts a Go duration or plain milliseconds.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.BatchTimeout = d
	}
	return c.Validate()
}

func parseTimeout(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("config: host is empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.BatchTimeout <= 0 {
		return errors.New("config: batch_timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	if c.UploadConcurrency < 1 || c.FetchConcurrency < 1 {
		return errors.New("config: concurrency limits must be at least 1")
	}
	return nil
}

// BaseURL is the service root every command path is appended to.
func (c Config) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
