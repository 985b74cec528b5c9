// Package cli parses the command lines of the eyes binaries. Parsing never
// reads os.Args, so every entry point is testable with plain slices.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raysh454/eyes/internal/config"
	"github.com/raysh454/eyes/internal/mockservice"
)

// RunArgs are the scenario runner's command-line arguments.
type RunArgs struct {
	// Scenario is the YAML scenario file to run.
	Scenario string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// Overrides; zero values leave the config untouched.
	Host     string
	Port     int
	Timeout  time.Duration
	LogLevel string
	Headful  bool

	// Browser is "chrome" (chromedp) or "fetch" (plain HTTP, no scripts).
	Browser string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns RunArgs.
func ParseArgs(args []string) (*RunArgs, error) {
	fs := flag.NewFlagSet("eyes", flag.ContinueOnError)
	var (
		scenario = fs.String("scenario", "", "Scenario YAML file to run (required)")
		cfgPath  = fs.String("config", "", "Config YAML file")
		host     = fs.String("host", "", "Visual-testing service host")
		port     = fs.Int("port", 0, "Visual-testing service port")
		timeout  = fs.Duration("timeout", 0, "Batch end timeout (e.g. 2m)")
		logLevel = fs.String("log-level", "", "Log level: debug|info|warn|error")
		headful  = fs.Bool("headful", false, "Show the browser window")
		browser  = fs.String("browser", "chrome", "Page backend: chrome|fetch")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if strings.TrimSpace(*scenario) == "" {
		return nil, fmt.Errorf("missing required -scenario argument")
	}
	if *port < 0 || *port > 65535 {
		return nil, fmt.Errorf("invalid -port %d", *port)
	}
	if *browser != "chrome" && *browser != "fetch" {
		return nil, fmt.Errorf("invalid -browser %q", *browser)
	}

	return &RunArgs{
		Scenario:   *scenario,
		ConfigPath: *cfgPath,
		Host:       *host,
		Port:       *port,
		Timeout:    *timeout,
		LogLevel:   *logLevel,
		Headful:    *headful,
		Browser:    *browser,
		RawArgs:    args,
	}, nil
}

// Config resolves the effective configuration: defaults, then the config
// file, then the environment, then flags.
func (a *RunArgs) Config(lookupEnv func(string) (string, bool)) (config.Config, error) {
	cfg := config.DefaultConfig()
	if a.ConfigPath != "" {
		loaded, err := config.Load(a.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if lookupEnv != nil {
		if err := cfg.ApplyEnv(lookupEnv); err != nil {
			return config.Config{}, err
		}
	}

	if a.Host != "" {
		cfg.Host = a.Host
	}
	if a.Port != 0 {
		cfg.Port = a.Port
	}
	if a.Timeout != 0 {
		cfg.BatchTimeout = a.Timeout
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.Headful {
		cfg.Browser.Headless = false
	}
	return cfg, cfg.Validate()
}

// MockArgs are the mock service's command-line arguments.
type MockArgs struct {
	Config   mockservice.Config
	LogLevel string
}

// failureFlags collects repeated -fail command=message flags.
type failureFlags map[string]string

func (f failureFlags) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f failureFlags) Set(v string) error {
	cmd, msg, ok := strings.Cut(v, "=")
	if !ok || cmd == "" || msg == "" {
		return fmt.Errorf("want command=message, got %q", v)
	}
	f[cmd] = msg
	return nil
}

// ParseMockArgs parses the eyes-mock command line.
func ParseMockArgs(args []string) (*MockArgs, error) {
	def := mockservice.DefaultConfig()
	failures := failureFlags{}

	fs := flag.NewFlagSet("eyes-mock", flag.ContinueOnError)
	var (
		port     = fs.Int("port", def.Port, "Port to listen on")
		store    = fs.String("store", "", "SQLite file for baselines and resources (default: in memory)")
		pending  = fs.Int("pending", def.PendingPolls, "batchEnd polls answered with WIP before the summary")
		logLevel = fs.String("log-level", "info", "Log level: debug|info|warn|error")
	)
	fs.Var(failures, "fail", "Make a command fail: command=message (repeatable)")
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *port < 1 || *port > 65535 {
		return nil, fmt.Errorf("invalid -port %d", *port)
	}
	if *pending < 0 {
		return nil, fmt.Errorf("invalid -pending %d", *pending)
	}

	cfg := mockservice.Config{
		Port:         *port,
		PendingPolls: *pending,
		StorePath:    *store,
	}
	if len(failures) > 0 {
		cfg.Failures = failures
	}
	return &MockArgs{Config: cfg, LogLevel: *logLevel}, nil
}
