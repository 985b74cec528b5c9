// Command eyes runs a YAML scenario of browser tests that issue visual checks
// against the visual-testing service.
//
// Usage: go run . -scenario examples/storefront.yaml [-config eyes.yaml] [-browser chrome|fetch]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/cli"
	"github.com/raysh454/eyes/internal/config"
	"github.com/raysh454/eyes/internal/eyes"
	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/runner"
	"github.com/raysh454/eyes/internal/webclient"
)

type browser interface {
	runner.Browser
	Close() error
}

func openBrowser(kind string, cfg config.Config, logger logging.Logger) (browser, error) {
	if kind == "fetch" {
		return capture.NewFetchPage(webclient.NewNetHTTPClient(cfg.HTTPTimeout, logger, nil), logger), nil
	}
	page, err := capture.NewChromePage(cfg.Browser, logger)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eyes: %v\n", err)
		return 2
	}
	cfg, err := a.Config(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eyes: %v\n", err)
		return 2
	}
	logger := logging.NewWriterLogger(os.Stderr, "eyes", logging.ParseLevel(cfg.LogLevel))

	sc, err := runner.LoadScenario(a.Scenario)
	if err != nil {
		logger.Error("loading scenario", logging.Err(err))
		return 1
	}

	page, err := openBrowser(a.Browser, cfg, logger)
	if err != nil {
		logger.Error("starting browser", logging.Err(err))
		return 1
	}
	defer page.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(eyes.NewFromConfig(cfg, logger), page, runner.Options{BatchTimeout: cfg.BatchTimeout}, logger)
	res, err := r.Run(ctx, sc)
	if err != nil {
		logger.Error("scenario aborted", logging.Err(err))
		return 1
	}

	res.Print(os.Stdout)
	if !res.OK() {
		return 1
	}
	return 0
}
