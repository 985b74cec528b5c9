// Command eyes-mock runs a local stand-in for the visual-testing service.
// Usage: go run ./cmd/eyes-mock [-port 7373] [-store eyes.db] [-pending 1] [-fail command=message]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/raysh454/eyes/internal/cli"
	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/mockservice"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a, err := cli.ParseMockArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eyes-mock: %v\n", err)
		return 2
	}
	logger := logging.NewWriterLogger(os.Stderr, "eyes-mock", logging.ParseLevel(a.LogLevel))

	svc, err := mockservice.Open(a.Config, logger)
	if err != nil {
		logger.Error("starting mock service", logging.Err(err))
		return 1
	}
	defer svc.Close()

	store := "memory"
	if a.Config.StorePath != "" {
		store = a.Config.StorePath
	}
	title := color.New(color.Bold, color.FgCyan)
	_, _ = title.Println("===========================================")
	_, _ = title.Println("   eyes mock visual-testing service")
	_, _ = title.Println("===========================================")
	fmt.Printf("Listening on http://localhost:%d/eyes/\n", a.Config.Port)
	fmt.Printf("Store: %s, batchEnd WIP polls: %d\n", store, a.Config.PendingPolls)
	for cmd, msg := range a.Config.Failures {
		_, _ = color.New(color.FgYellow).Printf("Failing %s: %q\n", cmd, msg)
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := svc.HTTPServer()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Err(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", logging.Err(err))
		}
	}
	return 0
}
