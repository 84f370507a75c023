// Package app owns the process lifecycle: starting the HTTP server and the
// background scheduler, and shutting both down on a signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/httpapi"
	"github.com/guarzo/thriftflip/internal/scheduler"
)

// App bundles the long-running components.
type App struct {
	server          *httpapi.Server
	scheduler       *scheduler.Scheduler
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// New creates an App. sched may be nil when background jobs are disabled.
func New(server *httpapi.Server, sched *scheduler.Scheduler, shutdownTimeout time.Duration, logger zerolog.Logger) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		server:          server,
		scheduler:       sched,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("server stopped: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if a.scheduler != nil {
		a.scheduler.Stop(shutdownCtx)
	}
	return runErr
}
