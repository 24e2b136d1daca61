// Package main runs the prompt enhancer HTTP service.
//
// Settings come from a .env file in the working directory and the
// environment; see internal/config. The Azure OpenAI client is built on the
// first request that needs it, so the service starts (and /health answers)
// without provider credentials.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/promptenhancer/internal/config"
	"github.com/leofalp/promptenhancer/internal/server"
	"github.com/leofalp/promptenhancer/providers/observability/slogobs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	logger := slogobs.New(settings.LoggerOptions()...)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	srv := server.New(settings, server.WithLogger(logger))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("prompt enhancer listening",
			slog.Int("port", settings.Port),
			slog.String("deployment", settings.Deployment),
			slog.Int("max_retries", settings.MaxRetries),
		)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
