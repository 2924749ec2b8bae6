package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finance/internal/backend"
	"finance/internal/cli"
	apphttp "finance/internal/http"
	"finance/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting finance server", "port", cfg.Port)

	provider, err := cfg.AuthProvider()
	if err != nil {
		logger.Error("Failed to configure authentication", log.FieldError, err)
		os.Exit(1)
	}

	b, err := backend.New(context.Background(), cfg, backend.Options{Publish: true, Sheets: true}, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer b.Close()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:        b.Repo,
		Transactions: b.Transactions,
		Imports:      b.Imports,
		Summary:      b.Summary,
		Auth:         provider,
		Sheets:       b.GridReader(),
		SummaryCache: b.SummaryCache,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		TrustedProxies:     cfg.TrustedProxies,
	}, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
