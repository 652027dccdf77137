// Package main provides the HTTP server for campusdesk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/auth"
	"github.com/raphaelgruber/campusdesk/internal/config"
	"github.com/raphaelgruber/campusdesk/internal/llm"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/server"
	"github.com/raphaelgruber/campusdesk/internal/service"
)

const version = "0.1.0"

func main() {
	// Parse flags
	wipeDB := flag.Bool("wipe", false, "wipe all tasks from the store on startup (testing only)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg, "server")
	defer func() { _ = cleanup() }()

	logger.Info("starting campusdesk-server",
		"version", version,
		"port", cfg.ServerPort,
		"store", cfg.StoreBackend,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	// Identity is mandatory; refuse to serve todos without a signing secret.
	resolver, err := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Error("failed to create token resolver", "error", err)
		os.Exit(1)
	}

	// Connect to the task store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open task store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close task store", "error", err)
		}
	}()

	// Wipe store if requested (via flag or env var)
	if *wipeDB || os.Getenv("CAMPUSDESK_WIPE_DB") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := store.WipeData(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to wipe task store", "error", err)
			os.Exit(1)
		}
	}

	// Chat provider is optional; without it the chat route reports CONFIG_MISSING.
	provider, err := llm.NewProvider(context.Background(), cfg)
	if err != nil {
		if !errors.Is(err, apperr.ErrConfigMissing) {
			logger.Error("failed to create chat provider", "error", err)
			os.Exit(1)
		}
		logger.Warn("chat provider not configured", "provider", cfg.LLMProvider, "error", err)
		provider = nil
	}

	mc := metrics.NewCollector()
	srv := server.New(server.Dependencies{
		Tasks:    service.NewTaskService(store, logger, mc),
		Chat:     service.NewChatService(provider, cfg.Chat, logger, mc),
		Resolver: resolver,
		Metrics:  mc,
		Store:    store,
		Logger:   logger,
	})

	// Create HTTP server
	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second, // Long for LLM responses
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s/api", cfg.ServerPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serveErr:
		logger.Error("server error", "error", err)
		return
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
}
