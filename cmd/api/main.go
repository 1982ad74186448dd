package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patriotpilot/internal/config"
	"patriotpilot/internal/container"
	"patriotpilot/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about the indexed university records, grounding
// every answer in chunks retrieved from a prebuilt vector index.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: PatriotPilot API
//   description: |
//     Retrieval-augmented question answering over a prebuilt chunk index.
//     Ask a question, retrieve ranked chunks, or chat with the LLM directly.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	// A missing or misaligned pair is fatal: never serve a partial index.
	snap, err := c.LoadSnapshot(ctx)
	if err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}

	if err := c.Ping(ctx, 5*time.Second); err != nil {
		slog.Warn("Model service not reachable at startup", "error", err)
	}

	deps := &http.Deps{
		RetrievalService: c.RetrievalService(snap),
		ChatService:      c.ChatService(),
		Chunks:           snap,
		Manifest:         snap.Manifest,
		CollectionName:   cfg.QdrantCollection,
	}
	if cfg.SearchBackend == config.SearchBackendQdrant {
		deps.VectorStore = c.VectorStore
	}
	router := http.NewRouter(deps)

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr, "chunks", len(snap.Chunks), "policy", cfg.RetrievalPolicy)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
