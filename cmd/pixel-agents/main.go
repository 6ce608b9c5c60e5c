// Package main is the entry point for the pixel-agents tracker daemon.
// It tails agent transcript files, reconstructs each agent's live status,
// and serves the resulting event stream to display clients over WebSocket.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zep-us/zep-pixel-agents/internal/common/config"
	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
	"github.com/zep-us/zep-pixel-agents/internal/events"
	gateway "github.com/zep-us/zep-pixel-agents/internal/gateway/websocket"
	"github.com/zep-us/zep-pixel-agents/internal/tracker"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting pixel-agents tracker...")

	// 3. Create context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Initialize event bus (in-memory, or NATS if configured)
	provided, busCleanup, err := events.Provide(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize event bus", zap.Error(err))
	}
	defer busCleanup()

	// 5. Build the tracking subsystem
	svc, err := tracker.NewService(&cfg.Tracking, log, provided.Bus)
	if err != nil {
		log.Fatal("Failed to initialize tracker", zap.Error(err))
	}

	// 6. Restore agents persisted by a previous run
	if err := svc.Restore(ctx, tracker.NewPgrepProber()); err != nil {
		log.Warn("Failed to restore persisted agents", zap.Error(err))
	}

	// 7. WebSocket gateway
	hub := gateway.NewHub(log)
	relay := gateway.NewRelay(provided.Bus, hub, log)
	if err := relay.Start(); err != nil {
		log.Fatal("Failed to subscribe gateway relay", zap.Error(err))
	}
	defer relay.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway.NewHandler(hub, svc.Registry(), log))
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler: mux,
	}

	// 8. Run everything until a signal arrives
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(ctx)
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		log.Info("Gateway listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Tracker exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Tracker stopped")
}
