package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/app"
	"github.com/arturoeanton/launchpad-match/internal/logger"
	"github.com/arturoeanton/launchpad-match/pkg/config"
)

func main() {
	// ── Configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}

	lg, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer lg.Sync()

	lg.Info("🚀 Starting LaunchPad matching service",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("embed_provider", cfg.EmbedProvider),
		zap.Bool("mcp_enabled", cfg.MCPEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Wiring ───────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		lg.Fatal("failed to apply schema", zap.Error(err))
	}

	// ── Start ────────────────────────────────────────────────────────────
	if err := a.Serve(ctx); err != nil {
		lg.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}
