// Package main provides the hangman server binary. It serves the room
// protocol over WebSocket, Telnet, and gRPC from one shared hub.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty uses defaults and environment")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing server", zap.Error(err))
	}
	defer cleanup()

	logger.Info("hangman server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("websocket", cfg.WebSocket.Enabled),
		zap.Bool("telnet", cfg.Telnet.Enabled),
		zap.Bool("grpc", cfg.GRPC.Enabled),
		zap.Bool("archive", cfg.Database.Enabled),
		zap.Int("max_rooms", cfg.Game.MaxRooms),
	)

	if err := app.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		cleanup()
		_ = logger.Sync()
		log.Fatalf("server error: %v", err)
	}
}
