package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/frontend/handlers"
	"github.com/cory-johannsen/hangman/internal/frontend/rpc"
	"github.com/cory-johannsen/hangman/internal/frontend/telnet"
	"github.com/cory-johannsen/hangman/internal/frontend/websocket"
	"github.com/cory-johannsen/hangman/internal/gameserver"
	"github.com/cory-johannsen/hangman/internal/server"
	"github.com/cory-johannsen/hangman/internal/storage/postgres"
)

// healthInterval is how often the database pool is pinged while running.
const healthInterval = 30 * time.Second

// App is the assembled server. Listener fields are nil when disabled.
type App struct {
	Lifecycle *server.Lifecycle
	Hub       *gameserver.Hub
	WebSocket *websocket.Server
	Telnet    *telnet.Acceptor
	RPC       *rpc.Server
}

// Run blocks until a signal, ctx cancellation, or a service failure.
func (a *App) Run(ctx context.Context) error {
	return a.Lifecycle.Run(ctx)
}

var providerSet = wire.NewSet(
	provideSettings,
	provideDatabase,
	provideArchive,
	provideHub,
	provideWebSocket,
	provideTelnet,
	provideRPC,
	provideLifecycle,
	wire.Struct(new(App), "*"),
)

func provideSettings(cfg config.Config) gameserver.Settings {
	return gameserver.NewSettings(cfg.Game, cfg.Limits)
}

// provideDatabase connects the result archive pool. It returns a nil pool
// when archiving is disabled.
func provideDatabase(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Pool, func(), error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	return pool, pool.Close, nil
}

func provideArchive(pool *postgres.Pool, cfg config.Config, logger *zap.Logger) *gameserver.Archive {
	if pool == nil {
		return nil
	}
	return gameserver.NewArchive(logger, pool.Results(), cfg.Database.ArchiveQueue)
}

func provideHub(logger *zap.Logger, settings gameserver.Settings, archive *gameserver.Archive) *gameserver.Hub {
	var opts []gameserver.HubOption
	if archive != nil {
		opts = append(opts, gameserver.WithOutcomeSink(archive))
	}
	return gameserver.NewHub(logger, settings, opts...)
}

func provideWebSocket(cfg config.Config, hub *gameserver.Hub, logger *zap.Logger) *websocket.Server {
	if !cfg.WebSocket.Enabled {
		return nil
	}
	return websocket.NewServer(cfg.WebSocket, cfg.Limits, hub, logger)
}

func provideTelnet(cfg config.Config, hub *gameserver.Hub, logger *zap.Logger) *telnet.Acceptor {
	if !cfg.Telnet.Enabled {
		return nil
	}
	return telnet.NewAcceptor(cfg.Telnet, handlers.NewGameHandler(hub, cfg.Limits, logger), logger)
}

func provideRPC(cfg config.Config, hub *gameserver.Hub, logger *zap.Logger) *rpc.Server {
	if !cfg.GRPC.Enabled {
		return nil
	}
	return rpc.NewServer(cfg.GRPC, cfg.Limits, hub, logger)
}

// provideLifecycle registers services so that shutdown stops the listeners
// first, then the hub, then the archive, then the database pool.
func provideLifecycle(
	logger *zap.Logger,
	pool *postgres.Pool,
	archive *gameserver.Archive,
	hub *gameserver.Hub,
	ws *websocket.Server,
	tn *telnet.Acceptor,
	grpcServer *rpc.Server,
) *server.Lifecycle {
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", healthService(pool, logger))
	}
	if archive != nil {
		lifecycle.Add("archive", &server.FuncService{StartFn: archive.Run, StopFn: archive.Stop})
	}
	lifecycle.Add("hub", hubService(hub))
	if grpcServer != nil {
		lifecycle.Add("grpc", grpcServer)
	}
	if tn != nil {
		lifecycle.Add("telnet", tn)
	}
	if ws != nil {
		lifecycle.Add("websocket", ws)
	}
	return lifecycle
}

// hubService holds the hub open while the server runs. Stopping it closes
// every room and mailbox so remaining connections wind down.
func hubService(hub *gameserver.Hub) server.Service {
	stop := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			<-stop
			return nil
		},
		StopFn: func() {
			hub.Close()
			close(stop)
		},
	}
}

// healthService pings the pool periodically until stopped.
func healthService(pool *postgres.Pool, logger *zap.Logger) server.Service {
	stop := make(chan struct{})
	return &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(healthInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					if err := pool.Health(context.Background(), 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() { close(stop) },
	}
}
