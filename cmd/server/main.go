// cmd/server/main.go
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

	"github.com/jason-s-yu/lobbyhub/internal/auth"
	"github.com/jason-s-yu/lobbyhub/internal/cache"
	"github.com/jason-s-yu/lobbyhub/internal/chat"
	"github.com/jason-s-yu/lobbyhub/internal/config"
	"github.com/jason-s-yu/lobbyhub/internal/connections"
	"github.com/jason-s-yu/lobbyhub/internal/database"
	"github.com/jason-s-yu/lobbyhub/internal/handlers"
	"github.com/jason-s-yu/lobbyhub/internal/lobby"
	"github.com/jason-s-yu/lobbyhub/internal/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := configureLogger(logger, cfg); err != nil {
		logger.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// backends holds the stores selected by config plus whatever must be closed on exit.
type backends struct {
	lobbies lobby.StateStore
	chat    chat.Store
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*backends, error) {
	b := &backends{
		lobbies: lobby.NewMemoryStore(),
		chat:    chat.NewMemoryStore(),
	}

	var rdb *redis.Client
	if cfg.StateBackend == "redis" || cfg.ChatBackend == "redis" {
		client, err := cache.Connect(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		rdb = client
		b.closers = append(b.closers, func() { _ = client.Close() })
		logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	switch cfg.StateBackend {
	case "redis":
		b.lobbies = cache.NewLobbyStore(rdb, cfg.RedisPrefix)
	case "postgres":
		pool, err := database.Connect(ctx, database.Options{
			Host:     cfg.PGHost,
			Port:     cfg.PGPort,
			User:     cfg.PGUser,
			Password: cfg.PGPassword,
			Database: cfg.PGDatabase,
		})
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		store := database.NewLobbyStore(pool)
		if err := store.Migrate(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.lobbies = store
		logger.WithField("host", cfg.PGHost).Info("connected to postgres")
	}

	if cfg.ChatBackend == "redis" {
		b.chat = cache.NewChatStore(rdb, cfg.RedisPrefix)
	}
	return b, nil
}

func newIssuer(cfg config.Config) (*auth.Issuer, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	if cfg.TokenPrivateKeyPath != "" {
		return auth.NewIssuerFromPath(cfg.TokenPrivateKeyPath, cfg.TokenPublicKeyPath, ttl)
	}
	return auth.NewIssuer(ttl)
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer stores.close()

	issuer, err := newIssuer(cfg)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	if cfg.TokenPrivateKeyPath == "" {
		logger.Warn("no token keys configured; issued tokens will not survive a restart")
	}

	chatSvc := chat.NewService(stores.chat, logger)
	lobbies := lobby.NewService(stores.lobbies, logger, lobby.WithGracePeriod(cfg.HostGracePeriod))
	lobbies.OnDestroy = chatSvc.ClearHistory

	registry := connections.NewRegistry(logger)
	hub := handlers.NewHub(lobbies, chatSvc, registry, issuer, logger)
	sweeper := handlers.NewSweeper(hub, logger, cfg.SweepInterval)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)
	mux.Handle("/ws", logged(handlers.WSHandler(hub, logger, handlers.WSOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.SendBuffer,
	})))
	mux.Handle("/health", logged(handlers.HealthHandler(hub, logger)))
	mux.Handle("/lobbies", logged(handlers.ListLobbiesHandler(hub, logger)))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"addr":         cfg.Addr(),
			"stateBackend": cfg.StateBackend,
			"chatBackend":  cfg.ChatBackend,
		}).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
