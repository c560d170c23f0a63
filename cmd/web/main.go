package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/config"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/httpserver"
	"github.com/equiplend/frontend/internal/middleware/csrf"
	"github.com/equiplend/frontend/internal/session"
	"github.com/equiplend/frontend/pkg/logging"
)

// sessionBackend is the chosen session store plus its health check and
// cleanup.
type sessionBackend struct {
	store session.Store
	ready func() error
	close func()
}

func openSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sessionBackend, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		return &sessionBackend{
			store: session.NewRedisStore(rdb, cfg.SessionTTL),
			ready: func() error {
				pctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return rdb.Ping(pctx).Err()
			},
			close: func() { _ = rdb.Close() },
		}, nil

	case config.SessionBackendSQL:
		db, err := session.OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := session.NewSQLStore(ctx, db, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		purgeCtx, stopPurge := context.WithCancel(context.Background())
		go purgeLoop(purgeCtx, store, logger)
		return &sessionBackend{
			store: store,
			ready: func() error {
				pctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return sqlDB.PingContext(pctx)
			},
			close: func() {
				stopPurge()
				_ = sqlDB.Close()
			},
		}, nil
	}

	return &sessionBackend{store: session.NewMemoryStore(cfg.SessionTTL), close: func() {}}, nil
}

func purgeLoop(ctx context.Context, store *session.SQLStore, logger *slog.Logger) {
	t := time.NewTicker(15 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("session_purged", "count", n)
			}
		}
	}
}

func main() {
	config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "equiplend-web")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sessions, err := openSessions(ctx, cfg, logger)
	cancel()
	if err != nil {
		log.Fatalf("session store (%s): %v", cfg.SessionBackend, err)
	}

	pub := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	api := apiclient.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	e := echo.New()
	e.HideBanner = true

	if err := httpserver.Register(e, &httpserver.Deps{
		API:          api,
		Sessions:     session.NewManager(api, sessions.store),
		Events:       pub,
		Logger:       logger,
		Location:     cfg.Location,
		CookieSecure: cfg.CookieSecure,
		SessionTTL:   cfg.SessionTTL,
		CSRFConfig:   csrf.DefaultConfig(),
		Ready:        sessions.ready,
	}); err != nil {
		log.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "api", cfg.APIBaseURL, "sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	sessions.close()
	if err := pub.Close(); err != nil {
		logger.Error("event publisher close error", "error", err)
	}
	logger.Info("stopped")
}
