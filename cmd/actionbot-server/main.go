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

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"actionbot/internal/config"
	"actionbot/internal/db"
	"actionbot/internal/logging"
	"actionbot/internal/server"
	"actionbot/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	s, err := server.NewServer(cfg, server.Deps{Store: st, Logger: logger})
	if err != nil {
		logger.Fatalf("failed to create server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("actionbot server listening on %s (store: %s)", httpSrv.Addr, cfg.DBDriver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

func openStore(cfg config.Config, logger *logrus.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		pg, err := db.New(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established")
		return store.OpenPostgres(pg, logger)
	case "sqlite", "":
		return store.OpenSQLite(cfg.SQLitePath, logger)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
