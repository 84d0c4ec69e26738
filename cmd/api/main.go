package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcclellann/fredCollect/pkg/config"
	"github.com/mcclellann/fredCollect/pkg/logger"
	"github.com/mcclellann/fredCollect/pkg/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// openStore builds the configured storage. The demo book is seeded only into an empty store.
func openStore(cfg *config.Config, logr *zap.Logger) (store.Storage, error) {
	var s store.Storage
	switch cfg.Store {
	case config.StoreSQLite:
		sqliteStore, err := store.NewSQLiteStore(cfg.DBPath, logr.Named("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		s = sqliteStore
	default:
		s = store.NewMemoryStore()
	}

	if !cfg.SeedDemo {
		return s, nil
	}
	loans, err := s.GetAllLoans()
	if err != nil {
		s.Close()
		return nil, err
	}
	if len(loans) == 0 {
		if err := store.Seed(s, time.Now()); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		logr.Info("demo data seeded", zap.String("store", cfg.Store))
	}
	return s, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logr, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logr.Sync()

	storage, err := openStore(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer storage.Close()

	server := NewServer(storage, logr)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PastDueCron, server.ledger.SweepPastDue); err != nil {
		logr.Fatal("invalid past-due sweep schedule", zap.String("cron", cfg.PastDueCron), zap.Error(err))
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", httpServer.Addr), zap.String("store", cfg.Store))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logr.Warn("past-due sweep still running at shutdown")
	}
}
