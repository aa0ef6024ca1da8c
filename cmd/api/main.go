package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conforma/remitos-api/internal/config"
	"github.com/conforma/remitos-api/internal/db"
	"github.com/conforma/remitos-api/internal/logging"
	"github.com/conforma/remitos-api/internal/metrics"
	"github.com/conforma/remitos-api/internal/redisx"
	"github.com/conforma/remitos-api/internal/server"
	otelsetup "github.com/conforma/remitos-api/internal/trace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTrace, err := otelsetup.Setup(ctx, cfg.OTELEndpoint, cfg.OTELSample)
	if err != nil {
		logger.Warn("otel_setup", slog.String("err", err.Error()))
		shutdownTrace = func(context.Context) error { return nil }
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTrace(tctx)
	}()

	opener, err := db.Open(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	mx := metrics.New()
	mgr := db.NewManager(opener, logger, mx)

	rdb := redisx.New(cfg.Redis)
	if rdb != nil {
		if err := redisx.Ping(ctx, rdb); err != nil {
			logger.Warn("redis_unreachable", slog.String("err", err.Error()))
		}
	}

	// Best effort: the server starts regardless and reconnects on first use.
	go func() {
		if _, err := mgr.DB(ctx); err != nil {
			logger.Error("db_initial_connect", slog.String("err", err.Error()))
		}
	}()

	srv := server.New(cfg, mgr, mx, logger, rdb)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("http", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("stopped")
}
