package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // debug profiling
	"os"
	"os/signal"
	"syscall"
	"time"

	"buddy_go/internal/app"
	"buddy_go/internal/infra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("Bootstrapping failed", "err", err)
		bootstrap.Shutdown()
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	if cfg.Logging.Level == "debug" {
		go func() {
			// localhost only
			slog.Info("Pprof server started on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("Pprof server failed", "err", err)
			}
		}()
	}

	bootstrap.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           bootstrap.API().Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("API listening", "addr", cfg.API.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API shutdown", "err", err)
	}
}
