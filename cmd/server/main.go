// Package main is the entry point for the stockledger API server.
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

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/auth"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting stockledger server", "storage", cfg.App.StorageDriver, "env", cfg.App.Env)

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	if rt.Pool == nil {
		// The worker cannot reach an in-memory store, so expire holds in-process.
		sweepCtx, stopSweep := context.WithCancel(ctx)
		defer stopSweep()
		sweeper := reservation.NewSweeper(rt.Services.Reservations, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatchSize)
		go sweeper.Run(sweepCtx)
	}

	routerCfg := v1.RouterConfig{
		Services:       rt.Services,
		Health:         handlers.NewHealthHandler(rt.Pool, cfg.App.Name, version),
		Logger:         log,
		History:        rt.Stores.History,
		ReservationTTL: cfg.Reservation.DefaultTTL,
	}
	if cfg.JWT.Secret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.JWTConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		})
		routerCfg.AuthRequired = cfg.JWT.Required
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = rt.Stores.Idempotency
	}
	router := v1.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr, "auth", routerCfg.JWTValidator != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
