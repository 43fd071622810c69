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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"parking-escrow-backend/config"
	"parking-escrow-backend/internal/api"
	"parking-escrow-backend/internal/db"
	"parking-escrow-backend/internal/engine"
	"parking-escrow-backend/internal/metrics"
	"parking-escrow-backend/internal/notification"
	"parking-escrow-backend/internal/oracle"
	"parking-escrow-backend/internal/payments"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "parkingd").Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	logger.Info().Msg("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway := payments.NewMemoryGateway()
	m := metrics.New(prometheus.DefaultRegisterer)

	eng := engine.New(gormDB, gateway, logger, m)
	if err := eng.Init(ctx, engine.Params{
		Admin:          cfg.Auth.Admin,
		Oracle:         cfg.Engine.Oracle,
		RatePerMinute:  cfg.Engine.RatePerMinuteCents,
		MinDeposit:     cfg.Engine.MinDepositCents,
		CheckInTimeout: cfg.Engine.CheckInTimeoutSeconds,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
	workerPool.Start(ctx)
	eng.OnSpotFreed(workerPool.Dispatch)

	feed := oracle.NewService(cfg, eng, logger)
	go feed.Run(ctx)

	router := api.NewRouter(cfg, eng, gormDB, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("server gracefully stopped")
}
