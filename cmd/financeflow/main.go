package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"financeflow/internal/amqp"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	apphttp "financeflow/internal/http"
	applog "financeflow/internal/log"
	"financeflow/internal/records/memory"
	"financeflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store := cli.InitBackend(context.Background(), logger, backendCfg)

	// Publishing is optional: without a broker the API still serves every
	// request, it just emits no record-change events.
	var publisher services.ChangePublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, record changes will not be published", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - record changes will not be published")
	}

	// Testimonials are static content shipped with the fixtures, whatever
	// backend holds the records.
	testimonials, err := memory.LoadTestimonials(cfg.DataDir)
	if err != nil {
		logger.Warn("Failed to load testimonials, serving none", "error", err, "dir", cfg.DataDir)
	}

	svc := services.NewFinanceService(store.Store, publisher, services.WithTestimonials(testimonials))
	srv := apphttp.NewServer(svc, apphttp.Options{
		Addr:               net.JoinHostPort("", cfg.Port),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready: func(ctx context.Context) error {
			return backend.PingWithTimeout(ctx, store)
		},
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(applog.IntoContext(ctx, logger)); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP client close error", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", "error", err)
		}
	})

	go func() {
		logger.Info("Starting financeflow server", "addr", srv.Addr, "backend", backendCfg.Type.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
