package main

import (
	"context"
	"errors"
	"os"

	"financeflow/internal/amqp"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	applog "financeflow/internal/log"
	"financeflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting finance-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Mirror configuration validation failed", "error", err)
		os.Exit(1)
	}

	mirrorCfg, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror backend configuration", "error", err)
		os.Exit(1)
	}
	mirror := cli.InitBackend(context.Background(), logger, mirrorCfg)

	mirrorWorker, err := worker.NewMirrorWorker(mirror.Store)
	if err != nil {
		logger.Error("Mirror backend cannot be written to", "error", err, "backend", mirrorCfg.Type.String())
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	// The memory backend lives in another process, so there is nothing to
	// resync from.
	var primary *backend.BackendResult
	if backend.BackendType(cfg.DataBackend) != backend.MemoryBackend {
		primaryCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid primary backend configuration", "error", err)
			os.Exit(1)
		}
		primary = cli.InitBackend(context.Background(), logger, primaryCfg)
	} else {
		logger.Info("Skipping mirror resync - primary backend is in-memory")
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP client close error", "error", err)
		}
		if err := mirror.Close(); err != nil {
			logger.Warn("Mirror backend close error", "error", err)
		}
		if err := primary.Close(); err != nil {
			logger.Warn("Primary backend close error", "error", err)
		}
	})

	if primary != nil {
		// Catch up on events published while the worker was down, then keep
		// resyncing as a safety net for events the consumer never saw.
		logger.Info("Resyncing mirror from primary backend", "primary", cfg.DataBackend)
		if err := mirrorWorker.Resync(ctx, primary.Store); err != nil {
			logger.Error("Startup resync failed", "error", err)
		}
		if cfg.MirrorResyncInterval > 0 {
			logger.Info("Scheduling periodic mirror resync", "interval", cfg.MirrorResyncInterval)
			go mirrorWorker.ResyncEvery(ctx, primary.Store, cfg.MirrorResyncInterval)
		}
	}

	go func() {
		// Returns only once ctx ends; broker outages are retried inside.
		if err := amqpClient.ConsumeRecordChanges(ctx, mirrorWorker.HandleRecordChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption stopped", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
