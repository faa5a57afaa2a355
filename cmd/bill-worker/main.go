package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"financeflow/internal/amqp"
	"financeflow/internal/backend"
	"financeflow/internal/cli"
	"financeflow/internal/config"
	"financeflow/internal/core"
	applog "financeflow/internal/log"
	"financeflow/internal/notify"
	"financeflow/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReminder)
	logger.Info("Starting bill-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store := cli.InitBackend(context.Background(), logger, backendCfg)

	// Rolled-over bills are ordinary creates, so they reach the mirror the
	// same way API writes do.
	var publisher services.ChangePublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, rolled-over bills will not be published", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
		}
	}

	svc := services.NewFinanceService(store.Store, publisher)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	rollover := services.NewBillRollover(svc)
	if _, err := scheduler.AddFunc(cfg.BillRolloverSchedule, func() {
		runRollover(ctx, logger, rollover)
	}); err != nil {
		logger.Error("Invalid bill rollover schedule", "error", err, "schedule", cfg.BillRolloverSchedule)
		os.Exit(1)
	}
	logger.Info("Bill rollover scheduled", "schedule", cfg.BillRolloverSchedule)

	if reminder := newReminder(cfg, svc); reminder != nil {
		if _, err := scheduler.AddFunc(cfg.BillReminderSchedule, func() {
			runReminder(ctx, logger, reminder)
		}); err != nil {
			logger.Error("Invalid bill reminder schedule", "error", err, "schedule", cfg.BillReminderSchedule)
			os.Exit(1)
		}
		logger.Info("Bill reminders scheduled", "schedule", cfg.BillReminderSchedule, "to", cfg.ReminderEmail)
	} else {
		logger.Info("Bill reminders disabled - no SMTP_HOST provided")
	}

	// Catch up on anything that fell due while the worker was down.
	runRollover(ctx, logger, rollover)
	scheduler.Start()

	sigCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		cancel()
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
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
	cli.WaitForShutdown(sigCtx, done)
}

func newReminder(cfg *config.Config, svc *services.FinanceService) *services.BillReminder {
	if !cfg.EmailEnabled() {
		return nil
	}
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderEmail,
	})
	return services.NewBillReminder(svc, mailer, core.DefaultCurrency, cfg.ReminderEmail)
}

func runRollover(ctx context.Context, logger *applog.Logger, rollover *services.BillRollover) {
	start := time.Now()
	count, err := rollover.Run(ctx, start)
	if err != nil {
		logger.Error("Bill rollover failed", "error", err, applog.FieldOperation, applog.OpRollover)
		return
	}
	logger.Info("Bill rollover complete", "bills_created", count, applog.FieldDuration, time.Since(start).Milliseconds())
}

func runReminder(ctx context.Context, logger *applog.Logger, reminder *services.BillReminder) {
	sent, err := reminder.Send(ctx, time.Now())
	if err != nil {
		logger.Error("Bill reminder failed", "error", err, applog.FieldOperation, applog.OpRemind)
		return
	}
	logger.Info("Bill reminder run complete", "sent", sent)
}
