package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"kyat/internal/backend"
	"kyat/internal/config"
	"kyat/internal/export"
	exportgoogle "kyat/internal/export/google"
	"kyat/internal/log"
	"kyat/internal/relay"
	"kyat/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel)})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("failed to create store backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("store cleanup failed", log.FieldError, err)
		}
	}()

	// The exporter is optional; without it the worker only refreshes.
	var exporter *export.Exporter
	if cfg.ExportEnabled {
		sheetsClient, err := exportgoogle.NewFromEnv(ctx)
		if err != nil {
			logger.Error("failed to initialize sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = export.New(result.Store, sheetsClient, logger)
		logger.Info("monthly export enabled",
			log.FieldUserID, cfg.ExportUserID, "schedule", cfg.ExportSchedule)
	}

	w := worker.New(result.Refresher, exporter, cfg.ExportUserID, cfg.RefreshDebounce, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		relayClient, err := relay.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize change relay", log.FieldError, err)
			os.Exit(1)
		}
		defer relayClient.Close()

		g.Go(func() error {
			err := relayClient.Consume(gctx, func(event *relay.ChangeEvent) error {
				return w.HandleChange(gctx, event)
			})
			if err == context.Canceled {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP not configured, change consumption disabled")
	}

	if cfg.ExportEnabled {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.ExportSchedule, func() {
			if err := w.RunMonthlyExport(context.Background()); err != nil {
				logger.Error("scheduled export failed", log.FieldError, err)
			}
		}); err != nil {
			logger.Error("invalid export schedule", log.FieldError, err, "schedule", cfg.ExportSchedule)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.Info("worker started", log.FieldBackend, cfg.DataBackend)
	if err := g.Wait(); err != nil {
		logger.Error("worker error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
