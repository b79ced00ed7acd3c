package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kyat/internal/auth"
	"kyat/internal/backend"
	"kyat/internal/config"
	apphttp "kyat/internal/http"
	"kyat/internal/log"
	"kyat/internal/relay"
	"kyat/internal/store/sqlite"
	"kyat/internal/tracker"
)

func main() {
	// Load .env for local development; absent in production is fine.
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

	g, gctx := errgroup.WithContext(ctx)

	// Fan commits out over AMQP and consume what the other processes
	// publish, so this instance's subscribers converge on remote
	// commits. The private queue also receives our own events; the
	// redundant refresh re-delivers the same snapshot and is harmless.
	if cfg.AMQPURL != "" {
		if st, ok := result.Store.(*sqlite.Store); ok {
			relayClient, err := relay.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", logger)
			if err != nil {
				logger.Error("failed to initialize change relay", log.FieldError, err)
				os.Exit(1)
			}
			defer relayClient.Close()
			st.SetFanout(relayClient)
			g.Go(func() error {
				err := relayClient.Consume(gctx, func(event *relay.ChangeEvent) error {
					st.Refresh(gctx, event.Collection)
					return nil
				})
				if err == context.Canceled {
					return nil
				}
				return err
			})
			logger.Info("change relay enabled", "exchange", cfg.AMQPExchange)
		} else {
			logger.Warn("change relay requires the sqlite backend, skipping", log.FieldBackend, cfg.DataBackend)
		}
	}

	provider := auth.NewLocal()
	session := tracker.NewSession(result.Store, provider, logger)
	defer session.Close()

	srv := apphttp.NewServer(":"+cfg.Port, session, provider, logger)
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
