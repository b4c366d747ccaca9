package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Ledger server failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	logger.Info("Storage backend ready", applog.FieldBackend, result.Description)

	m := metrics.New()
	var publisher *amqp.Client
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(m),
	}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			amqp.WithLogger(logger.WithComponent(applog.ComponentAMQP)),
			amqp.WithStateObserver(m.SetCircuitBreakerState))
		if err != nil {
			// The ledger works without a broker; events are simply not sent.
			logger.Error("AMQP unavailable, ledger events disabled", applog.FieldError, err)
		} else {
			publisher = client
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc, err := services.NewLedgerService(ctx, result.Store, opts...)
	if err != nil {
		_ = result.Store.Close()
		if publisher != nil {
			_ = publisher.Close()
		}
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Ledger close failed", applog.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:  logger,
		Metrics: m,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	srv.StartBackground(gctx)

	g.Go(func() error {
		logger.Info("Starting ledger server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
