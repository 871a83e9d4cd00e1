package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"expensemanager/internal/amqp"
	"expensemanager/internal/backend"
	"expensemanager/internal/cli"
	"expensemanager/internal/config"
	apphttp "expensemanager/internal/http"
	"expensemanager/internal/log"
	"expensemanager/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "expensemanager: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "expensemanager: %v\n", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg, log.ComponentApp, nil)
	if err := run(cfg, logger); err != nil {
		logger.Error("Expense manager stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx = log.WithLogger(ctx, logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.Logger).Create(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, ledger events disabled",
				log.FieldError, err)
		} else {
			publisher = client
			logger.WithComponent(log.ComponentAMQP).Info("Publishing ledger events",
				"exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewExpenseService(res.Persistence, publisher)
	if err := svc.Load(ctx); err != nil {
		if cerr := svc.Close(); cerr != nil {
			logger.Warn("Cleanup after failed load", log.FieldError, cerr)
		}
		return err
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		CurrencySymbol:     cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, svc)
	if err != nil {
		_ = svc.Close()
		return err
	}
	srv.StartBackground(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense manager",
			"addr", cfg.Addr(),
			log.FieldBackend, cfg.DataBackend,
			log.FieldCount, svc.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		return cli.GracefulShutdown(logger, cfg.ShutdownTimeout,
			srv.Shutdown,
			func(context.Context) error { return svc.Close() },
		)
	})
	return g.Wait()
}
