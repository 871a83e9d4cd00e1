package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"expensemanager/internal/amqp"
	"expensemanager/internal/cli"
	"expensemanager/internal/config"
	"expensemanager/internal/log"
	gsheet "expensemanager/internal/sheets/google"
	"expensemanager/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "expense-sync: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err == nil {
		err = cfg.ValidateMirror()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "expense-sync: %v\n", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg, log.ComponentWorker, nil)
	if err := run(cfg, logger); err != nil {
		logger.Error("Sheets mirror stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx = log.WithLogger(ctx, logger)

	mirror, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("google sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", mirror.SheetName())

	if existing, err := mirror.ReadAll(ctx); err != nil {
		logger.Warn("Could not read current mirror contents", log.FieldError, err)
	} else {
		logger.Info("Mirror contents before sync", log.FieldCount, len(existing))
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("amqp client: %w", err)
	}

	syncWorker := worker.NewSyncWorker(mirror)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
		err := client.ConsumeLedgerEvents(gctx, syncWorker.HandleLedgerEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume ledger events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stats := syncWorker.Stats()
		logger.Info("Shutting down worker",
			"applied", stats.Applied,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			log.FieldRevision, stats.LastRevision)
		return cli.GracefulShutdown(logger, cfg.ShutdownTimeout,
			func(context.Context) error { return client.Close() },
		)
	})
	return g.Wait()
}
