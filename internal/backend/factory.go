package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensemanager/internal/storage"
	"expensemanager/internal/storage/jsonfile"
	"expensemanager/internal/storage/sqlite"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the persistence instance and its cleanup function
type Result struct {
	Persistence storage.Persistence
	Cleanup     CleanupFunc
}

// Factory creates persistence backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case JSONBackend:
		return f.createJSONBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createJSONBackend(ctx context.Context, config Config) (*Result, error) {
	file := jsonfile.New(config.DataFile)

	f.logger.InfoContext(ctx, "Initialized JSON file backend", "path", file.Path())

	return &Result{
		Persistence: file,
		Cleanup:     file.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Persistence: repo,
		Cleanup:     repo.Close,
	}, nil
}
