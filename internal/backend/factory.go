// Package backend selects and builds the ledger store named by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"divider/internal/ledgers/jsonfile"
	"divider/internal/ledgers/memory"
	"divider/internal/storage"
)

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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case JSONBackend:
		return f.createJSONBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createJSONBackend(config Config) (*BackendResult, error) {
	dataDir := config.JSONDataDir
	if dataDir == "" {
		dataDir = "data/ledgers"
	}

	store, err := jsonfile.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JSON store: %w", err)
	}

	f.logger.Info("Initialized JSON file backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   memory.New(),
		Cleanup: nil,
	}, nil
}
