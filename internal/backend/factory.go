package backend

import (
	"context"
	"fmt"
	"log/slog"

	"presupuesto/internal/adapters"
	"presupuesto/internal/amqp"
	"presupuesto/internal/ports"
	"presupuesto/internal/storage"
	"presupuesto/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger

	// dial is replaced in tests to avoid a broker.
	dial func(url, exchange, queue string) (adapters.Publisher, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial: func(url, exchange, queue string) (adapters.Publisher, error) {
			client, err := amqp.NewClient(url, exchange, queue)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ports.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(config)
	case MemoryBackend:
		store = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	store = f.withEvents(store, config)
	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (ports.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) ports.Store {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return memory.NewFromFiles(dataDir)
}

// withEvents wraps store so writes announce the touched month. A broker
// that cannot be reached at startup only disables events.
func (f *DefaultFactory) withEvents(store ports.Store, config Config) ports.Store {
	if config.AMQPURL == "" {
		return store
	}
	publisher, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		return store
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return adapters.NewEventingStore(store, publisher, f.logger)
}

// Ping checks backend liveness when the store supports it.
func Ping(ctx context.Context, b Backend) error {
	type pinger interface {
		Ping(context.Context) error
	}
	if p, ok := b.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
