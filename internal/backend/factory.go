package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/store"
	"fintrack/internal/store/bolt"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: db, Cleanup: db.Close}

	// A broker that cannot be reached degrades to running without events.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Events = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), db.Close())
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, config.Type.String(),
		"events_enabled", result.Events != nil)

	return result, nil
}

func (f *DefaultFactory) openStore(config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		db, err := sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return db, nil
	case BoltBackend:
		db, err := bolt.New(config.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Bolt store: %w", err)
		}
		return db, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
