package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
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

	var (
		persister storage.Persister
		err       error
	)
	switch config.Type {
	case MemoryBackend:
		persister = storage.NewMemory()
	case FileBackend:
		persister, err = storage.NewFile(config.DataFile)
	case SQLiteBackend:
		persister, err = storage.NewSQLite(config.SQLiteDBPath)
	case BoltBackend:
		persister, err = storage.NewBolt(config.BoltDBPath)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	result := &BackendResult{Persister: persister}

	// Initialize AMQP client (optional)
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without alert publishing", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				log.FieldExchange, config.AMQPExchange,
				log.FieldQueue, config.AMQPQueue)
			result.Publisher = amqpClient
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, persister.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized storage backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", result.Publisher != nil)

	return result, nil
}
