// Package backend opens the document store and event publisher selected by
// the configuration.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/store"
)

// CleanupFunc releases what CreateBackend opened.
type CleanupFunc func() error

type BackendResult struct {
	Store   store.Store
	Events  amqp.Publisher // nil when events are disabled or the broker was unreachable
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string
	BoltDBPath   string

	// Events are published only when AMQPURL is set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a store implementation.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	BoltBackend   BackendType = "bolt"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == MemoryBackend || bt == SQLiteBackend || bt == BoltBackend
}
