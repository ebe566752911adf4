// Package ledger keeps accounts, transactions and categories mutually
// consistent. Every change that touches more than one document is written as a
// single store batch, and balances only move through store-side increments.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Service is the ledger engine.
type Service struct {
	db       store.Store
	events   amqp.Publisher
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
	defaults map[core.CategoryKind][]string
}

type Option func(*Service)

// WithPublisher enables ledger change events.
func WithPublisher(p amqp.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithDefaultCategories replaces the categories seeded for a new owner.
func WithDefaultCategories(m map[core.CategoryKind][]string) Option {
	return func(s *Service) {
		if len(m) > 0 {
			s.defaults = m
		}
	}
}

func New(db store.Store, opts ...Option) *Service {
	s := &Service{
		db:       db,
		logger:   log.Discard(),
		now:      time.Now,
		newID:    uuid.NewString,
		defaults: core.DefaultCategories,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	return s
}

func (s *Service) publish(ctx context.Context, ev *amqp.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEvent, ev.Type,
			log.FieldOwner, ev.Owner,
			log.FieldError, err)
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}
