// Package debt tracks informal money lent to and borrowed from people. Debts
// never touch account balances.
package debt

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

type Service struct {
	db     store.Store
	events amqp.Publisher
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func New(db store.Store, events amqp.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		db:     db,
		events: events,
		logger: logger.WithComponent(log.ComponentDebt),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) CreatePerson(ctx context.Context, sess core.Session, name string) (core.PersonDebt, error) {
	if err := sess.Validate(); err != nil {
		return core.PersonDebt{}, err
	}
	p := core.PersonDebt{
		ID:         s.newID(),
		Owner:      sess.Owner,
		PersonName: strings.TrimSpace(name),
		CreatedAt:  s.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return core.PersonDebt{}, err
	}
	fields, err := store.Encode(p)
	if err != nil {
		return core.PersonDebt{}, core.Storage("encode person", err)
	}
	if err := s.db.Put(ctx, store.People, p.ID, fields); err != nil {
		return core.PersonDebt{}, core.Storage("create person", err)
	}
	return p, nil
}

// ListPeople returns the owner's people, oldest first.
func (s *Service) ListPeople(ctx context.Context, sess core.Session) ([]core.PersonDebt, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	people, err := store.List[core.PersonDebt](ctx, s.db, store.People, sess.Owner)
	if err != nil {
		return nil, core.Storage("list people", err)
	}
	sort.SliceStable(people, func(i, j int) bool {
		return people[i].CreatedAt.Before(people[j].CreatedAt)
	})
	return people, nil
}

func (s *Service) person(ctx context.Context, sess core.Session, id string) (core.PersonDebt, error) {
	if err := sess.Validate(); err != nil {
		return core.PersonDebt{}, err
	}
	var p core.PersonDebt
	if err := store.GetOwned(ctx, s.db, store.People, id, sess.Owner, &p); err != nil {
		return core.PersonDebt{}, core.Lookup("get person", "person", id, err)
	}
	return p, nil
}

// RemovePerson deletes a person and all of their debts in one batch.
func (s *Service) RemovePerson(ctx context.Context, sess core.Session, id string) error {
	if _, err := s.person(ctx, sess, id); err != nil {
		return err
	}
	debts, err := s.db.QueryByOwner(ctx, store.Debts, sess.Owner, store.Filter{Field: "personDebtId", Value: id})
	if err != nil {
		return core.Storage("list person debts", err)
	}

	ops := make([]store.Op, 0, len(debts)+1)
	for _, d := range debts {
		did, _ := d["id"].(string)
		ops = append(ops, store.DeleteOp(store.Debts, did))
	}
	ops = append(ops, store.DeleteOp(store.People, id))
	if err := s.db.Batch(ctx, ops); err != nil {
		return core.Storage("remove person", err)
	}

	s.logger.InfoContext(ctx, "Person removed",
		log.FieldOwner, sess.Owner,
		log.FieldPersonID, id,
		log.FieldCount, len(debts))
	ev := amqp.NewEvent(amqp.PersonRemoved, sess.Owner, id)
	ev.Count = len(debts)
	s.publish(ctx, ev)
	return nil
}

// CreateDebt records a pending debt with an existing person.
func (s *Service) CreateDebt(ctx context.Context, sess core.Session, personID string, kind core.DebtKind, amount decimal.Decimal, description string) (core.Debt, error) {
	d := core.Debt{
		Owner:        sess.Owner,
		PersonDebtID: strings.TrimSpace(personID),
		Kind:         kind,
		Amount:       amount,
		Description:  strings.TrimSpace(description),
		Status:       core.Pending,
	}
	if err := sess.Validate(); err != nil {
		return core.Debt{}, err
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	if _, err := s.person(ctx, sess, d.PersonDebtID); err != nil {
		return core.Debt{}, err
	}

	d.ID = s.newID()
	d.CreatedAt = s.now().UTC()
	fields, err := store.Encode(d)
	if err != nil {
		return core.Debt{}, core.Storage("encode debt", err)
	}
	if err := s.db.Put(ctx, store.Debts, d.ID, fields); err != nil {
		return core.Debt{}, core.Storage("create debt", err)
	}

	s.logger.InfoContext(ctx, "Debt created",
		log.FieldOwner, sess.Owner,
		log.FieldDebtID, d.ID,
		log.FieldPersonID, d.PersonDebtID,
		log.FieldKind, d.Kind,
		log.FieldAmount, d.Amount.StringFixed(2))
	s.publish(ctx, amqp.NewEvent(amqp.DebtCreated, sess.Owner, d.ID))
	return d, nil
}

// ListDebts returns the owner's debts, newest first. A non-empty personID
// narrows the list to that person.
func (s *Service) ListDebts(ctx context.Context, sess core.Session, personID string) ([]core.Debt, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var filters []store.Filter
	if personID != "" {
		filters = append(filters, store.Filter{Field: "personDebtId", Value: personID})
	}
	debts, err := store.List[core.Debt](ctx, s.db, store.Debts, sess.Owner, filters...)
	if err != nil {
		return nil, core.Storage("list debts", err)
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].CreatedAt.After(debts[j].CreatedAt)
	})
	return debts, nil
}

func (s *Service) debt(ctx context.Context, sess core.Session, id string) (core.Debt, error) {
	if err := sess.Validate(); err != nil {
		return core.Debt{}, err
	}
	var d core.Debt
	if err := store.GetOwned(ctx, s.db, store.Debts, id, sess.Owner, &d); err != nil {
		return core.Debt{}, core.Lookup("get debt", "debt", id, err)
	}
	return d, nil
}

// MarkPaid settles a pending debt. Paid is terminal; marking a paid debt again
// succeeds without writing anything.
func (s *Service) MarkPaid(ctx context.Context, sess core.Session, id string) (core.Debt, error) {
	d, err := s.debt(ctx, sess, id)
	if err != nil {
		return core.Debt{}, err
	}
	if d.Status == core.Paid {
		return d, nil
	}

	if err := s.db.Update(ctx, store.Debts, id, store.Fields{"status": string(core.Paid)}); err != nil {
		return core.Debt{}, core.Lookup("mark debt paid", "debt", id, err)
	}
	d.Status = core.Paid

	s.logger.InfoContext(ctx, "Debt marked paid",
		log.FieldOwner, sess.Owner,
		log.FieldDebtID, id)
	s.publish(ctx, amqp.NewEvent(amqp.DebtPaid, sess.Owner, id))
	return d, nil
}

// RemoveDebt deletes a debt whatever its status.
func (s *Service) RemoveDebt(ctx context.Context, sess core.Session, id string) error {
	if _, err := s.debt(ctx, sess, id); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, store.Debts, id); err != nil {
		return core.Storage("remove debt", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, ev *amqp.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish debt event",
			log.FieldEvent, ev.Type,
			log.FieldError, err)
	}
}
