package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// TransactionPatch lists the fields UpdateTransaction may change. Nil fields
// are left as they are.
type TransactionPatch struct {
	AccountID   *string               `json:"accountId,omitempty"`
	Kind        *core.TransactionKind `json:"kind,omitempty"`
	Amount      *decimal.Decimal      `json:"amount,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Description *string               `json:"description,omitempty"`
	Date        *time.Time            `json:"date,omitempty"`
}

// CreateTransaction records a transaction and moves its account balance in the
// same batch.
func (s *Service) CreateTransaction(ctx context.Context, sess core.Session, d core.Draft) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}
	d = normalize(d)
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.GetAccount(ctx, sess, d.AccountID); err != nil {
		return core.Transaction{}, err
	}

	t := s.newTransaction(sess, d)
	fields, err := store.Encode(t)
	if err != nil {
		return core.Transaction{}, core.Storage("encode transaction", err)
	}
	ops := []store.Op{
		store.PutOp(store.Transactions, t.ID, fields),
		balanceOp(t.AccountID, t.Delta()),
	}
	if err := s.db.Batch(ctx, ops); err != nil {
		return core.Transaction{}, core.Lookup("create transaction", "account", t.AccountID, err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithOwner(sess.Owner).
		WithTransaction(t.ID, t.AccountID, string(t.Kind), t.Amount, t.Category).
		ToSlice()...)
	s.publish(ctx, transactionEvent(amqp.TransactionCreated, t))
	return t, nil
}

func (s *Service) GetTransaction(ctx context.Context, sess core.Session, id string) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var t core.Transaction
	if err := store.GetOwned(ctx, s.db, store.Transactions, id, sess.Owner, &t); err != nil {
		return core.Transaction{}, core.Lookup("get transaction", "transaction", id, err)
	}
	return t, nil
}

// DeleteTransaction removes a transaction and reverts its effect on the
// account balance in the same batch.
func (s *Service) DeleteTransaction(ctx context.Context, sess core.Session, id string) error {
	t, err := s.GetTransaction(ctx, sess, id)
	if err != nil {
		return err
	}

	ops := []store.Op{store.DeleteOp(store.Transactions, id)}
	if _, err := s.GetAccount(ctx, sess, t.AccountID); err == nil {
		ops = append(ops, balanceOp(t.AccountID, t.Delta().Neg()))
	} else if !isNotFound(err) {
		return err
	}

	if err := s.db.Batch(ctx, ops); err != nil {
		return core.Lookup("delete transaction", "account", t.AccountID, err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOwner, sess.Owner,
		log.FieldTransactionID, id,
		log.FieldAccountID, t.AccountID)
	s.publish(ctx, transactionEvent(amqp.TransactionDeleted, t))
	return nil
}

// UpdateTransaction applies patch. When kind, amount or account change, the
// old balance effect is reverted and the new one applied in the same batch as
// the rewritten record.
func (s *Service) UpdateTransaction(ctx context.Context, sess core.Session, id string, patch TransactionPatch) (core.Transaction, error) {
	old, err := s.GetTransaction(ctx, sess, id)
	if err != nil {
		return core.Transaction{}, err
	}

	d := old.Draft()
	if patch.AccountID != nil {
		d.AccountID = *patch.AccountID
	}
	if patch.Kind != nil {
		d.Kind = *patch.Kind
	}
	if patch.Amount != nil {
		d.Amount = *patch.Amount
	}
	if patch.Category != nil {
		d.Category = *patch.Category
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.Date != nil {
		d.Date = *patch.Date
	}
	d = normalize(d)
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if d.AccountID != old.AccountID {
		if _, err := s.GetAccount(ctx, sess, d.AccountID); err != nil {
			return core.Transaction{}, err
		}
	}

	updated := old
	updated.AccountID = d.AccountID
	updated.Kind = d.Kind
	updated.Amount = d.Amount
	updated.Category = d.Category
	updated.Description = d.Description
	updated.Date = d.Date

	fields, err := store.Encode(updated)
	if err != nil {
		return core.Transaction{}, core.Storage("encode transaction", err)
	}
	ops := []store.Op{store.PutOp(store.Transactions, id, fields)}
	if updated.AccountID == old.AccountID {
		if diff := updated.Delta().Sub(old.Delta()); !diff.IsZero() {
			ops = append(ops, balanceOp(updated.AccountID, diff))
		}
	} else {
		if _, err := s.GetAccount(ctx, sess, old.AccountID); err == nil {
			ops = append(ops, balanceOp(old.AccountID, old.Delta().Neg()))
		}
		ops = append(ops, balanceOp(updated.AccountID, updated.Delta()))
	}

	if err := s.db.Batch(ctx, ops); err != nil {
		return core.Transaction{}, core.Lookup("update transaction", "account", updated.AccountID, err)
	}

	s.logger.InfoContext(ctx, "Transaction updated", log.NewFields().
		WithOwner(sess.Owner).
		WithTransaction(updated.ID, updated.AccountID, string(updated.Kind), updated.Amount, updated.Category).
		ToSlice()...)
	ev := transactionEvent(amqp.TransactionUpdated, updated)
	if m := core.MonthOf(old.Date); m != ev.Months[0] {
		ev.Months = append(ev.Months, m)
	}
	s.publish(ctx, ev)
	return updated, nil
}

// ApplyDrafts persists a batch of drafts: one put per draft and one balance
// increment per account carrying the net delta of its drafts, all in a single
// store batch.
func (s *Service) ApplyDrafts(ctx context.Context, sess core.Session, drafts []core.Draft) ([]core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, core.Invalid("drafts", "nothing to apply")
	}
	accounts, err := s.ownedAccounts(ctx, sess)
	if err != nil {
		return nil, err
	}

	clean := make([]core.Draft, 0, len(drafts))
	txns := make([]core.Transaction, 0, len(drafts))
	ops := make([]store.Op, 0, len(drafts)+len(accounts))
	months := make(map[string]bool)
	for _, d := range drafts {
		d = normalize(d)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := accounts[d.AccountID]; !ok {
			return nil, accountNotFound(d.AccountID)
		}
		clean = append(clean, d)

		t := s.newTransaction(sess, d)
		fields, err := store.Encode(t)
		if err != nil {
			return nil, core.Storage("encode transaction", err)
		}
		ops = append(ops, store.PutOp(store.Transactions, t.ID, fields))
		txns = append(txns, t)
		months[core.MonthOf(t.Date)] = true
	}

	net := core.NetDeltas(clean)
	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !net[id].IsZero() {
			ops = append(ops, balanceOp(id, net[id]))
		}
	}

	if err := s.db.Batch(ctx, ops); err != nil {
		return nil, core.Storage("apply drafts", err)
	}

	s.logger.InfoContext(ctx, "Drafts applied",
		log.FieldOwner, sess.Owner,
		log.FieldCount, len(txns),
		"accounts", len(ids))

	ev := amqp.NewEvent(amqp.ImportCommitted, sess.Owner, "")
	ev.Count = len(txns)
	for m := range months {
		ev.Months = append(ev.Months, m)
	}
	sort.Strings(ev.Months)
	s.publish(ctx, ev)
	return txns, nil
}

// ListTransactions returns the owner's transactions, newest date first and
// newest record first within a day. An empty accountID lists every account.
func (s *Service) ListTransactions(ctx context.Context, sess core.Session, accountID string) ([]core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var filters []store.Filter
	if accountID != "" {
		filters = append(filters, store.Filter{Field: "accountId", Value: accountID})
	}
	txns, err := store.List[core.Transaction](ctx, s.db, store.Transactions, sess.Owner, filters...)
	if err != nil {
		return nil, core.Storage("list transactions", err)
	}
	SortTransactions(txns)
	return txns, nil
}

// SortTransactions orders by date descending, then createdAt descending.
func SortTransactions(txns []core.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}

func (s *Service) newTransaction(sess core.Session, d core.Draft) core.Transaction {
	return core.Transaction{
		ID:          s.newID(),
		Owner:       sess.Owner,
		AccountID:   d.AccountID,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		CreatedAt:   s.timestamp(),
	}
}

func normalize(d core.Draft) core.Draft {
	d.Category = strings.TrimSpace(d.Category)
	d.Description = strings.TrimSpace(d.Description)
	if !d.Date.IsZero() {
		d.Date = core.DateOf(d.Date)
	}
	return d
}

func transactionEvent(t amqp.EventType, tx core.Transaction) *amqp.Event {
	ev := amqp.NewEvent(t, tx.Owner, tx.ID)
	ev.AccountID = tx.AccountID
	ev.Category = tx.Category
	ev.Months = []string{core.MonthOf(tx.Date)}
	return ev
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
