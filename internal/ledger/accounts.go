package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// CreateAccount opens an account with the given starting balance. Credit card
// accounts may start negative.
func (s *Service) CreateAccount(ctx context.Context, sess core.Session, name string, kind core.AccountKind, initialBalance decimal.Decimal) (core.Account, error) {
	if err := sess.Validate(); err != nil {
		return core.Account{}, err
	}
	acc := core.Account{
		ID:        s.newID(),
		Owner:     sess.Owner,
		Name:      strings.TrimSpace(name),
		Kind:      kind,
		Balance:   initialBalance.Round(2),
		CreatedAt: s.timestamp(),
	}
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}

	fields, err := store.Encode(acc)
	if err != nil {
		return core.Account{}, core.Storage("encode account", err)
	}
	if err := s.db.Put(ctx, store.Accounts, acc.ID, fields); err != nil {
		return core.Account{}, core.Storage("create account", err)
	}

	s.logger.InfoContext(ctx, "Account created",
		log.FieldOwner, sess.Owner,
		log.FieldAccountID, acc.ID,
		log.FieldKind, acc.Kind)
	s.publish(ctx, amqp.NewEvent(amqp.AccountCreated, sess.Owner, acc.ID))
	return acc, nil
}

// ListAccounts returns the owner's accounts, oldest first.
func (s *Service) ListAccounts(ctx context.Context, sess core.Session) ([]core.Account, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	accounts, err := store.List[core.Account](ctx, s.db, store.Accounts, sess.Owner)
	if err != nil {
		return nil, core.Storage("list accounts", err)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Service) GetAccount(ctx context.Context, sess core.Session, id string) (core.Account, error) {
	if err := sess.Validate(); err != nil {
		return core.Account{}, err
	}
	var acc core.Account
	if err := store.GetOwned(ctx, s.db, store.Accounts, id, sess.Owner, &acc); err != nil {
		return core.Account{}, core.Lookup("get account", "account", id, err)
	}
	return acc, nil
}

func (s *Service) RenameAccount(ctx context.Context, sess core.Session, id, name string) (core.Account, error) {
	acc, err := s.GetAccount(ctx, sess, id)
	if err != nil {
		return core.Account{}, err
	}
	acc.Name = strings.TrimSpace(name)
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.db.Update(ctx, store.Accounts, id, store.Fields{"name": acc.Name}); err != nil {
		return core.Account{}, core.Lookup("rename account", "account", id, err)
	}
	return acc, nil
}

// DeleteAccount removes the account together with every transaction that
// references it. Dependents are gathered first, then removed with the account
// in one batch.
func (s *Service) DeleteAccount(ctx context.Context, sess core.Session, id string) error {
	if _, err := s.GetAccount(ctx, sess, id); err != nil {
		return err
	}

	txns, err := s.db.QueryByOwner(ctx, store.Transactions, sess.Owner, store.Filter{Field: "accountId", Value: id})
	if err != nil {
		return core.Storage("list account transactions", err)
	}

	ops := make([]store.Op, 0, len(txns)+1)
	months := make(map[string]bool)
	for _, f := range txns {
		var t core.Transaction
		if err := store.Decode(f, &t); err != nil {
			return core.Storage("decode transaction", err)
		}
		months[core.MonthOf(t.Date)] = true
		ops = append(ops, store.DeleteOp(store.Transactions, t.ID))
	}
	ops = append(ops, store.DeleteOp(store.Accounts, id))

	if err := s.db.Batch(ctx, ops); err != nil {
		return core.Storage("delete account", err)
	}

	s.logger.InfoContext(ctx, "Account deleted",
		log.FieldOwner, sess.Owner,
		log.FieldAccountID, id,
		log.FieldCount, len(txns))
	ev := amqp.NewEvent(amqp.AccountDeleted, sess.Owner, id)
	ev.AccountID = id
	ev.Count = len(txns)
	for m := range months {
		ev.Months = append(ev.Months, m)
	}
	sort.Strings(ev.Months)
	s.publish(ctx, ev)
	return nil
}

// SetBalance overwrites the balance. It exists for manual corrections only;
// transactions move balances through ApplyDelta semantics.
func (s *Service) SetBalance(ctx context.Context, sess core.Session, id string, balance decimal.Decimal) error {
	if _, err := s.GetAccount(ctx, sess, id); err != nil {
		return err
	}
	if err := s.db.Update(ctx, store.Accounts, id, store.Fields{"balance": balance.Round(2).String()}); err != nil {
		return core.Lookup("set balance", "account", id, err)
	}
	return nil
}

// ApplyDelta adds a signed amount to the balance as a store-side increment, so
// concurrent deltas on the same backend never overwrite each other.
func (s *Service) ApplyDelta(ctx context.Context, sess core.Session, id string, delta decimal.Decimal) error {
	if _, err := s.GetAccount(ctx, sess, id); err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}
	if err := s.db.Batch(ctx, []store.Op{balanceOp(id, delta)}); err != nil {
		return core.Lookup("apply delta", "account", id, err)
	}
	return nil
}

// ownedAccounts loads the owner's accounts keyed by id.
func (s *Service) ownedAccounts(ctx context.Context, sess core.Session) (map[string]core.Account, error) {
	accounts, err := s.ListAccounts(ctx, sess)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func balanceOp(accountID string, delta decimal.Decimal) store.Op {
	return store.IncrementOp(store.Accounts, accountID, "balance", delta)
}

func accountNotFound(id string) error {
	return core.NotFound("account", id)
}
