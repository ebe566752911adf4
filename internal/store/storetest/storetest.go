// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/store"
)

// Run exercises a backend. open must return a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("put get update delete", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.Put(ctx, store.Accounts, "a1", store.Fields{"owner": "u1", "name": "Bank", "balance": "10"}); err != nil {
			t.Fatalf("put: %v", err)
		}
		doc, err := s.Get(ctx, store.Accounts, "a1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if doc["name"] != "Bank" {
			t.Fatalf("unexpected doc %v", doc)
		}

		if err := s.Update(ctx, store.Accounts, "a1", store.Fields{"name": "Savings"}); err != nil {
			t.Fatalf("update: %v", err)
		}
		doc, _ = s.Get(ctx, store.Accounts, "a1")
		if doc["name"] != "Savings" || doc["balance"] != "10" {
			t.Fatalf("update should patch only given fields, got %v", doc)
		}

		if err := s.Delete(ctx, store.Accounts, "a1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, store.Accounts, "a1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, store.Accounts, "a1"); err != nil {
			t.Fatalf("deleting a missing document should be a no-op, got %v", err)
		}
		if err := s.Update(ctx, store.Accounts, "missing", store.Fields{"name": "x"}); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound updating missing doc, got %v", err)
		}
	})

	t.Run("query by owner with filters in insertion order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		docs := []struct {
			id     string
			fields store.Fields
		}{
			{"t3", store.Fields{"owner": "u1", "accountId": "a"}},
			{"t1", store.Fields{"owner": "u1", "accountId": "b"}},
			{"t2", store.Fields{"owner": "u2", "accountId": "a"}},
			{"t0", store.Fields{"owner": "u1", "accountId": "a"}},
		}
		for _, d := range docs {
			d.fields["id"] = d.id
			if err := s.Put(ctx, store.Transactions, d.id, d.fields); err != nil {
				t.Fatalf("put %s: %v", d.id, err)
			}
		}

		all, err := s.QueryByOwner(ctx, store.Transactions, "u1")
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if got := ids(all); len(got) != 3 || got[0] != "t3" || got[1] != "t1" || got[2] != "t0" {
			t.Fatalf("unexpected owner query result %v", got)
		}

		filtered, err := s.QueryByOwner(ctx, store.Transactions, "u1", store.Filter{Field: "accountId", Value: "a"})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if got := ids(filtered); len(got) != 2 || got[0] != "t3" || got[1] != "t0" {
			t.Fatalf("unexpected filtered result %v", got)
		}
	})

	t.Run("increment", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Put(ctx, store.Accounts, "a1", store.Fields{"owner": "u1", "balance": "100.50"}); err != nil {
			t.Fatalf("put: %v", err)
		}
		err := s.Batch(ctx, []store.Op{
			store.IncrementOp(store.Accounts, "a1", "balance", decimal.RequireFromString("-40.25")),
			store.IncrementOp(store.Accounts, "a1", "balance", decimal.NewFromInt(10)),
		})
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		doc, _ := s.Get(ctx, store.Accounts, "a1")
		got, err := store.DecimalField(doc, "balance")
		if err != nil || !got.Equal(decimal.RequireFromString("70.25")) {
			t.Fatalf("balance = %v (err=%v), want 70.25", got, err)
		}
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Put(ctx, store.Accounts, "a1", store.Fields{"owner": "u1", "balance": "5"}); err != nil {
			t.Fatalf("put: %v", err)
		}
		err := s.Batch(ctx, []store.Op{
			store.PutOp(store.Transactions, "t1", store.Fields{"owner": "u1"}),
			store.IncrementOp(store.Accounts, "a1", "balance", decimal.NewFromInt(1)),
			store.DeleteOp(store.Accounts, "a1"),
			store.IncrementOp(store.Accounts, "missing", "balance", decimal.NewFromInt(1)),
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from failing op, got %v", err)
		}
		if _, err := s.Get(ctx, store.Transactions, "t1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("put from failed batch must not be visible, got %v", err)
		}
		doc, err := s.Get(ctx, store.Accounts, "a1")
		if err != nil {
			t.Fatalf("delete from failed batch must not be visible, got %v", err)
		}
		if doc["balance"] != "5" {
			t.Fatalf("increment from failed batch must not be visible, got %v", doc)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		s := open(t)
		err := s.Put(context.Background(), "nope", "x", store.Fields{"owner": "u1"})
		if !errors.Is(err, store.ErrUnknownCollection) {
			t.Fatalf("expected ErrUnknownCollection, got %v", err)
		}
	})
}

func ids(docs []store.Fields) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d["id"].(string)
	}
	return out
}
