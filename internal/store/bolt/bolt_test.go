package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(filepath.Join(t.TempDir(), "fintrack.bolt"))
		if err != nil {
			t.Fatalf("open bolt store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.bolt")
	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(context.Background(), store.Budgets, "b1", store.Fields{"owner": "u1", "month": "2024-03"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	doc, err := s.Get(context.Background(), store.Budgets, "b1")
	if err != nil || doc["month"] != "2024-03" {
		t.Fatalf("document not persisted: %v (err=%v)", doc, err)
	}
}
