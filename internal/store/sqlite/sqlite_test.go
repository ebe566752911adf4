package sqlite

import (
	"path/filepath"
	"testing"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(filepath.Join(t.TempDir(), "data", "fintrack.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	first, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
	if first != 1 || second != first {
		t.Errorf("versions = %d then %d, want 1 both times", first, second)
	}
}
