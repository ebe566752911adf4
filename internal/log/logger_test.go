package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewTextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelWarn, ComponentLedger)

	logger.Info("hidden")
	logger.Warn("balance drift", FieldAccountID, "acc-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %s", out)
	}
	for _, want := range []string{"balance drift", "component=ledger", "account_id=acc-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewText(&buf, slog.LevelDebug, ComponentImport))

	sl.LogImportCompleted(context.Background(), "alice", 3, 1)

	out := buf.String()
	for _, want := range []string{"owner=alice", "count=3", "rejected=1", "operation=import", "component=import"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestWithTransaction(t *testing.T) {
	fields := NewFields().WithTransaction("t1", "a1", "expense", decimal.RequireFromString("12.50"), "Food")

	if fields[FieldAmount] != "12.50" {
		t.Errorf("amount = %v, want 12.50", fields[FieldAmount])
	}
	if fields[FieldCategory] != "Food" || fields[FieldAccountID] != "a1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	// Must not panic and must not write anywhere observable.
	Discard().Error("ignored", FieldError, "x")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentApp}).
		WithComponent(ComponentWorker)

	logger.Info("started", FieldCount, 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %v: %s", err, buf.String())
	}
	if rec["component"] != ComponentWorker || rec["count"] != float64(2) {
		t.Errorf("record = %v", rec)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component written more than once: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != ComponentApp {
		t.Errorf("fallback component = %q", got)
	}

	logger := Discard().WithComponent(ComponentHTTP)
	if got := FromContext(NewContext(context.Background(), logger)); got != logger {
		t.Error("FromContext did not return the attached logger")
	}
}

func TestToSliceIsOrdered(t *testing.T) {
	got := NewFields().WithOwner("alice").WithClientIP("10.0.0.1").ToSlice()
	want := []any{FieldClientIP, "10.0.0.1", FieldOwner, "alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice() = %v, want %v", got, want)
		}
	}
}
