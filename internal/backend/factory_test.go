package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/store"
)

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		config Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "fintrack.db")}},
		{"bolt", Config{Type: BoltBackend, BoltDBPath: filepath.Join(dir, "fintrack.bolt")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := NewFactory(nil).CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer result.Cleanup()

			if result.Events != nil {
				t.Error("events should be disabled without an AMQP URL")
			}
			fields := store.Fields{store.OwnerField: "alice", "name": "Cash"}
			if err := result.Store.Put(ctx, store.Accounts, "a1", fields); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, err := result.Store.Get(ctx, store.Accounts, "a1")
			if err != nil || got["name"] != "Cash" {
				t.Errorf("Get() = %v, %v", got, err)
			}
		})
	}
}

func TestCreateBackendRejectsBadConfig(t *testing.T) {
	tests := []Config{
		{Type: "sheets"},
		{Type: SQLiteBackend},
		{Type: BoltBackend},
		{Type: MemoryBackend, AMQPURL: "amqp://localhost/"},
	}
	for _, cfg := range tests {
		if _, err := NewFactory(nil).CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("CreateBackend(%+v) expected error", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:  "bolt",
		BoltDBPath:   "/tmp/x.bolt",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "fintrack",
		AMQPQueue:    "ledger_events",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != BoltBackend || cfg.BoltDBPath != "/tmp/x.bolt" || cfg.AMQPQueue != "ledger_events" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	err := Config{Type: BoltBackend, AMQPURL: "amqp://localhost/"}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"bolt backend needs a database path", "AMQP exchange and queue"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestWithoutEvents(t *testing.T) {
	cfg := Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "fintrack", AMQPQueue: "q"}
	quiet := cfg.WithoutEvents()
	if quiet.AMQPURL != "" || cfg.AMQPURL == "" {
		t.Errorf("WithoutEvents() = %+v, original %+v", quiet, cfg)
	}

	result, err := NewFactory(nil).CreateBackend(context.Background(), quiet)
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer result.Cleanup()
	if result.Events != nil {
		t.Error("publisher opened despite WithoutEvents")
	}
}
