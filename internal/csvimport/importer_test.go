package csvimport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/store/memory"
)

var owner = core.Session{Owner: "owner-1"}

func newImporter(t *testing.T, cfg Config) (*Importer, *ledger.Service, core.Account) {
	t.Helper()
	led := ledger.New(memory.New())
	acc, err := led.CreateAccount(context.Background(), owner, "Bank Account", core.Bank, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return NewImporter(led, cfg, nil), led, acc
}

const netDeltaCSV = header +
	"2024-01-15,Bank Account,income,Salary,Pay,100\n" +
	"2024-01-16,Bank,expense,Food,Lunch,40\n" +
	"2024-01-17,Bank,expense,Food,Broken,abc\n"

func TestImporter_PreviewThenCommit(t *testing.T) {
	im, led, acc := newImporter(t, DefaultConfig())
	ctx := context.Background()

	p, err := im.Preview(ctx, owner, strings.NewReader(netDeltaCSV))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(p.Drafts) != 2 || len(p.Errors) != 1 || p.Errors[0].Row != 4 {
		t.Fatalf("preview = %+v", p)
	}
	if got, _ := led.GetAccount(ctx, owner, acc.ID); !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("preview must not touch balances, got %s", got.Balance)
	}

	if _, err := im.Commit(ctx, core.Session{Owner: "owner-2"}, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign commit error = %v, want not found", err)
	}

	out, err := im.Commit(ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(out.Imported) != 2 || len(out.Errors) != 1 {
		t.Errorf("outcome = %+v", out)
	}
	got, _ := led.GetAccount(ctx, owner, acc.ID)
	if !got.Balance.Equal(decimal.NewFromInt(1060)) {
		t.Errorf("balance = %s, want 1060", got.Balance)
	}

	if _, err := im.Commit(ctx, owner, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second commit error = %v, want not found", err)
	}
}

func TestImporter_Import(t *testing.T) {
	im, led, _ := newImporter(t, DefaultConfig())
	ctx := context.Background()

	out, err := im.Import(ctx, owner, strings.NewReader(netDeltaCSV))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(out.Imported) != 2 {
		t.Fatalf("imported %d transactions, want 2", len(out.Imported))
	}
	txns, _ := led.ListTransactions(ctx, owner, "")
	if len(txns) != 2 {
		t.Errorf("stored %d transactions, want 2", len(txns))
	}

	_, err = im.Import(ctx, owner, strings.NewReader(header+"2024-01-15,Bank,expense,Food,x,-5\n"))
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("all-invalid import error = %v, want validation", err)
	}
	txns, _ = led.ListTransactions(ctx, owner, "")
	if len(txns) != 2 {
		t.Errorf("failed import wrote transactions: %d", len(txns))
	}
}

func TestImporter_SizeLimit(t *testing.T) {
	im, _, _ := newImporter(t, Config{MaxBytes: 64})
	big := header + strings.Repeat("2024-01-15,Bank,expense,Food,Lunch,1\n", 10)

	_, err := im.Import(context.Background(), owner, strings.NewReader(big))
	if err == nil || !errors.Is(err, core.ErrValidation) || !strings.Contains(err.Error(), "larger than") {
		t.Errorf("oversized import error = %v", err)
	}
}
