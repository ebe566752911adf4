package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDraftValidate(t *testing.T) {
	good := Draft{
		AccountID:   "acc",
		Kind:        Expense,
		Amount:      decimal.NewFromInt(500),
		Category:    "Food & Dining",
		Description: "Lunch",
		Date:        NewDate(2024, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Draft{
		{Kind: Expense, Amount: decimal.NewFromInt(1), Category: "c", Date: NewDate(2024, 1, 1)},                    // no account
		{AccountID: "a", Kind: "transfer", Amount: decimal.NewFromInt(1), Category: "c", Date: NewDate(2024, 1, 1)}, // bad kind
		{AccountID: "a", Kind: Income, Amount: decimal.Zero, Category: "c", Date: NewDate(2024, 1, 1)},              // zero amount
		{AccountID: "a", Kind: Income, Amount: decimal.NewFromInt(-3), Category: "c", Date: NewDate(2024, 1, 1)},    // negative amount
		{AccountID: "a", Kind: Income, Amount: decimal.NewFromInt(1), Category: " ", Date: NewDate(2024, 1, 1)},     // no category
		{AccountID: "a", Kind: Income, Amount: decimal.NewFromInt(1), Category: "c", Date: time.Time{}},             // zero date
	}
	for i, d := range bads {
		err := d.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{Category: "Food", Month: "2024-03", Limit: decimal.NewFromInt(100)}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for i, b := range []Budget{
		{Category: "", Month: "2024-03", Limit: decimal.NewFromInt(100)},
		{Category: "Food", Month: "2024-3", Limit: decimal.NewFromInt(100)},
		{Category: "Food", Month: "2024-13", Limit: decimal.NewFromInt(100)},
		{Category: "Food", Month: "2024-03", Limit: decimal.Zero},
	} {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseTransactionKind(t *testing.T) {
	cases := map[string]TransactionKind{
		"income":       Income,
		" Income ":     Income,
		"SUBSCRIPTION": Subscription,
		"expense":      Expense,
		"":             Expense,
		"transfer":     Expense,
	}
	for in, want := range cases {
		if got := ParseTransactionKind(in); got != want {
			t.Fatalf("ParseTransactionKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if !errors.Is(NotFound("account", "x"), ErrNotFound) {
		t.Fatal("NotFoundError should match ErrNotFound")
	}
	cause := errors.New("disk full")
	err := Storage("batch", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("StorageError should match ErrStorage and unwrap its cause: %v", err)
	}
	if errors.Is(ErrInvalidAmount, ErrNotFound) {
		t.Fatal("validation error must not match ErrNotFound")
	}
}
