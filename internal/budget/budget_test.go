package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/store/memory"
)

var owner = core.Session{Owner: "owner-1"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(kind core.TransactionKind, category, amount string, y, m, d int, desc string) core.Transaction {
	return core.Transaction{
		Kind:        kind,
		Category:    category,
		Amount:      dec(amount),
		Date:        core.NewDate(y, m, d),
		Description: desc,
	}
}

func TestComputeSpent(t *testing.T) {
	b := core.Budget{Category: "Food & Dining", Month: "2024-03", Limit: dec("300")}
	txns := []core.Transaction{
		tx(core.Expense, "Food & Dining", "40.25", 2024, 3, 1, "groceries"),
		tx(core.Expense, "Food & Dining", "9.75", 2024, 3, 31, "lunch"),
		tx(core.Expense, "Food & Dining", "100", 2024, 2, 29, "groceries"),
		tx(core.Expense, "Food & Dining", "100", 2024, 4, 1, "groceries"),
		tx(core.Expense, "Food", "100", 2024, 3, 10, "Food & Dining"),
		tx(core.Expense, "food & dining", "100", 2024, 3, 10, ""),
		tx(core.Subscription, "Food & Dining", "100", 2024, 3, 10, "meal kit"),
		tx(core.Income, "Food & Dining", "100", 2024, 3, 10, "refund"),
		tx(core.Expense, "Food & Dining", "100", 2023, 3, 10, "last year"),
	}

	if got := ComputeSpent(b, txns); !got.Equal(dec("50")) {
		t.Errorf("ComputeSpent = %s, want 50", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		spent, limit string
		want         Status
	}{
		{"0", "100", Normal},
		{"79.99", "100", Normal},
		{"80", "100", Warning},
		{"100", "100", Warning},
		{"100.01", "100", Exceeded},
		{"400", "500", Warning},
		{"1", "3", Normal},
		{"10", "0", Normal},
	}
	for _, tt := range tests {
		t.Run(tt.spent+"/"+tt.limit, func(t *testing.T) {
			if got := Classify(dec(tt.spent), dec(tt.limit)); got != tt.want {
				t.Errorf("Classify(%s, %s) = %s, want %s", tt.spent, tt.limit, got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	b := core.Budget{Category: "Travel", Month: "2024-05", Limit: dec("200")}
	line := Evaluate(b, []core.Transaction{tx(core.Expense, "Travel", "250", 2024, 5, 3, "")})
	if !line.Spent.Equal(dec("250")) || !line.Remaining.Equal(dec("-50")) || !line.Percentage.Equal(dec("125")) || line.Status != Exceeded {
		t.Errorf("Evaluate = %+v", line)
	}
}

func TestBudgetCRUDAndReport(t *testing.T) {
	db := memory.New()
	led := ledger.New(db)
	s := New(db, led, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, err := s.CreateBudget(ctx, owner, "Food", "2024-3", dec("10")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad month err = %v", err)
	}
	if _, err := s.CreateBudget(ctx, owner, "Food", "2024-03", dec("0")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero limit err = %v", err)
	}

	food, err := s.CreateBudget(ctx, owner, "Food & Dining", "2024-03", dec("100"))
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := s.CreateBudget(ctx, owner, "Travel", "2024-04", dec("100")); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	acc, _ := led.CreateAccount(ctx, owner, "Bank", core.Bank, dec("1000"))
	led.CreateTransaction(ctx, owner, core.Draft{AccountID: acc.ID, Kind: core.Expense, Amount: dec("85"), Category: "Food & Dining", Date: core.NewDate(2024, 3, 2)})

	lines, err := s.Report(ctx, owner, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != food.ID || lines[0].Status != Warning || !lines[0].Spent.Equal(dec("85")) {
		t.Fatalf("report = %+v", lines)
	}

	limit := dec("50")
	updated, err := s.UpdateBudget(ctx, owner, food.ID, Patch{Limit: &limit})
	if err != nil || !updated.Limit.Equal(limit) {
		t.Fatalf("update: %+v %v", updated, err)
	}
	lines, _ = s.Report(ctx, owner, "2024-03")
	if lines[0].Status != Exceeded || !lines[0].Remaining.Equal(dec("-35")) {
		t.Errorf("report after update = %+v", lines[0])
	}

	bad := "March"
	if _, err := s.UpdateBudget(ctx, owner, food.ID, Patch{Month: &bad}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad patch err = %v", err)
	}

	if err := s.DeleteBudget(ctx, owner, food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBudget(ctx, owner, food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted budget err = %v", err)
	}
	all, _ := s.ListBudgets(ctx, owner, "")
	if len(all) != 1 || all[0].Category != "Travel" {
		t.Errorf("remaining budgets = %+v", all)
	}
}
