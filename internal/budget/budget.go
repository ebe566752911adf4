// Package budget manages monthly spending limits per category. Spent amounts
// are always recomputed from transactions and never stored.
package budget

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Status of a budget for its month.
type Status string

const (
	Normal   Status = "normal"
	Warning  Status = "warning"
	Exceeded Status = "exceeded"
)

var (
	hundred       = decimal.NewFromInt(100)
	warnThreshold = decimal.NewFromInt(80)
)

// Patch lists the fields UpdateBudget may change.
type Patch struct {
	Category *string          `json:"category,omitempty"`
	Month    *string          `json:"month,omitempty"`
	Limit    *decimal.Decimal `json:"limit,omitempty"`
}

// Line is one budget with its derived figures.
type Line struct {
	core.Budget
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Status     Status          `json:"status"`
}

// Transactions is the read side of the ledger the report needs.
type Transactions interface {
	ListTransactions(ctx context.Context, sess core.Session, accountID string) ([]core.Transaction, error)
}

type Service struct {
	db     store.Store
	txns   Transactions
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func New(db store.Store, txns Transactions, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		db:     db,
		txns:   txns,
		logger: logger.WithComponent(log.ComponentBudget),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) CreateBudget(ctx context.Context, sess core.Session, category, month string, limit decimal.Decimal) (core.Budget, error) {
	if err := sess.Validate(); err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		ID:       s.newID(),
		Owner:    sess.Owner,
		Category: strings.TrimSpace(category),
		Month:    strings.TrimSpace(month),
		Limit:    limit.Round(2),
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	fields, err := store.Encode(b)
	if err != nil {
		return core.Budget{}, core.Storage("encode budget", err)
	}
	if err := s.db.Put(ctx, store.Budgets, b.ID, fields); err != nil {
		return core.Budget{}, core.Storage("create budget", err)
	}

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldOwner, sess.Owner,
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldMonth, b.Month)
	return b, nil
}

// ListBudgets returns the owner's budgets. A non-empty month narrows the list.
func (s *Service) ListBudgets(ctx context.Context, sess core.Session, month string) ([]core.Budget, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var filters []store.Filter
	if month != "" {
		if !core.ValidMonth(month) {
			return nil, core.ErrInvalidMonth
		}
		filters = append(filters, store.Filter{Field: "month", Value: month})
	}
	budgets, err := store.List[core.Budget](ctx, s.db, store.Budgets, sess.Owner, filters...)
	if err != nil {
		return nil, core.Storage("list budgets", err)
	}
	sort.SliceStable(budgets, func(i, j int) bool {
		if budgets[i].Month != budgets[j].Month {
			return budgets[i].Month > budgets[j].Month
		}
		return budgets[i].Category < budgets[j].Category
	})
	return budgets, nil
}

func (s *Service) GetBudget(ctx context.Context, sess core.Session, id string) (core.Budget, error) {
	if err := sess.Validate(); err != nil {
		return core.Budget{}, err
	}
	var b core.Budget
	if err := store.GetOwned(ctx, s.db, store.Budgets, id, sess.Owner, &b); err != nil {
		return core.Budget{}, core.Lookup("get budget", "budget", id, err)
	}
	return b, nil
}

func (s *Service) UpdateBudget(ctx context.Context, sess core.Session, id string, patch Patch) (core.Budget, error) {
	b, err := s.GetBudget(ctx, sess, id)
	if err != nil {
		return core.Budget{}, err
	}
	if patch.Category != nil {
		b.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Month != nil {
		b.Month = strings.TrimSpace(*patch.Month)
	}
	if patch.Limit != nil {
		b.Limit = patch.Limit.Round(2)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	update := store.Fields{
		"category": b.Category,
		"month":    b.Month,
		"limit":    b.Limit.String(),
	}
	if err := s.db.Update(ctx, store.Budgets, id, update); err != nil {
		return core.Budget{}, core.Lookup("update budget", "budget", id, err)
	}
	return b, nil
}

func (s *Service) DeleteBudget(ctx context.Context, sess core.Session, id string) error {
	if _, err := s.GetBudget(ctx, sess, id); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, store.Budgets, id); err != nil {
		return core.Storage("delete budget", err)
	}
	return nil
}

// Report evaluates every budget of month against the owner's transactions. An
// empty month means the current one.
func (s *Service) Report(ctx context.Context, sess core.Session, month string) ([]Line, error) {
	if month == "" {
		month = core.MonthOf(s.now())
	}
	budgets, err := s.ListBudgets(ctx, sess, month)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return []Line{}, nil
	}
	txns, err := s.txns.ListTransactions(ctx, sess, "")
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(budgets))
	for _, b := range budgets {
		lines = append(lines, Evaluate(b, txns))
	}
	return lines, nil
}

// Evaluate derives spent, remaining, percentage and status for one budget.
func Evaluate(b core.Budget, txns []core.Transaction) Line {
	spent := ComputeSpent(b, txns)
	pct := Percentage(spent, b.Limit)
	return Line{
		Budget:     b,
		Spent:      spent,
		Remaining:  b.Limit.Sub(spent),
		Percentage: pct.Round(2),
		Status:     Classify(spent, b.Limit),
	}
}

// ComputeSpent sums expense transactions of the budget's exact category dated
// within the budget's month.
func ComputeSpent(b core.Budget, txns []core.Transaction) decimal.Decimal {
	spent := decimal.Zero
	for _, t := range txns {
		if t.Kind != core.Expense || t.Category != b.Category {
			continue
		}
		if !strings.HasPrefix(t.Date.Format(core.DateLayout), b.Month) {
			continue
		}
		spent = spent.Add(t.Amount)
	}
	return spent
}

// Percentage is spent/limit*100. A non-positive limit reads as 0%.
func Percentage(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(limit)
}

// Classify checks exceeded first, then warning, then normal.
func Classify(spent, limit decimal.Decimal) Status {
	pct := Percentage(spent, limit)
	switch {
	case pct.GreaterThan(hundred):
		return Exceeded
	case pct.GreaterThanOrEqual(warnThreshold):
		return Warning
	default:
		return Normal
	}
}
