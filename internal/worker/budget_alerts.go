// Package worker reacts to ledger events published on the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// BudgetReporter is the part of the budget engine the worker reads.
type BudgetReporter interface {
	Report(ctx context.Context, sess core.Session, month string) ([]budget.Line, error)
}

// Alert reports a budget that moved into warning or exceeded.
type Alert struct {
	Owner      string          `json:"owner"`
	BudgetID   string          `json:"budgetId"`
	Category   string          `json:"category"`
	Month      string          `json:"month"`
	Status     budget.Status   `json:"status"`
	Spent      decimal.Decimal `json:"spent"`
	Limit      decimal.Decimal `json:"limit"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, a Alert) error {
	n.Logger.WarnContext(ctx, "Budget threshold crossed",
		log.FieldOwner, a.Owner,
		log.FieldBudgetID, a.BudgetID,
		log.FieldCategory, a.Category,
		log.FieldMonth, a.Month,
		"status", a.Status,
		"spent", core.FormatAmount(a.Spent),
		"limit", core.FormatAmount(a.Limit),
		"percentage", a.Percentage.StringFixed(1))
	return nil
}

// BudgetAlertWorker re-evaluates the budgets of every month a transaction
// event touches and notifies once per budget each time its status escalates.
type BudgetAlertWorker struct {
	budgets  BudgetReporter
	notifier Notifier
	logger   *log.Logger
	// last notified status per budget id
	notified *cache.LRUCache[budget.Status]
}

func NewBudgetAlertWorker(budgets BudgetReporter, notifier Notifier, logger *log.Logger) *BudgetAlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &BudgetAlertWorker{
		budgets:  budgets,
		notifier: notifier,
		logger:   logger,
		notified: cache.NewLRUCache[budget.Status](4096, 45*24*time.Hour),
	}
}

// Notified exposes the notification memory so it can be swept periodically.
func (w *BudgetAlertWorker) Notified() cache.Cleaner { return w.notified }

// HandleEvent processes one ledger event. A returned error requeues it.
func (w *BudgetAlertWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	switch ev.Type {
	case amqp.TransactionCreated, amqp.TransactionDeleted, amqp.ImportCommitted:
	case amqp.TransactionUpdated, amqp.AccountDeleted:
		// neither carries the categories that changed, so every budget of each month is checked
		ev = withoutCategory(ev)
	default:
		return nil
	}

	w.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEvent, ev.Type,
		log.FieldOwner, ev.Owner,
		log.FieldCount, len(ev.Months))

	for _, month := range ev.Months {
		if err := w.checkMonth(ctx, ev.Owner, month, ev.Category); err != nil {
			if errors.Is(err, core.ErrValidation) {
				w.logger.WarnContext(ctx, "Dropping event with invalid month",
					log.FieldEvent, ev.Type,
					log.FieldMonth, month,
					log.FieldError, err)
				continue
			}
			return fmt.Errorf("check budgets for %s: %w", month, err)
		}
	}
	return nil
}

// CheckMonth evaluates every budget of an owner's month.
func (w *BudgetAlertWorker) CheckMonth(ctx context.Context, owner, month string) error {
	return w.checkMonth(ctx, owner, month, "")
}

func (w *BudgetAlertWorker) checkMonth(ctx context.Context, owner, month, category string) error {
	lines, err := w.budgets.Report(ctx, core.Session{Owner: owner}, month)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if category != "" && line.Category != category {
			continue
		}
		if line.Status == budget.Normal {
			w.notified.Delete(line.ID)
			continue
		}
		if prev, ok := w.notified.Get(line.ID); ok && !escalates(prev, line.Status) {
			continue
		}

		alert := Alert{
			Owner:      owner,
			BudgetID:   line.ID,
			Category:   line.Category,
			Month:      line.Month,
			Status:     line.Status,
			Spent:      line.Spent,
			Limit:      line.Limit,
			Percentage: line.Percentage,
		}
		if err := w.notifier.Notify(ctx, alert); err != nil {
			return fmt.Errorf("notify budget %s: %w", line.ID, err)
		}
		w.notified.Set(line.ID, line.Status)
	}
	return nil
}

func escalates(from, to budget.Status) bool {
	return from == budget.Warning && to == budget.Exceeded
}

func withoutCategory(ev *amqp.Event) *amqp.Event {
	cp := *ev
	cp.Category = ""
	return &cp
}
