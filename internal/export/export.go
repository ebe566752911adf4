// Package export writes an owner's data as a JSON backup or a transaction CSV.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

type Ledger interface {
	ListAccounts(ctx context.Context, sess core.Session) ([]core.Account, error)
	ListTransactions(ctx context.Context, sess core.Session, accountID string) ([]core.Transaction, error)
	Categories(ctx context.Context, sess core.Session) ([]core.Category, error)
}

type Budgets interface {
	ListBudgets(ctx context.Context, sess core.Session, month string) ([]core.Budget, error)
}

type Debts interface {
	ListPeople(ctx context.Context, sess core.Session) ([]core.PersonDebt, error)
	ListDebts(ctx context.Context, sess core.Session, personID string) ([]core.Debt, error)
}

// Backup is the full entity set of one owner.
type Backup struct {
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
	Categories   []core.Category    `json:"categories"`
	People       []core.PersonDebt  `json:"people"`
	Debts        []core.Debt        `json:"debts"`
	ExportDate   time.Time          `json:"exportDate"`
}

// CSVHeader is the first line of a transaction export.
var CSVHeader = []string{"Date", "Description", "Category", "Type", "Amount", "Account"}

const (
	csvDateLayout  = "02/01/2006"
	unknownAccount = "Unknown"
)

type Exporter struct {
	ledger  Ledger
	budgets Budgets
	debts   Debts
	logger  *log.Logger
	now     func() time.Time
}

func New(l Ledger, b Budgets, d Debts, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{
		ledger:  l,
		budgets: b,
		debts:   d,
		logger:  logger.WithComponent(log.ComponentExport),
		now:     time.Now,
	}
}

// Backup loads every collection of the owner concurrently.
func (e *Exporter) Backup(ctx context.Context, sess core.Session) (*Backup, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	b := &Backup{ExportDate: e.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Accounts, err = e.ledger.ListAccounts(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		b.Transactions, err = e.ledger.ListTransactions(gctx, sess, "")
		return err
	})
	g.Go(func() (err error) {
		b.Categories, err = e.ledger.Categories(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		b.Budgets, err = e.budgets.ListBudgets(gctx, sess, "")
		return err
	})
	g.Go(func() (err error) {
		b.People, err = e.debts.ListPeople(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		b.Debts, err = e.debts.ListDebts(gctx, sess, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Exporter) WriteJSON(ctx context.Context, sess core.Session, w io.Writer) error {
	b, err := e.Backup(ctx, sess)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	e.logger.InfoContext(ctx, "Backup exported",
		log.FieldOwner, sess.Owner,
		log.FieldCount, len(b.Transactions))
	return nil
}

func (e *Exporter) WriteCSV(ctx context.Context, sess core.Session, w io.Writer) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	var (
		accounts []core.Account
		txns     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = e.ledger.ListAccounts(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		txns, err = e.ledger.ListTransactions(gctx, sess, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return WriteTransactionsCSV(w, txns, accounts)
}

// WriteTransactionsCSV writes the header and one fully quoted line per
// transaction, in the order given. Amounts carry two decimals and dates are
// day/month/year.
func WriteTransactionsCSV(w io.Writer, txns []core.Transaction, accounts []core.Account) error {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(CSVHeader, ","))
	for _, t := range txns {
		account, ok := names[t.AccountID]
		if !ok {
			account = unknownAccount
		}
		cells := []string{
			t.Date.Format(csvDateLayout),
			t.Description,
			t.Category,
			string(t.Kind),
			core.FormatAmount(t.Amount),
			account,
		}
		sb.WriteByte('\n')
		for i, c := range cells {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quote(c))
		}
	}
	sb.WriteByte('\n')

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FileName names an export file after the day it was taken, for example
// fintrack-backup-2024-01-31.json.
func FileName(kind, ext string, now time.Time) string {
	return fmt.Sprintf("fintrack-%s-%s.%s", kind, now.UTC().Format(core.DateLayout), ext)
}

var _ Ledger = (*ledger.Service)(nil)
