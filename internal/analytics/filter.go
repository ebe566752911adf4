package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Filter narrows a transaction list. Zero fields do not filter.
type Filter struct {
	Search    string               // case-insensitive substring of the description
	Kind      core.TransactionKind // exact kind
	Category  string               // exact category
	From, To  time.Time            // inclusive calendar dates
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

func (f Filter) Match(t core.Transaction) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(core.DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(core.DateOf(f.To)) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f Filter) Apply(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
