// Package analytics derives summaries, category breakdowns and time series from
// a list of transactions. Nothing here touches storage.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type Summary struct {
	Income        decimal.Decimal `json:"income"`
	Expenses      decimal.Decimal `json:"expenses"`
	Subscriptions decimal.Decimal `json:"subscriptions"`
	Net           decimal.Decimal `json:"net"`
}

// Summarize totals each kind; net is income minus expenses and subscriptions.
func Summarize(txns []core.Transaction) Summary {
	var s Summary
	for _, t := range txns {
		switch t.Kind {
		case core.Income:
			s.Income = s.Income.Add(t.Amount)
		case core.Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		case core.Subscription:
			s.Subscriptions = s.Subscriptions.Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expenses).Sub(s.Subscriptions)
	return s
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Breakdown sums expenses and subscriptions per category, largest first. Equal
// totals are ordered by category name.
func Breakdown(txns []core.Transaction) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Kind == core.Expense || t.Kind == core.Subscription {
			sums[t.Category] = sums[t.Category].Add(t.Amount)
		}
	}
	out := make([]CategoryTotal, 0, len(sums))
	for c, v := range sums {
		out = append(out, CategoryTotal{Category: c, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Range selects the window of a series.
type Range string

const (
	Monthly Range = "monthly" // last 30 days, one bucket per day
	Yearly  Range = "yearly"  // last 365 days, one bucket per month
	All     Range = "all"     // from the earliest transaction, one bucket per day
)

func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Monthly, nil
	case Monthly, Yearly, All:
		return r, nil
	default:
		return "", core.Invalid("range", fmt.Sprintf("unknown range %q", s))
	}
}

type Bucket struct {
	Label        string          `json:"label"`
	Start        time.Time       `json:"start"` // earliest transaction date in the bucket
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Subscription decimal.Decimal `json:"subscription"`
}

// Series buckets transactions dated on or after the start of r by calendar
// label and returns the buckets in chronological order. Monthly covers the
// 30 days ending today and yearly the 365 days ending today, both counting
// today.
func Series(txns []core.Transaction, r Range, now time.Time) []Bucket {
	today := core.DateOf(now)
	var start time.Time
	layout := core.DateLayout
	switch r {
	case Yearly:
		start = today.AddDate(0, 0, -364)
		layout = core.MonthLayout
	case All:
		for i, t := range txns {
			if i == 0 || t.Date.Before(start) {
				start = t.Date
			}
		}
	default:
		start = today.AddDate(0, 0, -29)
	}

	buckets := make(map[string]*Bucket)
	for _, t := range txns {
		if t.Date.Before(start) {
			continue
		}
		label := t.Date.Format(layout)
		b, ok := buckets[label]
		if !ok {
			b = &Bucket{Label: label, Start: t.Date}
			buckets[label] = b
		}
		if t.Date.Before(b.Start) {
			b.Start = t.Date
		}
		switch t.Kind {
		case core.Income:
			b.Income = b.Income.Add(t.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(t.Amount)
		case core.Subscription:
			b.Subscription = b.Subscription.Add(t.Amount)
		}
	}

	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Label < out[j].Label
	})
	return out
}
