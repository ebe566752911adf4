package debt

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// PersonSummary is derived from a person's debts on every read.
type PersonSummary struct {
	PersonID     string          `json:"personId"`
	PersonName   string          `json:"personName"`
	Lent         decimal.Decimal `json:"lent"`
	Borrowed     decimal.Decimal `json:"borrowed"`
	PendingCount int             `json:"pendingCount"`
	PaidCount    int             `json:"paidCount"`
}

// Net is positive when the person owes the owner.
func (p PersonSummary) Net() decimal.Decimal {
	return p.Lent.Sub(p.Borrowed)
}

type Totals struct {
	Lent     decimal.Decimal `json:"lent"`
	Borrowed decimal.Decimal `json:"borrowed"`
	Net      decimal.Decimal `json:"net"`
}

// Summarize aggregates debts per person, in the order of people. Only pending
// debts count towards Lent and Borrowed.
func Summarize(people []core.PersonDebt, debts []core.Debt) []PersonSummary {
	index := make(map[string]int, len(people))
	out := make([]PersonSummary, len(people))
	for i, p := range people {
		index[p.ID] = i
		out[i] = PersonSummary{PersonID: p.ID, PersonName: p.PersonName}
	}

	for _, d := range debts {
		i, ok := index[d.PersonDebtID]
		if !ok {
			continue
		}
		if d.Status == core.Paid {
			out[i].PaidCount++
			continue
		}
		out[i].PendingCount++
		switch d.Kind {
		case core.Lent:
			out[i].Lent = out[i].Lent.Add(d.Amount)
		case core.Borrowed:
			out[i].Borrowed = out[i].Borrowed.Add(d.Amount)
		}
	}
	return out
}

// Total sums per-person summaries.
func Total(summaries []PersonSummary) Totals {
	var t Totals
	for _, s := range summaries {
		t.Lent = t.Lent.Add(s.Lent)
		t.Borrowed = t.Borrowed.Add(s.Borrowed)
	}
	t.Net = t.Lent.Sub(t.Borrowed)
	return t
}

// Summary derives the per-person aggregates and their totals from the stored
// people and debts.
func (s *Service) Summary(ctx context.Context, sess core.Session) ([]PersonSummary, Totals, error) {
	people, err := s.ListPeople(ctx, sess)
	if err != nil {
		return nil, Totals{}, err
	}
	debts, err := s.ListDebts(ctx, sess, "")
	if err != nil {
		return nil, Totals{}, err
	}
	summaries := Summarize(people, debts)
	return summaries, Total(summaries), nil
}
