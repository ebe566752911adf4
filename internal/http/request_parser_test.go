package http

import (
	"errors"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		check   func(t *testing.T, got filterView)
		wantErr bool
	}{
		{
			name:  "empty query filters nothing",
			query: url.Values{},
			check: func(t *testing.T, got filterView) {
				if got != (filterView{}) {
					t.Errorf("got %+v, want zero filter", got)
				}
			},
		},
		{
			name:  "all parameters",
			query: url.Values{"q": {" pizza "}, "kind": {"Expense"}, "category": {"Food"}, "from": {"2024-01-01"}, "to": {"31/01/2024"}, "min": {"5"}, "max": {"12,5"}},
			check: func(t *testing.T, got filterView) {
				want := filterView{Search: "pizza", Kind: core.Expense, Category: "Food", From: "2024-01-01", To: "2024-01-31", Min: "5", Max: "12.5"}
				if got != want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			},
		},
		{name: "unknown kind", query: url.Values{"kind": {"loan"}}, wantErr: true},
		{name: "bad from date", query: url.Values{"from": {"yesterday"}}, wantErr: true},
		{name: "bad amount", query: url.Values{"min": {"ten"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.query)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Errorf("ParseFilter() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			view := filterView{Search: f.Search, Kind: f.Kind, Category: f.Category, Min: str(f.MinAmount), Max: str(f.MaxAmount)}
			if !f.From.IsZero() {
				view.From = f.From.Format(core.DateLayout)
			}
			if !f.To.IsZero() {
				view.To = f.To.Format(core.DateLayout)
			}
			tt.check(t, view)
		})
	}
}

// filterView is a comparable rendering of analytics.Filter.
type filterView struct {
	Search, Category string
	Kind             core.TransactionKind
	From, To         string
	Min, Max         string
}

func str(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"2024-03", "2024-03", false},
		{" 2024-12 ", "2024-12", false},
		{"2024-13", "", true},
		{"March", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMonth(url.Values{"month": {tt.value}})
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMonth(%q) = %q, %v", tt.value, got, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Lunch\x00 with\ttab \x07"); got != "Lunch with\ttab" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
