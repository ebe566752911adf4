package http

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

// ParseFilter builds a transaction filter from query parameters:
// q, kind, category, from, to, min and max. Blank parameters do not filter.
func ParseFilter(query url.Values) (analytics.Filter, error) {
	f := analytics.Filter{
		Search:   sanitizeInput(query.Get("q")),
		Category: sanitizeInput(query.Get("category")),
	}

	if v := strings.TrimSpace(query.Get("kind")); v != "" {
		k := core.TransactionKind(strings.ToLower(v))
		if !k.Valid() {
			return analytics.Filter{}, core.ErrInvalidKind
		}
		f.Kind = k
	}

	var err error
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		if f.From, err = core.ParseDate(v); err != nil {
			return analytics.Filter{}, err
		}
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		if f.To, err = core.ParseDate(v); err != nil {
			return analytics.Filter{}, err
		}
	}
	if f.MinAmount, err = optionalAmount(query, "min"); err != nil {
		return analytics.Filter{}, err
	}
	if f.MaxAmount, err = optionalAmount(query, "max"); err != nil {
		return analytics.Filter{}, err
	}

	return f, nil
}

func optionalAmount(query url.Values, name string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return nil, nil
	}
	d, err := parseBalance(name, v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseMonth returns the month query parameter, or "" for the current month.
func ParseMonth(query url.Values) (string, error) {
	m := strings.TrimSpace(query.Get("month"))
	if m != "" && !core.ValidMonth(m) {
		return "", core.ErrInvalidMonth
	}
	return m, nil
}
