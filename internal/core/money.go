// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from untrusted
// strings and computing signed balance deltas.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxExponent bounds the exponent of amounts written like 1.5e3.
const maxExponent = 15

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// exponent (1.5e3), and performs half-up rounding on the third decimal place.
// Signs on the number, thousands separators, exponents beyond 15 and values
// that round to zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("1.5e3")  -> 1500, nil
//	ParseAmount("-10")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	mantissa, exponent, hasExp := strings.Cut(s, "e")
	num, ok := plainNumber(mantissa)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if hasExp {
		exp, err := strconv.Atoi(exponent)
		if err != nil || !isDigits(strings.TrimLeft(exponent, "+-")) || exp > maxExponent || exp < -maxExponent {
			return decimal.Zero, ErrInvalidAmount
		}
		d = d.Shift(int32(exp))
	}

	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// plainNumber checks for unsigned digits with at most one decimal point and
// returns the text in a form decimal.NewFromString reads.
func plainNumber(s string) (string, bool) {
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return "", false
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return "", false
	}
	if intPart == "" {
		intPart = "0"
	}
	if fracPart == "" {
		return intPart, true
	}
	return intPart + "." + fracPart, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Delta is the signed balance change of a transaction: income credits the
// account, expenses and subscriptions debit it.
func Delta(kind TransactionKind, amount decimal.Decimal) decimal.Decimal {
	if kind == Income {
		return amount
	}
	return amount.Neg()
}

// NetDeltas sums the signed amounts of the drafts per account so each account
// balance is written once.
func NetDeltas(drafts []Draft) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, d := range drafts {
		out[d.AccountID] = out[d.AccountID].Add(Delta(d.Kind, d.Amount))
	}
	return out
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
