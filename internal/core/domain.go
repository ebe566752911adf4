package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Bank       AccountKind = "bank"
	CreditCard AccountKind = "credit_card"

	Income       TransactionKind = "income"
	Expense      TransactionKind = "expense"
	Subscription TransactionKind = "subscription"

	Lent     DebtKind = "lent"
	Borrowed DebtKind = "borrowed"

	Pending DebtStatus = "pending"
	Paid    DebtStatus = "paid"

	DebtCategory CategoryKind = "debt"
)

type (
	AccountKind     string
	TransactionKind string
	DebtKind        string
	DebtStatus      string
	CategoryKind    string

	// Session identifies the owner every operation is scoped to. It is passed
	// explicitly to each engine call.
	Session struct {
		Owner string
	}

	Account struct {
		ID        string          `json:"id"`
		Owner     string          `json:"owner"`
		Name      string          `json:"name"`
		Kind      AccountKind     `json:"kind"`
		Balance   decimal.Decimal `json:"balance"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Owner       string          `json:"owner"`
		AccountID   string          `json:"accountId"`
		Kind        TransactionKind `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Draft is a transaction candidate that has not been persisted yet.
	Draft struct {
		AccountID   string          `json:"accountId"`
		Kind        TransactionKind `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
	}

	Budget struct {
		ID       string          `json:"id"`
		Owner    string          `json:"owner"`
		Category string          `json:"category"`
		Month    string          `json:"month"` // YYYY-MM
		Limit    decimal.Decimal `json:"limit"`
	}

	PersonDebt struct {
		ID         string    `json:"id"`
		Owner      string    `json:"owner"`
		PersonName string    `json:"personName"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	Debt struct {
		ID           string          `json:"id"`
		Owner        string          `json:"owner"`
		PersonDebtID string          `json:"personDebtId"`
		Kind         DebtKind        `json:"kind"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		Status       DebtStatus      `json:"status"`
		CreatedAt    time.Time       `json:"createdAt"`
	}

	Category struct {
		ID    string       `json:"id"`
		Owner string       `json:"owner"`
		Name  string       `json:"name"`
		Kind  CategoryKind `json:"kind"`
		Color string       `json:"color,omitempty"`
	}
)

func (k AccountKind) Valid() bool { return k == Bank || k == CreditCard }

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense || k == Subscription
}

func (k DebtKind) Valid() bool { return k == Lent || k == Borrowed }

func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryKind(Income), CategoryKind(Expense), CategoryKind(Subscription), DebtCategory:
		return true
	}
	return false
}

// ParseTransactionKind maps free text onto a kind. Anything unrecognised is an
// expense.
func ParseTransactionKind(s string) TransactionKind {
	k := TransactionKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k
	}
	return Expense
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return ErrEmptyOwner
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return Invalid("name", "too long (max 100 characters)")
	}
	if !a.Kind.Valid() {
		return ErrInvalidAccountKind
	}
	return nil
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.AccountID) == "" {
		return Invalid("accountId", "required")
	}
	if !d.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := ValidateAmount(d.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	if len(d.Description) > 200 {
		return Invalid("description", "too long (max 200 characters)")
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Draft returns the mutable part of the transaction.
func (t Transaction) Draft() Draft {
	return Draft{
		AccountID:   t.AccountID,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
	}
}

// Delta is the signed balance change this transaction causes on its account.
func (t Transaction) Delta() decimal.Decimal { return Delta(t.Kind, t.Amount) }

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !ValidMonth(b.Month) {
		return ErrInvalidMonth
	}
	if !b.Limit.IsPositive() {
		return Invalid("limit", "must be greater than zero")
	}
	return nil
}

func (p PersonDebt) Validate() error {
	if strings.TrimSpace(p.PersonName) == "" {
		return ErrEmptyName
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.PersonDebtID) == "" {
		return Invalid("personDebtId", "required")
	}
	if !d.Kind.Valid() {
		return Invalid("kind", "must be lent or borrowed")
	}
	return ValidateAmount(d.Amount)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return Invalid("kind", "unknown category kind")
	}
	return nil
}
