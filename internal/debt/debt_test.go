package debt

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

var owner = core.Session{Owner: "owner-1"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMarkPaidIsIdempotent(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()
	p, err := s.CreatePerson(ctx, owner, "Alice")
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	d, err := s.CreateDebt(ctx, owner, p.ID, core.Lent, dec("25.50"), "dinner")
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	if d.Status != core.Pending {
		t.Fatalf("new debt status = %s", d.Status)
	}

	for i := 0; i < 2; i++ {
		paid, err := s.MarkPaid(ctx, owner, d.ID)
		if err != nil {
			t.Fatalf("mark paid #%d: %v", i+1, err)
		}
		if paid.Status != core.Paid || !paid.Amount.Equal(dec("25.50")) || paid.Description != "dinner" {
			t.Fatalf("mark paid #%d returned %+v", i+1, paid)
		}
	}

	debts, _ := s.ListDebts(ctx, owner, p.ID)
	if len(debts) != 1 || debts[0].Status != core.Paid || !debts[0].Amount.Equal(dec("25.5")) || debts[0].Description != "dinner" {
		t.Fatalf("stored debt = %+v", debts)
	}
}

func TestCreateDebtValidation(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()
	p, _ := s.CreatePerson(ctx, owner, "Bob")
	stranger, _ := s.CreatePerson(ctx, core.Session{Owner: "owner-2"}, "Eve")

	tests := []struct {
		name     string
		personID string
		kind     core.DebtKind
		amount   string
		want     error
	}{
		{"zero amount", p.ID, core.Lent, "0", core.ErrValidation},
		{"bad kind", p.ID, core.DebtKind("gifted"), "5", core.ErrValidation},
		{"no person", "", core.Lent, "5", core.ErrValidation},
		{"unknown person", "ghost", core.Borrowed, "5", core.ErrNotFound},
		{"foreign person", stranger.ID, core.Borrowed, "5", core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateDebt(ctx, owner, tt.personID, tt.kind, dec(tt.amount), "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.CreatePerson(ctx, owner, "   "); !errors.Is(err, core.ErrValidation) {
		t.Errorf("blank person err = %v", err)
	}
}

func TestRemovePersonCascades(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()
	alice, _ := s.CreatePerson(ctx, owner, "Alice")
	bob, _ := s.CreatePerson(ctx, owner, "Bob")
	s.CreateDebt(ctx, owner, alice.ID, core.Lent, dec("10"), "")
	s.CreateDebt(ctx, owner, alice.ID, core.Borrowed, dec("3"), "")
	kept, _ := s.CreateDebt(ctx, owner, bob.ID, core.Lent, dec("7"), "")

	if err := s.RemovePerson(ctx, owner, alice.ID); err != nil {
		t.Fatalf("remove person: %v", err)
	}
	debts, _ := s.ListDebts(ctx, owner, "")
	if len(debts) != 1 || debts[0].ID != kept.ID {
		t.Fatalf("unexpected debts after cascade: %+v", debts)
	}
	people, _ := s.ListPeople(ctx, owner)
	if len(people) != 1 || people[0].ID != bob.ID {
		t.Fatalf("unexpected people: %+v", people)
	}
	if err := s.RemovePerson(ctx, owner, alice.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestRemoveDebtAnyStatus(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()
	p, _ := s.CreatePerson(ctx, owner, "Alice")
	d, _ := s.CreateDebt(ctx, owner, p.ID, core.Lent, dec("10"), "")
	s.MarkPaid(ctx, owner, d.ID)

	if err := s.RemoveDebt(ctx, owner, d.ID); err != nil {
		t.Fatalf("remove paid debt: %v", err)
	}
	if _, err := s.MarkPaid(ctx, owner, d.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("mark removed debt err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	people := []core.PersonDebt{{ID: "p1", PersonName: "Alice"}, {ID: "p2", PersonName: "Bob"}}
	debts := []core.Debt{
		{PersonDebtID: "p1", Kind: core.Lent, Amount: dec("100"), Status: core.Pending},
		{PersonDebtID: "p1", Kind: core.Lent, Amount: dec("50"), Status: core.Paid},
		{PersonDebtID: "p1", Kind: core.Borrowed, Amount: dec("30"), Status: core.Pending},
		{PersonDebtID: "p2", Kind: core.Borrowed, Amount: dec("12.5"), Status: core.Pending},
		{PersonDebtID: "gone", Kind: core.Lent, Amount: dec("999"), Status: core.Pending},
	}

	got := Summarize(people, debts)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	alice := got[0]
	if !alice.Lent.Equal(dec("100")) || !alice.Borrowed.Equal(dec("30")) || alice.PendingCount != 2 || alice.PaidCount != 1 {
		t.Errorf("alice = %+v", alice)
	}
	if !alice.Net().Equal(dec("70")) {
		t.Errorf("alice net = %s", alice.Net())
	}
	bob := got[1]
	if !bob.Lent.IsZero() || !bob.Borrowed.Equal(dec("12.5")) {
		t.Errorf("bob = %+v", bob)
	}

	totals := Total(got)
	if !totals.Lent.Equal(dec("100")) || !totals.Borrowed.Equal(dec("42.5")) || !totals.Net.Equal(dec("57.5")) {
		t.Errorf("totals = %+v", totals)
	}
}

func TestServiceSummaryIsDerived(t *testing.T) {
	s := New(memory.New(), nil, nil)
	ctx := context.Background()
	p, _ := s.CreatePerson(ctx, owner, "Alice")
	d, _ := s.CreateDebt(ctx, owner, p.ID, core.Lent, dec("40"), "")

	sums, totals, err := s.Summary(ctx, owner)
	if err != nil || len(sums) != 1 || !totals.Lent.Equal(dec("40")) {
		t.Fatalf("summary before payment: %+v %+v %v", sums, totals, err)
	}

	s.MarkPaid(ctx, owner, d.ID)
	sums, totals, _ = s.Summary(ctx, owner)
	if !totals.Lent.IsZero() || sums[0].PaidCount != 1 {
		t.Errorf("summary after payment: %+v %+v", sums, totals)
	}
}
