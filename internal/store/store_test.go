package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplyIncrementOnNumberField(t *testing.T) {
	next, err := Apply(IncrementOp(Accounts, "a", "balance", decimal.NewFromInt(-5)), []byte(`{"owner":"u","balance":12.5}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	doc, _ := Unmarshal(next)
	if doc["balance"] != "7.5" {
		t.Fatalf("balance = %v, want \"7.5\"", doc["balance"])
	}
}

func TestApplyRejectsNonDecimalField(t *testing.T) {
	_, err := Apply(IncrementOp(Accounts, "a", "name", decimal.NewFromInt(1)), []byte(`{"name":true}`))
	if err == nil {
		t.Fatal("expected error incrementing a boolean field")
	}
}

func TestApplyUpdateMissing(t *testing.T) {
	_, err := Apply(UpdateOp(Accounts, "a", Fields{"name": "x"}), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatch(t *testing.T) {
	doc := Fields{"owner": "u1", "accountId": "a", "n": float64(3)}
	cases := []struct {
		owner   string
		filters []Filter
		want    bool
	}{
		{"u1", nil, true},
		{"u2", nil, false},
		{"u1", []Filter{{Field: "accountId", Value: "a"}}, true},
		{"u1", []Filter{{Field: "accountId", Value: "b"}}, false},
		{"u1", []Filter{{Field: "missing", Value: ""}}, false},
		{"u1", []Filter{{Field: "n", Value: 3}}, true},
	}
	for i, tc := range cases {
		if got := Match(doc, tc.owner, tc.filters); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

type sample struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

func TestEncodeDecode(t *testing.T) {
	f, err := Encode(sample{ID: "x", Balance: decimal.RequireFromString("1.10")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if f["balance"] != "1.1" {
		t.Fatalf("decimal should be stored as a string, got %#v", f["balance"])
	}
	var out sample
	if err := Decode(f, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "x" || !out.Balance.Equal(decimal.RequireFromString("1.1")) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
