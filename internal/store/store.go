// Package store defines the document store the engines persist through.
//
// A document is a flat JSON object keyed by (collection, id) and carrying an
// "owner" field. Backends differ only in where the bytes live; the semantics of
// every operation are implemented once in Apply.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Collection names.
const (
	Accounts     = "accounts"
	Transactions = "transactions"
	Budgets      = "budgets"
	Categories   = "categories"
	People       = "personDebts"
	Debts        = "debts"
)

// Collections lists every collection a backend must provide.
var Collections = []string{Accounts, Transactions, Budgets, Categories, People, Debts}

// OwnerField is the document field QueryByOwner matches on.
const OwnerField = "owner"

var (
	// ErrNotFound is returned when a document does not exist. It matches
	// core.ErrNotFound.
	ErrNotFound = fmt.Errorf("document %w", core.ErrNotFound)

	// ErrUnknownCollection is returned for collections outside Collections.
	ErrUnknownCollection = errors.New("unknown collection")
)

type (
	// Fields is the decoded body of a document.
	Fields map[string]any

	// Filter is an equality constraint on a top-level field.
	Filter struct {
		Field string
		Value any
	}

	OpKind string

	// Op is one write of an atomic batch.
	Op struct {
		Kind       OpKind
		Collection string
		ID         string
		Fields     Fields          // put, update
		Field      string          // increment
		Delta      decimal.Decimal // increment
	}

	// Store is the storage collaborator. Batch applies all of its ops or none.
	Store interface {
		Put(ctx context.Context, collection, id string, fields Fields) error
		Get(ctx context.Context, collection, id string) (Fields, error)
		QueryByOwner(ctx context.Context, collection, owner string, filters ...Filter) ([]Fields, error)
		Update(ctx context.Context, collection, id string, patch Fields) error
		Delete(ctx context.Context, collection, id string) error
		Batch(ctx context.Context, ops []Op) error
		Close() error
	}
)

const (
	OpPut       OpKind = "put"
	OpUpdate    OpKind = "update"
	OpDelete    OpKind = "delete"
	OpIncrement OpKind = "increment"
)

func PutOp(collection, id string, fields Fields) Op {
	return Op{Kind: OpPut, Collection: collection, ID: id, Fields: fields}
}

func UpdateOp(collection, id string, patch Fields) Op {
	return Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: patch}
}

func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// IncrementOp adds delta to a decimal field of an existing document.
func IncrementOp(collection, id, field string, delta decimal.Decimal) Op {
	return Op{Kind: OpIncrement, Collection: collection, ID: id, Field: field, Delta: delta}
}

// Apply computes the new body of a document. cur is nil when the document does
// not exist; a nil result with a nil error means the document is deleted.
func Apply(op Op, cur []byte) ([]byte, error) {
	if !KnownCollection(op.Collection) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, op.Collection)
	}
	if op.ID == "" {
		return nil, errors.New("empty document id")
	}

	switch op.Kind {
	case OpPut:
		return json.Marshal(op.Fields)
	case OpDelete:
		return nil, nil
	case OpUpdate, OpIncrement:
		if cur == nil {
			return nil, fmt.Errorf("%s %s/%s: %w", op.Kind, op.Collection, op.ID, ErrNotFound)
		}
		doc, err := decode(cur)
		if err != nil {
			return nil, err
		}
		if op.Kind == OpUpdate {
			for k, v := range op.Fields {
				doc[k] = v
			}
		} else {
			v, err := DecimalField(doc, op.Field)
			if err != nil {
				return nil, err
			}
			doc[op.Field] = v.Add(op.Delta).String()
		}
		return json.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown op kind %q", op.Kind)
	}
}

// KnownCollection reports whether name is one of Collections.
func KnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Match reports whether a document belongs to owner and satisfies every filter.
func Match(doc Fields, owner string, filters []Filter) bool {
	if fmt.Sprint(doc[OwnerField]) != owner {
		return false
	}
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// DecimalField reads a decimal stored either as a string or a JSON number.
// A missing field reads as zero.
func DecimalField(doc Fields, field string) (decimal.Decimal, error) {
	switch v := doc[field].(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	default:
		return decimal.Zero, fmt.Errorf("field %q is not a decimal (%T)", field, v)
	}
}

// GetOwned decodes the document into v. Documents of another owner read as
// ErrNotFound.
func GetOwned(ctx context.Context, s Store, collection, id, owner string, v any) error {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if !Match(doc, owner, nil) {
		return ErrNotFound
	}
	return Decode(doc, v)
}

// List decodes every document of owner matching filters, in insertion order.
func List[T any](ctx context.Context, s Store, collection, owner string, filters ...Filter) ([]T, error) {
	docs, err := s.QueryByOwner(ctx, collection, owner, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode converts an entity into document fields through its JSON form.
func Encode(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decode(data)
}

// Decode fills an entity from document fields.
func Decode(f Fields, v any) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Unmarshal decodes a stored document body.
func Unmarshal(data []byte) (Fields, error) {
	return decode(data)
}

func decode(data []byte) (Fields, error) {
	var doc Fields
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Fields{}
	}
	return doc, nil
}
