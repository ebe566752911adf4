// Package bolt persists documents in a bbolt file, one bucket per collection.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"

	"fintrack/internal/store"
)

// record is the stored value. Seq preserves insertion order across updates.
type record struct {
	Seq uint64          `json:"seq"`
	Doc json.RawMessage `json:"doc"`
}

type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// New opens the database file and creates a bucket per collection.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range store.Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, collection, id string, fields store.Fields) error {
	return s.Batch(ctx, []store.Op{store.PutOp(collection, id, fields)})
}

func (s *Store) Update(ctx context.Context, collection, id string, patch store.Fields) error {
	return s.Batch(ctx, []store.Op{store.UpdateOp(collection, id, patch)})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []store.Op{store.DeleteOp(collection, id)})
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc store.Fields
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return store.ErrNotFound
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		doc, err = store.Unmarshal(rec.Doc)
		return err
	})
	return doc, err
}

func (s *Store) QueryByOwner(ctx context.Context, collection, owner string, filters ...store.Filter) ([]store.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var recs []record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, k, err)
			}
			// RawMessage aliases v, which is only valid inside the transaction.
			rec.Doc = append(json.RawMessage(nil), rec.Doc...)
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	var out []store.Fields
	for _, rec := range recs {
		doc, err := store.Unmarshal(rec.Doc)
		if err != nil {
			return nil, err
		}
		if store.Match(doc, owner, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Batch applies every op inside one read-write bbolt transaction.
func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, op := range ops {
			if err := applyOp(tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOp(tx *bbolt.Tx, op store.Op) error {
	b, err := bucket(tx, op.Collection)
	if err != nil {
		return err
	}
	key := []byte(op.ID)

	var cur []byte
	var rec record
	if data := b.Get(key); data != nil {
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode %s/%s: %w", op.Collection, op.ID, err)
		}
		cur = rec.Doc
	}

	next, err := store.Apply(op, cur)
	if err != nil {
		return err
	}
	if next == nil {
		return b.Delete(key)
	}

	if cur == nil {
		if rec.Seq, err = b.NextSequence(); err != nil {
			return err
		}
	}
	rec.Doc = next
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return b.Put(key, data)
}

func bucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	if !store.KnownCollection(name) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, name)
	}
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found", name)
	}
	return b, nil
}
