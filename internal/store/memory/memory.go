// Package memory is an in-process store backend, used by default and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/store"
)

type entry struct {
	seq  int64
	body []byte
}

type key struct {
	collection string
	id         string
}

// Store keeps documents as encoded JSON so callers never share maps with it.
type Store struct {
	mu   sync.Mutex
	seq  int64
	docs map[key]entry
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{docs: make(map[key]entry)}
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
	if !store.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}
	s.mu.Lock()
	e, ok := s.docs[key{collection, id}]
	s.mu.Unlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Unmarshal(e.body)
}

func (s *Store) QueryByOwner(ctx context.Context, collection, owner string, filters ...store.Filter) ([]store.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !store.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}

	s.mu.Lock()
	var entries []entry
	for k, e := range s.docs {
		if k.collection == collection {
			entries = append(entries, e)
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	var out []store.Fields
	for _, e := range entries {
		doc, err := store.Unmarshal(e.body)
		if err != nil {
			return nil, err
		}
		if store.Match(doc, owner, filters) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Batch stages every op against a private overlay and publishes the overlay
// only when all ops succeeded.
func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[key]*entry)
	seq := s.seq
	for _, op := range ops {
		k := key{op.Collection, op.ID}
		var cur []byte
		prev, inOverlay := staged[k]
		if inOverlay {
			if prev != nil {
				cur = prev.body
			}
		} else if e, ok := s.docs[k]; ok {
			cur = e.body
			prev = &e
		}

		next, err := store.Apply(op, cur)
		if err != nil {
			return err
		}
		if next == nil {
			staged[k] = nil
			continue
		}
		ne := entry{body: next}
		if prev != nil {
			ne.seq = prev.seq
		} else {
			seq++
			ne.seq = seq
		}
		staged[k] = &ne
	}

	for k, e := range staged {
		if e == nil {
			delete(s.docs, k)
			continue
		}
		s.docs[k] = *e
	}
	s.seq = seq
	return nil
}

func (s *Store) Close() error { return nil }
