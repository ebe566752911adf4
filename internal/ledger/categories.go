package ledger

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Categories returns the owner's categories, seeding the defaults in one batch
// the first time an owner has none.
func (s *Service) Categories(ctx context.Context, sess core.Session) ([]core.Category, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	cats, err := store.List[core.Category](ctx, s.db, store.Categories, sess.Owner)
	if err != nil {
		return nil, core.Storage("list categories", err)
	}
	if len(cats) > 0 {
		return cats, nil
	}

	var ops []store.Op
	for _, kind := range seedOrder(s.defaults) {
		for _, name := range s.defaults[kind] {
			c := core.Category{ID: s.newID(), Owner: sess.Owner, Name: name, Kind: kind}
			fields, err := store.Encode(c)
			if err != nil {
				return nil, core.Storage("encode category", err)
			}
			ops = append(ops, store.PutOp(store.Categories, c.ID, fields))
			cats = append(cats, c)
		}
	}
	if len(ops) == 0 {
		return cats, nil
	}
	if err := s.db.Batch(ctx, ops); err != nil {
		return nil, core.Storage("seed categories", err)
	}

	s.logger.InfoContext(ctx, "Default categories seeded",
		log.FieldOwner, sess.Owner,
		log.FieldCount, len(cats))
	return cats, nil
}

// CreateCategory adds a category. Names are unique per kind, ignoring case.
func (s *Service) CreateCategory(ctx context.Context, sess core.Session, name string, kind core.CategoryKind, color string) (core.Category, error) {
	c := core.Category{
		Owner: sess.Owner,
		Name:  strings.TrimSpace(name),
		Kind:  kind,
		Color: strings.TrimSpace(color),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	existing, err := s.Categories(ctx, sess)
	if err != nil {
		return core.Category{}, err
	}
	for _, e := range existing {
		if e.Kind == c.Kind && strings.EqualFold(e.Name, c.Name) {
			return core.Category{}, core.Invalid("name", "category already exists")
		}
	}

	c.ID = s.newID()
	fields, err := store.Encode(c)
	if err != nil {
		return core.Category{}, core.Storage("encode category", err)
	}
	if err := s.db.Put(ctx, store.Categories, c.ID, fields); err != nil {
		return core.Category{}, core.Storage("create category", err)
	}
	return c, nil
}

// seedOrder lists the kinds of m, the well-known ones first.
func seedOrder(m map[core.CategoryKind][]string) []core.CategoryKind {
	out := make([]core.CategoryKind, 0, len(m))
	seen := make(map[core.CategoryKind]bool)
	kinds := append([]core.CategoryKind{}, core.CategoryKinds...)
	for _, k := range append(kinds, core.DebtCategory) {
		if _, ok := m[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	for k := range m {
		if !seen[k] && k.Valid() {
			out = append(out, k)
		}
	}
	return out
}
