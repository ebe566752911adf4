// Package sqlite persists documents in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises them anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store opened", "db_path", dbPath, "schema_version", version)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
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
	if !store.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return store.Unmarshal([]byte(body))
}

func (s *Store) QueryByOwner(ctx context.Context, collection, owner string, filters ...store.Filter) ([]store.Fields, error) {
	if !store.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND owner = ? ORDER BY seq`, collection, owner)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []store.Fields
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := store.Unmarshal([]byte(body))
		if err != nil {
			return nil, err
		}
		if store.Match(doc, owner, filters) {
			out = append(out, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// Batch runs every op inside one SQL transaction.
func (s *Store) Batch(ctx context.Context, ops []store.Op) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Batch rollback failed", "error", rbErr)
			}
		}
	}()

	for _, op := range ops {
		if err = applyOp(ctx, tx, op); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op store.Op) error {
	var cur []byte
	var body string
	err := tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID).Scan(&body)
	switch {
	case err == nil:
		cur = []byte(body)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("read %s/%s: %w", op.Collection, op.ID, err)
	}

	next, err := store.Apply(op, cur)
	if err != nil {
		return err
	}

	if next == nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID); err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	}

	doc, err := store.Unmarshal(next)
	if err != nil {
		return err
	}
	owner, _ := doc[store.OwnerField].(string)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, owner, body, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents))
		ON CONFLICT (collection, id) DO UPDATE SET owner = excluded.owner, body = excluded.body`,
		op.Collection, op.ID, owner, string(next))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
	}
	return nil
}
