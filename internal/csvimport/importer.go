package csvimport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Ledger is the part of the ledger engine an import writes through.
type Ledger interface {
	ListAccounts(ctx context.Context, sess core.Session) ([]core.Account, error)
	ApplyDrafts(ctx context.Context, sess core.Session, drafts []core.Draft) ([]core.Transaction, error)
}

// Preview is a parsed import waiting to be committed.
type Preview struct {
	ID        string       `json:"id"`
	Owner     string       `json:"-"`
	Drafts    []core.Draft `json:"drafts"`
	Rows      []int        `json:"rows"`
	Errors    []RowError   `json:"errors"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Outcome reports a committed import.
type Outcome struct {
	Imported []core.Transaction `json:"imported"`
	Errors   []RowError         `json:"errors"`
}

type Config struct {
	MaxBytes    int64         // largest accepted upload
	PreviewTTL  time.Duration // how long a preview can be committed
	MaxPreviews int
}

func DefaultConfig() Config {
	return Config{
		MaxBytes:    5 << 20,
		PreviewTTL:  15 * time.Minute,
		MaxPreviews: 256,
	}
}

type Importer struct {
	ledger   Ledger
	previews *cache.LRUCache[*Preview]
	cfg      Config
	logger   *log.StructuredLogger
	now      func() time.Time
}

func NewImporter(ledger Ledger, cfg Config, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Discard()
	}
	def := DefaultConfig()
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = def.PreviewTTL
	}
	if cfg.MaxPreviews <= 0 {
		cfg.MaxPreviews = def.MaxPreviews
	}
	return &Importer{
		ledger:   ledger,
		previews: cache.NewLRUCache[*Preview](cfg.MaxPreviews, cfg.PreviewTTL),
		cfg:      cfg,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentImport)),
		now:      time.Now,
	}
}

// Previews exposes the preview cache so it can be swept periodically.
func (im *Importer) Previews() cache.Cleaner { return im.previews }

func (im *Importer) parse(ctx context.Context, sess core.Session, r io.Reader) (Result, error) {
	if err := sess.Validate(); err != nil {
		return Result{}, err
	}
	accounts, err := im.ledger.ListAccounts(ctx, sess)
	if err != nil {
		return Result{}, err
	}

	limited := &io.LimitedReader{R: r, N: im.cfg.MaxBytes + 1}
	res, err := Parse(limited, accounts, im.now())
	if limited.N <= 0 {
		return Result{}, core.Invalid("csv", fmt.Sprintf("file larger than %d bytes", im.cfg.MaxBytes))
	}
	return res, err
}

// Preview parses r and keeps the drafts until Commit or expiry.
func (im *Importer) Preview(ctx context.Context, sess core.Session, r io.Reader) (*Preview, error) {
	res, err := im.parse(ctx, sess, r)
	if err != nil {
		return nil, err
	}
	p := &Preview{
		ID:        uuid.NewString(),
		Owner:     sess.Owner,
		Drafts:    res.Drafts,
		Rows:      res.Rows,
		Errors:    res.Errors,
		ExpiresAt: im.now().Add(im.cfg.PreviewTTL).UTC(),
	}
	im.previews.Set(p.ID, p)
	return p, nil
}

// Commit applies a preview exactly once. Unknown, expired, foreign or already
// committed previews are NotFound.
func (im *Importer) Commit(ctx context.Context, sess core.Session, previewID string) (Outcome, error) {
	if err := sess.Validate(); err != nil {
		return Outcome{}, err
	}
	p, ok := im.previews.Get(previewID)
	if !ok || p.Owner != sess.Owner {
		return Outcome{}, core.NotFound("import preview", previewID)
	}
	if p, ok = im.previews.Take(previewID); !ok {
		return Outcome{}, core.NotFound("import preview", previewID)
	}

	out, err := im.apply(ctx, sess, p.Drafts, p.Errors)
	if err != nil {
		// nothing was written; let the caller retry the same preview
		im.previews.Set(p.ID, p)
		return Outcome{}, err
	}
	return out, nil
}

// Import parses r and applies it straight away.
func (im *Importer) Import(ctx context.Context, sess core.Session, r io.Reader) (Outcome, error) {
	res, err := im.parse(ctx, sess, r)
	if err != nil {
		return Outcome{}, err
	}
	return im.apply(ctx, sess, res.Drafts, res.Errors)
}

func (im *Importer) apply(ctx context.Context, sess core.Session, drafts []core.Draft, rowErrs []RowError) (Outcome, error) {
	txns, err := im.ledger.ApplyDrafts(ctx, sess, drafts)
	if err != nil {
		return Outcome{}, err
	}
	im.logger.LogImportCompleted(ctx, sess.Owner, len(txns), len(rowErrs))
	return Outcome{Imported: txns, Errors: rowErrs}, nil
}
