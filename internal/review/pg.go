package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS review_resolutions (
	id          TEXT PRIMARY KEY,
	resolved_at TIMESTAMPTZ NOT NULL,
	note        TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS inbox_override_rules (
	kind     TEXT NOT NULL,
	rule_key TEXT NOT NULL,
	PRIMARY KEY (kind, rule_key)
);
CREATE TABLE IF NOT EXISTS review_meta (
	name       TEXT PRIMARY KEY,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);
INSERT INTO review_meta (name) VALUES ('review_state'), ('inbox_overrides')
ON CONFLICT (name) DO NOTHING;
`

const (
	metaState     = "review_state"
	metaOverrides = "inbox_overrides"
)

// PGStore keeps review state in Postgres. Each write runs in one
// transaction that locks its review_meta row, so concurrent writers of the
// same document serialize instead of losing updates.
type PGStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPGStore wraps an existing pool. Call Migrate before first use.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, now: nowUTC}
}

// OpenPG connects to dsn and ensures the schema exists.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres storage needs a DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := NewPGStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// Migrate creates the review tables if they do not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating review schema: %w", err)
	}
	return nil
}

// ReviewState returns every resolution.
func (s *PGStore) ReviewState(ctx context.Context) (model.ReviewState, error) {
	return s.readState(ctx, s.pool)
}

// Resolve upserts resolutions for ids.
func (s *PGStore) Resolve(ctx context.Context, ids []string, note string) (model.ReviewState, error) {
	if err := checkIDs(ids); err != nil {
		return model.ReviewState{}, err
	}
	now := s.now()
	return s.writeState(ctx, now, func(tx pgx.Tx) error {
		for _, id := range ids {
			_, err := tx.Exec(ctx, `
				INSERT INTO review_resolutions (id, resolved_at, note) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET resolved_at = EXCLUDED.resolved_at, note = EXCLUDED.note`,
				id, now, note)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", id, err)
			}
		}
		return nil
	})
}

// Unresolve deletes resolutions for ids.
func (s *PGStore) Unresolve(ctx context.Context, ids []string) (model.ReviewState, error) {
	if err := checkIDs(ids); err != nil {
		return model.ReviewState{}, err
	}
	return s.writeState(ctx, s.now(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM review_resolutions WHERE id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("unresolving: %w", err)
		}
		return nil
	})
}

// Overrides returns all suppression rules.
func (s *PGStore) Overrides(ctx context.Context) (model.InboxOverrides, error) {
	return s.readOverrides(ctx, s.pool)
}

// MergeOverrides replaces each category the patch provides.
func (s *PGStore) MergeOverrides(ctx context.Context, patch model.OverridesPatch) (model.InboxOverrides, error) {
	if patch.Empty() {
		return s.Overrides(ctx)
	}
	return s.writeOverrides(ctx, func(tx pgx.Tx, _ model.InboxOverrides) (model.OverridesPatch, error) {
		return patch, nil
	})
}

// SetRule turns a single rule on or off.
func (s *PGStore) SetRule(ctx context.Context, kind model.InboxKind, key string, on bool) (model.InboxOverrides, error) {
	return s.writeOverrides(ctx, func(_ pgx.Tx, cur model.InboxOverrides) (model.OverridesPatch, error) {
		return rulePatch(cur, kind, key, on)
	})
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PGStore) readState(ctx context.Context, q querier) (model.ReviewState, error) {
	st := model.ReviewState{Resolved: make(map[string]model.Resolution)}
	rows, err := q.Query(ctx, `SELECT id, resolved_at, note FROM review_resolutions`)
	if err != nil {
		return model.ReviewState{}, fmt.Errorf("reading resolutions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  string
			res model.Resolution
		)
		if err := rows.Scan(&id, &res.ResolvedAt, &res.Note); err != nil {
			return model.ReviewState{}, fmt.Errorf("scanning resolution: %w", err)
		}
		res.ResolvedAt = res.ResolvedAt.UTC()
		st.Resolved[id] = res
	}
	if err := rows.Err(); err != nil {
		return model.ReviewState{}, fmt.Errorf("reading resolutions: %w", err)
	}
	st.UpdatedAt, err = metaTime(ctx, q, metaState)
	if err != nil {
		return model.ReviewState{}, err
	}
	return st, nil
}

func (s *PGStore) readOverrides(ctx context.Context, q querier) (model.InboxOverrides, error) {
	o := model.OverridesPatch{}.Apply(model.InboxOverrides{})
	rows, err := q.Query(ctx, `SELECT kind, rule_key FROM inbox_override_rules`)
	if err != nil {
		return model.InboxOverrides{}, fmt.Errorf("reading override rules: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, key string
		if err := rows.Scan(&kind, &key); err != nil {
			return model.InboxOverrides{}, fmt.Errorf("scanning override rule: %w", err)
		}
		if rules := o.Rules(model.InboxKind(kind)); rules != nil {
			rules[key] = true
		}
	}
	if err := rows.Err(); err != nil {
		return model.InboxOverrides{}, fmt.Errorf("reading override rules: %w", err)
	}
	o.UpdatedAt, err = metaTime(ctx, q, metaOverrides)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	return o, nil
}

func metaTime(ctx context.Context, q querier, name string) (time.Time, error) {
	var t time.Time
	err := q.QueryRow(ctx, `SELECT updated_at FROM review_meta WHERE name = $1`, name).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading %s timestamp: %w", name, err)
	}
	if t.Equal(time.Unix(0, 0)) {
		return time.Time{}, nil
	}
	return t.UTC(), nil
}

// lockMeta takes the row lock that serializes writers of one document.
func lockMeta(ctx context.Context, tx pgx.Tx, name string) error {
	var t time.Time
	err := tx.QueryRow(ctx, `SELECT updated_at FROM review_meta WHERE name = $1 FOR UPDATE`, name).Scan(&t)
	if err != nil {
		return fmt.Errorf("locking %s: %w", name, err)
	}
	return nil
}

func touchMeta(ctx context.Context, tx pgx.Tx, name string, now time.Time) error {
	if _, err := tx.Exec(ctx, `UPDATE review_meta SET updated_at = $2 WHERE name = $1`, name, now); err != nil {
		return fmt.Errorf("updating %s timestamp: %w", name, err)
	}
	return nil
}

func (s *PGStore) writeState(ctx context.Context, now time.Time, fn func(pgx.Tx) error) (model.ReviewState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.ReviewState{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockMeta(ctx, tx, metaState); err != nil {
		return model.ReviewState{}, err
	}
	if err := fn(tx); err != nil {
		return model.ReviewState{}, err
	}
	if err := touchMeta(ctx, tx, metaState, now); err != nil {
		return model.ReviewState{}, err
	}
	st, err := s.readState(ctx, tx)
	if err != nil {
		return model.ReviewState{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.ReviewState{}, fmt.Errorf("committing review state: %w", err)
	}
	return st, nil
}

func (s *PGStore) writeOverrides(ctx context.Context, build func(pgx.Tx, model.InboxOverrides) (model.OverridesPatch, error)) (model.InboxOverrides, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.InboxOverrides{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockMeta(ctx, tx, metaOverrides); err != nil {
		return model.InboxOverrides{}, err
	}
	cur, err := s.readOverrides(ctx, tx)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	patch, err := build(tx, cur)
	if err != nil {
		return model.InboxOverrides{}, err
	}

	replace := []struct {
		kind  model.InboxKind
		rules *map[string]bool
	}{
		{model.KindUnknownMerchant, patch.MerchantRules},
		{model.KindUncertainTransfer, patch.TransferRules},
		{model.KindParseIssue, patch.ParseRules},
	}
	for _, r := range replace {
		if r.rules == nil {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM inbox_override_rules WHERE kind = $1`, string(r.kind)); err != nil {
			return model.InboxOverrides{}, fmt.Errorf("clearing %s rules: %w", r.kind, err)
		}
		for key, on := range *r.rules {
			if !on {
				continue
			}
			if _, err := tx.Exec(ctx, `INSERT INTO inbox_override_rules (kind, rule_key) VALUES ($1, $2)`, string(r.kind), key); err != nil {
				return model.InboxOverrides{}, fmt.Errorf("inserting %s rule: %w", r.kind, err)
			}
		}
	}

	if err := touchMeta(ctx, tx, metaOverrides, s.now()); err != nil {
		return model.InboxOverrides{}, err
	}
	out, err := s.readOverrides(ctx, tx)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.InboxOverrides{}, fmt.Errorf("committing overrides: %w", err)
	}
	return out, nil
}
