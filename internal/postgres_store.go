package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/swatches"
)

// pgPool is the subset of pgxpool.Pool used by the Postgres stores; pgxmock satisfies it in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps options, product meta and term meta in PostgreSQL.
type PostgresStore struct {
	pool    pgPool
	nowFunc func() time.Time
}

var (
	_ swatches.ProductMetaStore = (*PostgresStore)(nil)
	_ swatches.OptionStore      = (*PostgresStore)(nil)
	_ swatches.TermMetaStore    = (*PostgresStore)(nil)
)

func NewPostgresStore(pool pgPool) *PostgresStore {
	return &PostgresStore{pool: pool, nowFunc: time.Now}
}

func (s *PostgresStore) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.nowFunc = now
}

// --- options -------------------------------------------------------------

func (s *PostgresStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM swatch_options WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", name, err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetOption(ctx context.Context, name, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO swatch_options (name, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		name, value, s.nowFunc(),
	)
	if err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) DeleteOption(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM swatch_options WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete option %s: %w", name, err)
	}
	return nil
}

// TryAcquire writes owner unless a fresh holder is already stored, in one statement.
func (s *PostgresStore) TryAcquire(ctx context.Context, name, owner string, now, staleBefore time.Time) (bool, error) {
	var got string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO swatch_options (name, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		WHERE swatch_options.value IN ('', '0') OR swatch_options.updated_at < $4
		RETURNING value`,
		name, owner, now, staleBefore,
	).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", name, err)
	}
	return true, nil
}

func (s *PostgresStore) TouchOwned(ctx context.Context, name, owner string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE swatch_options SET updated_at = $3 WHERE name = $1 AND value = $2`,
		name, owner, now,
	)
	if err != nil {
		return false, fmt.Errorf("touch %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) DeleteOwned(ctx context.Context, name, owner string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM swatch_options WHERE name = $1 AND value = $2`, name, owner)
	if err != nil {
		return false, fmt.Errorf("delete owned %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) OptionUpdatedAt(ctx context.Context, name string) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx, `SELECT updated_at FROM swatch_options WHERE name = $1`, name).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get option timestamp %s: %w", name, err)
	}
	return at, true, nil
}

// --- product meta --------------------------------------------------------

func (s *PostgresStore) GetProductMeta(ctx context.Context, id swatches.ProductID, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT meta_value FROM swatch_product_meta WHERE product_id = $1 AND meta_key = $2`,
		int64(id), key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get product meta: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetProductMeta(ctx context.Context, id swatches.ProductID, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO swatch_product_meta (product_id, meta_key, meta_value) VALUES ($1, $2, $3)
		ON CONFLICT (product_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
		int64(id), key, value,
	)
	if err != nil {
		return fmt.Errorf("set product meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProductMeta(ctx context.Context, id swatches.ProductID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM swatch_product_meta WHERE product_id = $1 AND meta_key = $2`,
		int64(id), key,
	)
	if err != nil {
		return fmt.Errorf("delete product meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProductIDsWithMeta(ctx context.Context, key string) ([]swatches.ProductID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id FROM swatch_product_meta WHERE meta_key = $1 ORDER BY product_id`, key)
	if err != nil {
		return nil, fmt.Errorf("list products with meta: %w", err)
	}
	return collectProductIDs(rows)
}

// ProductMetaRow is one cached product entry, used by snapshot exports.
type ProductMetaRow struct {
	ProductID swatches.ProductID
	Value     string
}

// ListProductMeta returns every product entry stored under key.
func (s *PostgresStore) ListProductMeta(ctx context.Context, key string) ([]ProductMetaRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, meta_value FROM swatch_product_meta WHERE meta_key = $1 ORDER BY product_id`, key)
	if err != nil {
		return nil, fmt.Errorf("list product meta: %w", err)
	}
	defer rows.Close()
	var out []ProductMetaRow
	for rows.Next() {
		var id int64
		var r ProductMetaRow
		if err := rows.Scan(&id, &r.Value); err != nil {
			return nil, fmt.Errorf("scan product meta: %w", err)
		}
		r.ProductID = swatches.ProductID(id)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- term meta -----------------------------------------------------------

func (s *PostgresStore) GetTermMeta(ctx context.Context, termID swatches.TermID, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT meta_value FROM swatch_term_meta WHERE term_id = $1 AND meta_key = $2`,
		int64(termID), key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get term meta: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetTermMeta(ctx context.Context, termID swatches.TermID, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO swatch_term_meta (term_id, meta_key, meta_value) VALUES ($1, $2, $3)
		ON CONFLICT (term_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
		int64(termID), key, value,
	)
	if err != nil {
		return fmt.Errorf("set term meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTermMeta(ctx context.Context, termID swatches.TermID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM swatch_term_meta WHERE term_id = $1 AND meta_key = $2`,
		int64(termID), key,
	)
	if err != nil {
		return fmt.Errorf("delete term meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTermMetaByKey(ctx context.Context, key string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM swatch_term_meta WHERE meta_key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("delete term meta by key: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func collectProductIDs(rows pgx.Rows) ([]swatches.ProductID, error) {
	defer rows.Close()
	var ids []swatches.ProductID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, swatches.ProductID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}
	return ids, nil
}
