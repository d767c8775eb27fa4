package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// Row is one cached product entry of a snapshot.
type Row struct {
	ProductID int64
	HTML      string
}

// Summary describes a written snapshot.
type Summary struct {
	Rows       int64
	HTMLBytes  int64
	MinProduct int64
	MaxProduct int64
}

// ParquetWriter stages rows in an in-memory DuckDB database and copies them to a Parquet file.
type ParquetWriter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewParquetWriter opens an in-memory DuckDB connection.
func NewParquetWriter(ctx context.Context, logger *zap.Logger) (*ParquetWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, "LOAD parquet;"); err != nil {
		logger.Sugar().Warnw("duckdb load extension failed", "ext", "parquet", "err", err)
	}
	return &ParquetWriter{db: db, logger: logger}, nil
}

// Close releases the DuckDB connection.
func (w *ParquetWriter) Close() error {
	return w.db.Close()
}

// Write replaces the staging table with rows, copies it to path and returns a summary.
func (w *ParquetWriter) Write(ctx context.Context, rows []Row, exportedAt time.Time, path string) (Summary, error) {
	var sum Summary
	stmts := []string{
		"DROP TABLE IF EXISTS swatch_snapshot;",
		"CREATE TABLE swatch_snapshot (product_id BIGINT NOT NULL, html VARCHAR NOT NULL, exported_at TIMESTAMP NOT NULL);",
	}
	for _, s := range stmts {
		if _, err := w.db.ExecContext(ctx, s); err != nil {
			return sum, fmt.Errorf("prepare staging table: %w", err)
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("begin staging insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO swatch_snapshot VALUES (?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return sum, fmt.Errorf("prepare staging insert: %w", err)
	}
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.ProductID, r.HTML, exportedAt.UTC()); err != nil {
			stmt.Close()
			_ = tx.Rollback()
			return sum, fmt.Errorf("insert product %d: %w", r.ProductID, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("commit staging insert: %w", err)
	}

	copySQL := fmt.Sprintf("COPY (SELECT * FROM swatch_snapshot ORDER BY product_id) TO '%s' (FORMAT PARQUET, COMPRESSION 'ZSTD');",
		strings.ReplaceAll(path, "'", "''"))
	if _, err := w.db.ExecContext(ctx, copySQL); err != nil {
		return sum, fmt.Errorf("duckdb copy exec: %w", err)
	}

	err = w.db.QueryRowContext(ctx,
		`SELECT count(*), coalesce(sum(length(html)), 0), coalesce(min(product_id), 0), coalesce(max(product_id), 0) FROM swatch_snapshot`,
	).Scan(&sum.Rows, &sum.HTMLBytes, &sum.MinProduct, &sum.MaxProduct)
	if err != nil {
		return sum, fmt.Errorf("summarize snapshot: %w", err)
	}
	return sum, nil
}

// CountParquetRows reads back the row count of a Parquet file.
func (w *ParquetWriter) CountParquetRows(ctx context.Context, path string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT count(*) FROM read_parquet('%s');", strings.ReplaceAll(path, "'", "''"))
	if err := w.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("read parquet: %w", err)
	}
	return n, nil
}
