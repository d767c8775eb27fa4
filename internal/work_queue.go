package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/swatches"
)

// PostgresWorkQueue persists typed work items in swatch_work_items.
// A unique index on (kind, taxonomy) makes identical pending items collapse into one.
type PostgresWorkQueue struct {
	pool pgPool
}

var _ swatches.WorkQueue = (*PostgresWorkQueue)(nil)

func NewPostgresWorkQueue(pool pgPool) *PostgresWorkQueue {
	return &PostgresWorkQueue{pool: pool}
}

const workItemColumns = `id, kind, taxonomy, run_at, attempts`

func (q *PostgresWorkQueue) Enqueue(ctx context.Context, item swatches.WorkItem) (bool, error) {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("generate work item id: %w", err)
		}
		item.ID = id
	}
	tag, err := q.pool.Exec(ctx,
		`INSERT INTO swatch_work_items (`+workItemColumns+`) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, taxonomy) DO NOTHING`,
		item.ID, string(item.Kind), item.Taxonomy, item.RunAt, item.Attempts,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue work item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *PostgresWorkQueue) Due(ctx context.Context, now time.Time, limit int) ([]swatches.WorkItem, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := q.pool.Query(ctx,
		`SELECT `+workItemColumns+` FROM swatch_work_items WHERE run_at <= $1 ORDER BY run_at, id LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load due work items: %w", err)
	}
	return scanWorkItems(rows)
}

func (q *PostgresWorkQueue) Complete(ctx context.Context, item swatches.WorkItem) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM swatch_work_items WHERE id = $1`, item.ID); err != nil {
		return fmt.Errorf("complete work item: %w", err)
	}
	return nil
}

func (q *PostgresWorkQueue) Reschedule(ctx context.Context, item swatches.WorkItem, runAt time.Time) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE swatch_work_items SET run_at = $2, attempts = attempts + 1 WHERE id = $1`,
		item.ID, runAt,
	)
	if err != nil {
		return fmt.Errorf("reschedule work item: %w", err)
	}
	return nil
}

func (q *PostgresWorkQueue) Pending(ctx context.Context) ([]swatches.WorkItem, error) {
	rows, err := q.pool.Query(ctx, `SELECT `+workItemColumns+` FROM swatch_work_items ORDER BY run_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	return scanWorkItems(rows)
}

func (q *PostgresWorkQueue) Clear(ctx context.Context) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM swatch_work_items`); err != nil {
		return fmt.Errorf("clear work items: %w", err)
	}
	return nil
}

func scanWorkItems(rows pgx.Rows) ([]swatches.WorkItem, error) {
	defer rows.Close()
	var items []swatches.WorkItem
	for rows.Next() {
		var item swatches.WorkItem
		var kind string
		if err := rows.Scan(&item.ID, &kind, &item.Taxonomy, &item.RunAt, &item.Attempts); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		item.Kind = swatches.WorkItemKind(kind)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work items: %w", err)
	}
	return items, nil
}
