package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/store"
)

func (s *Store) UpsertPollingTask(ctx context.Context, tx *store.Tx, task *store.PollingTaskRow) error {
	const op = "store.polling_task.upsert"
	_, err := s.q(tx).Exec(ctx, `INSERT INTO polling_task (node_id, interval_ms, next_due_at, consecutive_failures, last_error)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (node_id) DO UPDATE SET
			interval_ms = EXCLUDED.interval_ms,
			next_due_at = EXCLUDED.next_due_at,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error = EXCLUDED.last_error`,
		task.NodeID, task.IntervalMS, task.NextDueAtMS, task.ConsecutiveFailures, nullableString(task.LastError))
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.Wrap(errs.KindReferentialIntegrity, op, "node_id does not exist", err)
		}
		return errs.Wrap(errs.KindIO, op, "upsert failed", err)
	}
	return nil
}

func (s *Store) GetPollingTask(ctx context.Context, tx *store.Tx, nodeID string) (*store.PollingTaskRow, error) {
	const op = "store.polling_task.get"
	row := s.q(tx).QueryRow(ctx, `SELECT node_id, interval_ms, next_due_at, consecutive_failures, last_error FROM polling_task WHERE node_id = $1`, nodeID)
	return scanPollingTask(row, op)
}

func (s *Store) ListDuePollingTasks(ctx context.Context, tx *store.Tx, beforeMS int64, limit int) ([]*store.PollingTaskRow, error) {
	const op = "store.polling_task.list_due"
	rows, err := s.q(tx).Query(ctx, `SELECT node_id, interval_ms, next_due_at, consecutive_failures, last_error
		FROM polling_task WHERE next_due_at <= $1 ORDER BY next_due_at ASC LIMIT $2`, beforeMS, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, op, "query failed", err)
	}
	defer rows.Close()

	var out []*store.PollingTaskRow
	for rows.Next() {
		t, err := scanPollingTask(rows, op)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeletePollingTask(ctx context.Context, tx *store.Tx, nodeID string) error {
	_, err := s.q(tx).Exec(ctx, `DELETE FROM polling_task WHERE node_id = $1`, nodeID)
	if err != nil {
		return errs.Wrap(errs.KindIO, "store.polling_task.delete", "delete failed", err)
	}
	return nil
}

func scanPollingTask(row rowScanner, op string) (*store.PollingTaskRow, error) {
	var t store.PollingTaskRow
	var lastErr *string
	if err := row.Scan(&t.NodeID, &t.IntervalMS, &t.NextDueAtMS, &t.ConsecutiveFailures, &lastErr); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, op, "polling task not found")
		}
		return nil, errs.Wrap(errs.KindIO, op, "scan failed", err)
	}
	t.LastError = derefString(lastErr)
	return &t, nil
}
