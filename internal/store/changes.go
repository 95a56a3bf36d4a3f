package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
)

// Pending-change log operations. Appends happen only through the typed
// domain write path; the sync engine reads and flips entries inside its
// push transaction.

// appendChange inserts one pending_changes entry. Callers must already be
// inside the transaction that performs the domain mutation.
func appendChange(ctx context.Context, q querier, tableName, rowID string, action budget.Action, payload map[string]any) error {
	var payloadJSON any
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal change payload: %w", err)
		}
		payloadJSON = string(b)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO pending_changes (table_name, row_id, action, payload, created_at, synced)
		VALUES (?, ?, ?, ?, ?, 0)`,
		tableName, rowID, string(action), payloadJSON,
		budget.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to append pending change: %w", err)
	}
	return nil
}

// PendingChanges returns unsynced change-log entries in replay order:
// ascending created_at, sequence id breaking ties. This is the order that
// preserves per-row causality when several changes to the same row queue
// up between syncs.
func (tx *Tx) PendingChanges(ctx context.Context) ([]budget.PendingChange, error) {
	return pendingChanges(ctx, tx.tx)
}

// PendingChanges is the non-transactional variant, for status reporting.
func (s *Store) PendingChanges(ctx context.Context) ([]budget.PendingChange, error) {
	return pendingChanges(ctx, s.conn)
}

func pendingChanges(ctx context.Context, q querier) ([]budget.PendingChange, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, table_name, row_id, action, payload, created_at
		FROM pending_changes
		WHERE synced = 0
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}
	defer rows.Close()

	var changes []budget.PendingChange
	for rows.Next() {
		var (
			c         budget.PendingChange
			action    string
			payload   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.TableName, &c.RowID, &action, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending change: %w", err)
		}
		c.Action, err = budget.ParseAction(action)
		if err != nil {
			return nil, fmt.Errorf("corrupt pending change %d: %w", c.ID, err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &c.Payload); err != nil {
				return nil, fmt.Errorf("corrupt payload on pending change %d: %w", c.ID, err)
			}
		}
		c.CreatedAt, err = budget.ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at on pending change %d: %w", c.ID, err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// MarkChangeSynced flips one change-log entry to synced. Runs inside the
// push transaction so a failed push leaves every flag unflipped.
func (tx *Tx) MarkChangeSynced(ctx context.Context, id int64) error {
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE pending_changes SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark change %d synced: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to mark change %d synced: not found", id)
	}
	return nil
}

// UnsyncedCount returns the number of changes still waiting to be pushed.
func (s *Store) UnsyncedCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pending_changes WHERE synced = 0").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced changes: %w", err)
	}
	return n, nil
}

// PruneSyncedChanges deletes synced change-log entries created before the
// cutoff. Unsynced entries are never pruned, whatever their age. Returns
// the number of entries removed.
func (s *Store) PruneSyncedChanges(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		"DELETE FROM pending_changes WHERE synced = 1 AND created_at < ?",
		budget.FormatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced changes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
