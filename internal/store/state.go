package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
)

// Sync metadata: the high-water mark bounding which remote documents the
// pull phase considers. Owned exclusively by the sync engine - read at the
// start of pull, written only after a fully successful sync.

// LastSyncedAt returns the timestamp of the last successful sync. The
// second return value is false before the first sync ever completes.
func (s *Store) LastSyncedAt(ctx context.Context) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.conn.QueryRowContext(ctx,
		"SELECT last_synced_at FROM sync_state WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read sync state: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}

	t, err := budget.ParseTime(raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt last_synced_at %q: %w", raw.String, err)
	}
	return t, true, nil
}

// SetLastSyncedAt advances the high-water mark.
func (s *Store) SetLastSyncedAt(ctx context.Context, t time.Time) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_synced_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_synced_at = excluded.last_synced_at`,
		budget.FormatTime(t))
	if err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}
