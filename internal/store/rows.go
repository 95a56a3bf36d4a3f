package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
)

// Generic row access, driven entirely by the table descriptors in the
// budget package. The sync engine uses these during the pull phase; they
// never touch the pending-change log.

// syncColumns are present on every syncable table, after the descriptor's
// domain columns.
var syncColumns = []string{"created_at", "updated_at", "deleted_at"}

func allColumns(table budget.Table) []string {
	cols := make([]string, 0, len(table.Columns)+len(syncColumns))
	cols = append(cols, table.Columns...)
	cols = append(cols, syncColumns...)
	return cols
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}

// GetRow fetches one row by id as a field map (sync columns included).
// The second return value is false when no row exists.
func (s *Store) GetRow(ctx context.Context, table budget.Table, id string) (map[string]any, bool, error) {
	return getRow(ctx, s.conn, table, id)
}

func getRow(ctx context.Context, q querier, table budget.Table, id string) (map[string]any, bool, error) {
	cols := allColumns(table)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", quoteColumns(cols), table.Name)

	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}

	err := q.QueryRowContext(ctx, query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", table.Name, id, err)
	}

	fields := make(map[string]any, len(cols))
	for i, col := range cols {
		v := normalizeValue(*dest[i].(*any))
		if v != nil {
			fields[col] = v
		}
	}
	return fields, true, nil
}

// normalizeValue maps driver scan types to the field-map conventions:
// []byte becomes string, nil stays absent.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	default:
		return v
	}
}

// InsertRowFields inserts a row from a field map. Columns absent from the
// map are stored as NULL.
func (s *Store) InsertRowFields(ctx context.Context, table budget.Table, id string, fields map[string]any) error {
	return insertRow(ctx, s.conn, table, id, fields)
}

func insertRow(ctx context.Context, q querier, table budget.Table, id string, fields map[string]any) error {
	cols := allColumns(table)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	query := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s)",
		table.Name, quoteColumns(cols), placeholders)

	args := make([]any, 0, len(cols)+1)
	args = append(args, id)
	for _, col := range cols {
		args = append(args, fields[col])
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s/%s: %w", table.Name, id, err)
	}
	return nil
}

// UpdateRowFields overwrites a row's columns from a field map. Columns
// absent from the map are set to NULL, so the map must be a full snapshot,
// not a partial patch.
func (s *Store) UpdateRowFields(ctx context.Context, table budget.Table, id string, fields map[string]any) error {
	return updateRow(ctx, s.conn, table, id, fields)
}

func updateRow(ctx context.Context, q querier, table budget.Table, id string, fields map[string]any) error {
	cols := allColumns(table)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%q = ?", col)
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table.Name, strings.Join(sets, ", "))
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table.Name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update %s/%s: row not found", table.Name, id)
	}
	return nil
}

// SoftDeleteRow marks a row deleted, stamping both deleted_at and
// updated_at. Other columns are left untouched.
func (s *Store) SoftDeleteRow(ctx context.Context, table budget.Table, id string, deletedAt, updatedAt time.Time) error {
	return softDeleteRow(ctx, s.conn, table, id, deletedAt, updatedAt)
}

func softDeleteRow(ctx context.Context, q querier, table budget.Table, id string, deletedAt, updatedAt time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ?", table.Name)
	res, err := q.ExecContext(ctx, query,
		budget.FormatTime(deletedAt), budget.FormatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete %s/%s: %w", table.Name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to soft-delete %s/%s: row not found", table.Name, id)
	}
	return nil
}

// ListRows returns all rows of a table as field maps keyed by row id,
// tombstones included. Primarily for tests and the status command.
func (s *Store) ListRows(ctx context.Context, table budget.Table) (map[string]map[string]any, error) {
	cols := allColumns(table)
	query := fmt.Sprintf("SELECT id, %s FROM %s", quoteColumns(cols), table.Name)

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table.Name, err)
	}
	defer rows.Close()

	out := make(map[string]map[string]any)
	for rows.Next() {
		var id string
		dest := make([]any, 0, len(cols)+1)
		dest = append(dest, &id)
		for range cols {
			dest = append(dest, new(any))
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table.Name, err)
		}
		fields := make(map[string]any, len(cols))
		for i, col := range cols {
			v := normalizeValue(*dest[i+1].(*any))
			if v != nil {
				fields[col] = v
			}
		}
		out[id] = fields
	}
	return out, rows.Err()
}
