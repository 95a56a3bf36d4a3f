package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/shopspring/decimal"
)

// testStore opens an initialized store in a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return s
}

// TestOpen_Success tests database creation.
func TestOpen_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

// TestInitSchema_CreatesAllTables tests that every syncable table plus the
// sync bookkeeping tables exist.
func TestInitSchema_CreatesAllTables(t *testing.T) {
	s := testStore(t)

	names := []string{"pending_changes", "sync_state"}
	for _, table := range budget.AllTables() {
		names = append(names, table.Name)
	}

	for _, name := range names {
		var count int
		err := s.conn.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			name).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query sqlite_master for %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", name)
		}
	}
}

// TestInitSchema_Idempotent tests that schema initialization is idempotent.
func TestInitSchema_Idempotent(t *testing.T) {
	s := testStore(t)
	if err := s.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}
}

// TestCreateCategory_RecordsChange tests that the typed write path commits
// the row and exactly one change-log entry together.
func TestCreateCategory_RecordsChange(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("Groceries", "cart", "#0f0", decimal.New(500, 0))
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}

	got, err := s.GetCategory(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCategory() failed: %v", err)
	}
	if got == nil || got.Name != "Groceries" {
		t.Fatalf("GetCategory() = %+v, want Groceries", got)
	}

	changes, err := s.PendingChanges(ctx)
	if err != nil {
		t.Fatalf("PendingChanges() failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d pending changes, want 1", len(changes))
	}
	ch := changes[0]
	if ch.TableName != budget.Categories.Name || ch.RowID != c.ID || ch.Action != budget.ActionCreate {
		t.Errorf("change = %+v, want create for categories/%s", ch, c.ID)
	}
	if name, _ := budget.StringField(ch.Payload, "name"); name != "Groceries" {
		t.Errorf("payload name = %q, want Groceries", name)
	}
}

// TestCreateCategory_InvalidRollsBack tests that validation failures leave
// neither row nor change behind.
func TestCreateCategory_InvalidRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("", "", "", decimal.Zero)
	if err := s.CreateCategory(ctx, c); err == nil {
		t.Fatal("CreateCategory() accepted a nameless category")
	}

	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d pending changes after rejected create, want 0", n)
	}
}

// TestDeleteCategory_Tombstone tests that deletion is soft: the row stays,
// marked deleted, and the recorded change carries no payload.
func TestDeleteCategory_Tombstone(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("Travel", "", "", decimal.Zero)
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	if err := s.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCategory() failed: %v", err)
	}

	fields, ok, err := s.GetRow(ctx, budget.Categories, c.ID)
	if err != nil || !ok {
		t.Fatalf("GetRow() = (%v, %v), want tombstone present", ok, err)
	}
	if _, deleted := budget.DeletedAt(fields); !deleted {
		t.Error("deleted row carries no deleted_at")
	}

	live, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() failed: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("ListCategories() returned %d tombstoned rows", len(live))
	}

	changes, err := s.PendingChanges(ctx)
	if err != nil {
		t.Fatalf("PendingChanges() failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d pending changes, want create+delete", len(changes))
	}
	del := changes[1]
	if del.Action != budget.ActionDelete {
		t.Errorf("second change action = %q, want delete", del.Action)
	}
	if del.Payload != nil {
		t.Errorf("delete change carries payload %v, want nil", del.Payload)
	}
}

// TestPendingChanges_ReplayOrder tests oldest-first ordering with the
// sequence id breaking created_at ties.
func TestPendingChanges_ReplayOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("Bills", "", "", decimal.Zero)
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		c.Name = fmt.Sprintf("Bills v%d", i)
		c.Touch()
		if err := s.UpdateCategory(ctx, c); err != nil {
			t.Fatalf("UpdateCategory() failed: %v", err)
		}
	}

	changes, err := s.PendingChanges(ctx)
	if err != nil {
		t.Fatalf("PendingChanges() failed: %v", err)
	}
	if len(changes) != 4 {
		t.Fatalf("got %d changes, want 4", len(changes))
	}
	for i := 1; i < len(changes); i++ {
		if changes[i].ID <= changes[i-1].ID {
			t.Errorf("changes out of order: id %d after %d", changes[i].ID, changes[i-1].ID)
		}
		if changes[i].CreatedAt.Before(changes[i-1].CreatedAt) {
			t.Errorf("changes out of order: %v after %v", changes[i].CreatedAt, changes[i-1].CreatedAt)
		}
	}
	if changes[0].Action != budget.ActionCreate {
		t.Errorf("first change = %q, want create", changes[0].Action)
	}
}

// TestMarkChangeSynced_RollsBackWithTx tests that synced flags flipped in
// an aborted transaction stay unflipped.
func TestMarkChangeSynced_RollsBackWithTx(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("Food", "", "", decimal.Zero)
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}

	boom := errors.New("remote unavailable")
	err := s.WithTx(ctx, func(tx *Tx) error {
		changes, err := tx.PendingChanges(ctx)
		if err != nil {
			return err
		}
		if err := tx.MarkChangeSynced(ctx, changes[0].ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() = %v, want the injected error", err)
	}

	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("UnsyncedCount() = %d after rollback, want 1", n)
	}
}

// TestGenericRowMethods_RecordNothing tests that the pull-phase write path
// never touches the change log.
func TestGenericRowMethods_RecordNothing(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	fields := map[string]any{
		"name":       "Remote Category",
		"created_at": budget.FormatTime(now),
		"updated_at": budget.FormatTime(now),
	}
	if err := s.InsertRowFields(ctx, budget.Categories, "remote-1", fields); err != nil {
		t.Fatalf("InsertRowFields() failed: %v", err)
	}

	fields["name"] = "Renamed Remotely"
	if err := s.UpdateRowFields(ctx, budget.Categories, "remote-1", fields); err != nil {
		t.Fatalf("UpdateRowFields() failed: %v", err)
	}
	if err := s.SoftDeleteRow(ctx, budget.Categories, "remote-1", now, now); err != nil {
		t.Fatalf("SoftDeleteRow() failed: %v", err)
	}

	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("generic row methods recorded %d changes, want 0", n)
	}
}

// TestUpdateRowFields_MissingRow tests that updating an absent row is an
// error rather than a silent no-op.
func TestUpdateRowFields_MissingRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.UpdateRowFields(ctx, budget.Categories, "no-such-row", map[string]any{
		"name":       "x",
		"created_at": budget.FormatTime(time.Now()),
		"updated_at": budget.FormatTime(time.Now()),
	})
	if err == nil {
		t.Error("UpdateRowFields() succeeded on a missing row")
	}
}

// TestPruneSyncedChanges tests that pruning removes only synced entries
// older than the cutoff.
func TestPruneSyncedChanges(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := budget.NewCategory("Old", "", "", decimal.Zero)
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	c.Name = "Old v2"
	c.Touch()
	if err := s.UpdateCategory(ctx, c); err != nil {
		t.Fatalf("UpdateCategory() failed: %v", err)
	}

	// Mark only the first change synced.
	err := s.WithTx(ctx, func(tx *Tx) error {
		changes, err := tx.PendingChanges(ctx)
		if err != nil {
			return err
		}
		return tx.MarkChangeSynced(ctx, changes[0].ID)
	})
	if err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}

	// Cutoff in the future: the synced entry qualifies, the unsynced one
	// must survive whatever its age.
	pruned, err := s.PruneSyncedChanges(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneSyncedChanges() failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d entries, want 1", pruned)
	}

	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("UnsyncedCount() = %d, want the unsynced entry kept", n)
	}

	// A cutoff in the past prunes nothing further.
	pruned, err = s.PruneSyncedChanges(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneSyncedChanges() failed: %v", err)
	}
	if pruned != 0 {
		t.Errorf("second prune removed %d entries, want 0", pruned)
	}
}

// TestLastSyncedAt tests the high-water mark lifecycle.
func TestLastSyncedAt(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, ok, err := s.LastSyncedAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncedAt() failed: %v", err)
	}
	if ok {
		t.Fatal("LastSyncedAt() reported a mark before any sync")
	}

	mark := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	if err := s.SetLastSyncedAt(ctx, mark); err != nil {
		t.Fatalf("SetLastSyncedAt() failed: %v", err)
	}

	got, ok, err := s.LastSyncedAt(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSyncedAt() = (%v, %v) after set", ok, err)
	}
	if !got.Equal(mark) {
		t.Errorf("mark = %v, want %v", got, mark)
	}

	// Advancing overwrites the single record.
	later := mark.Add(time.Hour)
	if err := s.SetLastSyncedAt(ctx, later); err != nil {
		t.Fatalf("second SetLastSyncedAt() failed: %v", err)
	}
	got, _, _ = s.LastSyncedAt(ctx)
	if !got.Equal(later) {
		t.Errorf("mark = %v after advance, want %v", got, later)
	}
}

// TestRunDueRecurring tests catch-up materialization: a template overdue by
// several periods produces one transaction per missed period.
func TestRunDueRecurring(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	r := budget.NewRecurringTransaction("", budget.KindExpense,
		decimal.RequireFromString("9.99"), "streaming",
		budget.FrequencyDaily, now.AddDate(0, 0, -3))
	if err := s.CreateRecurring(ctx, r); err != nil {
		t.Fatalf("CreateRecurring() failed: %v", err)
	}

	created, err := s.RunDueRecurring(ctx, now)
	if err != nil {
		t.Fatalf("RunDueRecurring() failed: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("materialized %d transactions, want 4 (three missed days plus today)", len(created))
	}

	txs, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() failed: %v", err)
	}
	if len(txs) != 4 {
		t.Errorf("store holds %d transactions, want 4", len(txs))
	}

	templates, err := s.ListRecurring(ctx)
	if err != nil {
		t.Fatalf("ListRecurring() failed: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("got %d templates, want 1", len(templates))
	}
	if !templates[0].NextRunAt.After(now) {
		t.Errorf("NextRunAt = %v, want advanced past now", templates[0].NextRunAt)
	}

	// Each materialization records a create and a template update.
	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 1+4*2 {
		t.Errorf("UnsyncedCount() = %d, want 9 (template create plus 4 runs of create+update)", n)
	}

	// Nothing further is due.
	again, err := s.RunDueRecurring(ctx, now)
	if err != nil {
		t.Fatalf("second RunDueRecurring() failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second run materialized %d transactions, want 0", len(again))
	}
}

// TestSetMeta_Upsert tests that SetMeta creates then updates by key.
func TestSetMeta_Upsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.SetMeta(ctx, "currency", "EUR")
	if err != nil {
		t.Fatalf("SetMeta() failed: %v", err)
	}

	second, err := s.SetMeta(ctx, "currency", "USD")
	if err != nil {
		t.Fatalf("second SetMeta() failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("SetMeta() created a new row (%s) instead of updating %s", second.ID, first.ID)
	}

	got, err := s.GetMeta(ctx, "currency")
	if err != nil {
		t.Fatalf("GetMeta() failed: %v", err)
	}
	if got == nil || got.Value != "USD" {
		t.Errorf("GetMeta() = %+v, want value USD", got)
	}
}

// TestSalaryAndBadges tests the remaining typed write paths.
func TestSalaryAndBadges(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sal := budget.NewSalaryEntry(decimal.RequireFromString("3200.00"), 25)
	if err := s.CreateSalary(ctx, sal); err != nil {
		t.Fatalf("CreateSalary() failed: %v", err)
	}
	sal.Amount = decimal.RequireFromString("3400.00")
	sal.Touch()
	if err := s.UpdateSalary(ctx, sal); err != nil {
		t.Fatalf("UpdateSalary() failed: %v", err)
	}

	b := budget.NewBadge("first-week", time.Now().UTC(), 7)
	if err := s.CreateBadge(ctx, b); err != nil {
		t.Fatalf("CreateBadge() failed: %v", err)
	}

	fields, ok, err := s.GetRow(ctx, budget.Salary, sal.ID)
	if err != nil || !ok {
		t.Fatalf("GetRow(salary) = (%v, %v)", ok, err)
	}
	got, err := budget.SalaryFromFields(sal.ID, fields)
	if err != nil {
		t.Fatalf("SalaryFromFields() failed: %v", err)
	}
	if got.PayDay != 25 || !got.Amount.Equal(sal.Amount) {
		t.Errorf("salary = %+v, want pay day 25 amount 3400.00", got)
	}

	n, err := s.UnsyncedCount(ctx)
	if err != nil {
		t.Fatalf("UnsyncedCount() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("UnsyncedCount() = %d, want 3", n)
	}
}
