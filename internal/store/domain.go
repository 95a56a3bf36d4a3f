package store

import (
	"context"
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
)

// Typed domain write path. Every method here is the change recorder for
// its table: the row mutation and the pending_changes append commit in one
// transaction, or neither does.

func (s *Store) createRow(ctx context.Context, table budget.Table, id string, fields map[string]any) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := insertRow(ctx, tx.tx, table, id, fields); err != nil {
			return err
		}
		return appendChange(ctx, tx.tx, table.Name, id, budget.ActionCreate, fields)
	})
}

func (s *Store) updateRowRecorded(ctx context.Context, table budget.Table, id string, fields map[string]any) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := updateRow(ctx, tx.tx, table, id, fields); err != nil {
			return err
		}
		return appendChange(ctx, tx.tx, table.Name, id, budget.ActionUpdate, fields)
	})
}

func (s *Store) deleteRowRecorded(ctx context.Context, table budget.Table, id string) error {
	now := time.Now().UTC()
	return s.WithTx(ctx, func(tx *Tx) error {
		if err := softDeleteRow(ctx, tx.tx, table, id, now, now); err != nil {
			return err
		}
		return appendChange(ctx, tx.tx, table.Name, id, budget.ActionDelete, nil)
	})
}

// CreateCategory inserts a category and records the change.
func (s *Store) CreateCategory(ctx context.Context, c *budget.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	return s.createRow(ctx, budget.Categories, c.ID, c.Fields())
}

// UpdateCategory overwrites a category and records the change. The caller
// is expected to have called Touch.
func (s *Store) UpdateCategory(ctx context.Context, c *budget.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	return s.updateRowRecorded(ctx, budget.Categories, c.ID, c.Fields())
}

// DeleteCategory soft-deletes a category and records the change.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteRowRecorded(ctx, budget.Categories, id)
}

// GetCategory fetches one category, tombstones included.
func (s *Store) GetCategory(ctx context.Context, id string) (*budget.Category, error) {
	fields, ok, err := s.GetRow(ctx, budget.Categories, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return budget.CategoryFromFields(id, fields)
}

// ListCategories returns all live (not soft-deleted) categories.
func (s *Store) ListCategories(ctx context.Context) ([]*budget.Category, error) {
	rows, err := s.ListRows(ctx, budget.Categories)
	if err != nil {
		return nil, err
	}
	var out []*budget.Category
	for id, fields := range rows {
		if _, deleted := budget.DeletedAt(fields); deleted {
			continue
		}
		c, err := budget.CategoryFromFields(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CreateTransaction inserts a transaction and records the change.
func (s *Store) CreateTransaction(ctx context.Context, t *budget.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	return s.createRow(ctx, budget.Transactions, t.ID, t.Fields())
}

// UpdateTransaction overwrites a transaction and records the change.
func (s *Store) UpdateTransaction(ctx context.Context, t *budget.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	return s.updateRowRecorded(ctx, budget.Transactions, t.ID, t.Fields())
}

// DeleteTransaction soft-deletes a transaction and records the change.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.deleteRowRecorded(ctx, budget.Transactions, id)
}

// GetTransaction fetches one transaction, tombstones included.
func (s *Store) GetTransaction(ctx context.Context, id string) (*budget.Transaction, error) {
	fields, ok, err := s.GetRow(ctx, budget.Transactions, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return budget.TransactionFromFields(id, fields)
}

// ListTransactions returns all live transactions.
func (s *Store) ListTransactions(ctx context.Context) ([]*budget.Transaction, error) {
	rows, err := s.ListRows(ctx, budget.Transactions)
	if err != nil {
		return nil, err
	}
	var out []*budget.Transaction
	for id, fields := range rows {
		if _, deleted := budget.DeletedAt(fields); deleted {
			continue
		}
		t, err := budget.TransactionFromFields(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateRecurring inserts a recurring transaction and records the change.
func (s *Store) CreateRecurring(ctx context.Context, r *budget.RecurringTransaction) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid recurring transaction: %w", err)
	}
	return s.createRow(ctx, budget.RecurringTransactions, r.ID, r.Fields())
}

// UpdateRecurring overwrites a recurring transaction and records the change.
func (s *Store) UpdateRecurring(ctx context.Context, r *budget.RecurringTransaction) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid recurring transaction: %w", err)
	}
	return s.updateRowRecorded(ctx, budget.RecurringTransactions, r.ID, r.Fields())
}

// DeleteRecurring soft-deletes a recurring transaction and records the change.
func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	return s.deleteRowRecorded(ctx, budget.RecurringTransactions, id)
}

// ListRecurring returns all live recurring transactions.
func (s *Store) ListRecurring(ctx context.Context) ([]*budget.RecurringTransaction, error) {
	rows, err := s.ListRows(ctx, budget.RecurringTransactions)
	if err != nil {
		return nil, err
	}
	var out []*budget.RecurringTransaction
	for id, fields := range rows {
		if _, deleted := budget.DeletedAt(fields); deleted {
			continue
		}
		r, err := budget.RecurringFromFields(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RunDueRecurring materializes every recurring transaction due at now
// into a regular transaction. Each materialization commits the new
// transaction, the advanced template, and both change-log entries in one
// transaction. Returns the created transactions.
func (s *Store) RunDueRecurring(ctx context.Context, now time.Time) ([]*budget.Transaction, error) {
	templates, err := s.ListRecurring(ctx)
	if err != nil {
		return nil, err
	}

	var created []*budget.Transaction
	for _, r := range templates {
		for r.Due(now) {
			tx := r.Materialize()
			err := s.WithTx(ctx, func(stx *Tx) error {
				if err := insertRow(ctx, stx.tx, budget.Transactions, tx.ID, tx.Fields()); err != nil {
					return err
				}
				if err := appendChange(ctx, stx.tx, budget.Transactions.Name, tx.ID, budget.ActionCreate, tx.Fields()); err != nil {
					return err
				}
				if err := updateRow(ctx, stx.tx, budget.RecurringTransactions, r.ID, r.Fields()); err != nil {
					return err
				}
				return appendChange(ctx, stx.tx, budget.RecurringTransactions.Name, r.ID, budget.ActionUpdate, r.Fields())
			})
			if err != nil {
				return created, fmt.Errorf("failed to run recurring %s: %w", r.ID, err)
			}
			created = append(created, tx)
		}
	}
	return created, nil
}

// CreateSalary inserts a salary entry and records the change.
func (s *Store) CreateSalary(ctx context.Context, e *budget.SalaryEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid salary: %w", err)
	}
	return s.createRow(ctx, budget.Salary, e.ID, e.Fields())
}

// UpdateSalary overwrites a salary entry and records the change.
func (s *Store) UpdateSalary(ctx context.Context, e *budget.SalaryEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid salary: %w", err)
	}
	return s.updateRowRecorded(ctx, budget.Salary, e.ID, e.Fields())
}

// CreateBadge inserts a badge and records the change.
func (s *Store) CreateBadge(ctx context.Context, b *budget.Badge) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid badge: %w", err)
	}
	return s.createRow(ctx, budget.Badges, b.ID, b.Fields())
}

// SetMeta creates or updates an app-metadata entry by key, recording the
// change either way.
func (s *Store) SetMeta(ctx context.Context, key, value string) (*budget.MetaEntry, error) {
	existing, err := s.GetMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		m := budget.NewMetaEntry(key, value)
		if err := s.createRow(ctx, budget.AppMeta, m.ID, m.Fields()); err != nil {
			return nil, err
		}
		return m, nil
	}
	existing.Value = value
	existing.Touch()
	if err := s.updateRowRecorded(ctx, budget.AppMeta, existing.ID, existing.Fields()); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetMeta fetches a live app-metadata entry by key, or nil.
func (s *Store) GetMeta(ctx context.Context, key string) (*budget.MetaEntry, error) {
	rows, err := s.ListRows(ctx, budget.AppMeta)
	if err != nil {
		return nil, err
	}
	for id, fields := range rows {
		if _, deleted := budget.DeletedAt(fields); deleted {
			continue
		}
		if k, _ := budget.StringField(fields, "key"); k == key {
			return budget.MetaFromFields(id, fields)
		}
	}
	return nil, nil
}
