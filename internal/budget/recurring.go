package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring transaction fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("invalid frequency: %q", s)
}

// Next returns the fire time following from, for this frequency.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// RecurringTransaction is a template that materializes into regular
// transactions each time its schedule comes due.
type RecurringTransaction struct {
	Syncable
	CategoryID string
	Kind       Kind
	Amount     decimal.Decimal
	Note       string
	Frequency  Frequency
	NextRunAt  time.Time
}

// NewRecurringTransaction creates a recurring transaction with fresh sync
// metadata, first firing at nextRun.
func NewRecurringTransaction(categoryID string, kind Kind, amount decimal.Decimal, note string, freq Frequency, nextRun time.Time) *RecurringTransaction {
	return &RecurringTransaction{
		Syncable:   NewSyncable(),
		CategoryID: categoryID,
		Kind:       kind,
		Amount:     amount,
		Note:       note,
		Frequency:  freq,
		NextRunAt:  nextRun.UTC(),
	}
}

// Validate checks required fields.
func (r *RecurringTransaction) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("recurring transaction id is required")
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("recurring amount cannot be negative")
	}
	if r.NextRunAt.IsZero() {
		return fmt.Errorf("recurring next_run_at is required")
	}
	return nil
}

// Due reports whether the template should fire at the given time.
func (r *RecurringTransaction) Due(now time.Time) bool {
	return !r.IsDeleted() && !r.NextRunAt.After(now)
}

// Materialize produces the transaction for the current due date and
// advances NextRunAt to the following one.
func (r *RecurringTransaction) Materialize() *Transaction {
	tx := NewTransaction(r.CategoryID, r.Kind, r.Amount, r.Note, r.NextRunAt)
	r.NextRunAt = r.Frequency.Next(r.NextRunAt)
	r.Touch()
	return tx
}

// Fields returns the recurring transaction as a flat document, id excluded.
func (r *RecurringTransaction) Fields() map[string]any {
	f := r.syncFields()
	f["category_id"] = r.CategoryID
	f["kind"] = string(r.Kind)
	f["amount"] = r.Amount.String()
	f["note"] = r.Note
	f["frequency"] = string(r.Frequency)
	f["next_run_at"] = FormatTime(r.NextRunAt)
	return f
}

// RecurringFromFields reconstructs a recurring transaction from a document.
func RecurringFromFields(id string, f map[string]any) (*RecurringTransaction, error) {
	r := &RecurringTransaction{Syncable: syncableFromFields(id, f)}
	r.CategoryID, _ = StringField(f, "category_id")
	if s, ok := StringField(f, "kind"); ok {
		r.Kind = Kind(s)
	}
	if d, ok := DecimalField(f, "amount"); ok {
		r.Amount = d
	}
	r.Note, _ = StringField(f, "note")
	if s, ok := StringField(f, "frequency"); ok {
		r.Frequency = Frequency(s)
	}
	if at, ok := TimeField(f, "next_run_at"); ok {
		r.NextRunAt = at
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
