package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestFrequency_Next tests schedule advancement for each frequency.
func TestFrequency_Next(t *testing.T) {
	from := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyDaily, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		{FrequencyWeekly, time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)},
		// AddDate normalizes Jan 31 + 1 month to Mar 3.
		{FrequencyMonthly, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			if got := tt.freq.Next(from); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", from, got, tt.want)
			}
		})
	}
}

// TestDue tests due detection, including soft-deleted templates.
func TestDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecurringTransaction("", KindExpense, decimal.New(10, 0), "rent",
		FrequencyMonthly, now.Add(-time.Hour))

	if !r.Due(now) {
		t.Error("template with past NextRunAt is not due")
	}

	r.NextRunAt = now.Add(time.Hour)
	if r.Due(now) {
		t.Error("template with future NextRunAt is due")
	}

	r.NextRunAt = now.Add(-time.Hour)
	r.MarkDeleted()
	if r.Due(now) {
		t.Error("soft-deleted template is due")
	}
}

// TestMaterialize tests that materialization produces a transaction for
// the due date and advances the schedule.
func TestMaterialize(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecurringTransaction("cat-1", KindExpense, decimal.RequireFromString("42.50"),
		"subscription", FrequencyMonthly, due)
	beforeUpdate := r.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	tx := r.Materialize()

	if tx.CategoryID != "cat-1" || tx.Kind != KindExpense || tx.Note != "subscription" {
		t.Errorf("materialized transaction carries wrong fields: %+v", tx)
	}
	if !tx.Amount.Equal(r.Amount) {
		t.Errorf("amount = %s, want %s", tx.Amount, r.Amount)
	}
	if !tx.OccurredAt.Equal(due) {
		t.Errorf("OccurredAt = %v, want the due date %v", tx.OccurredAt, due)
	}
	if !r.NextRunAt.Equal(due.AddDate(0, 1, 0)) {
		t.Errorf("NextRunAt = %v, want %v", r.NextRunAt, due.AddDate(0, 1, 0))
	}
	if !r.UpdatedAt.After(beforeUpdate) {
		t.Error("Materialize() did not touch the template")
	}
	if tx.ID == r.ID {
		t.Error("materialized transaction shares the template's ID")
	}
}

// TestRecurringFromFields_RoundTrip tests the field-map round trip.
func TestRecurringFromFields_RoundTrip(t *testing.T) {
	r := NewRecurringTransaction("cat-2", KindIncome, decimal.RequireFromString("1500"),
		"salary top-up", FrequencyWeekly, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	got, err := RecurringFromFields(r.ID, r.Fields())
	if err != nil {
		t.Fatalf("RecurringFromFields() failed: %v", err)
	}
	if got.CategoryID != r.CategoryID || got.Kind != r.Kind ||
		got.Note != r.Note || got.Frequency != r.Frequency {
		t.Errorf("round trip mismatch: %+v vs %+v", got, r)
	}
	if !got.Amount.Equal(r.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, r.Amount)
	}
	if !got.NextRunAt.Equal(r.NextRunAt) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, r.NextRunAt)
	}
}

// TestRecurringValidate tests rejection of malformed templates.
func TestRecurringValidate(t *testing.T) {
	valid := NewRecurringTransaction("", KindExpense, decimal.New(5, 0), "",
		FrequencyDaily, time.Now())
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	bad := *valid
	bad.Frequency = "fortnightly"
	if err := bad.Validate(); err == nil {
		t.Error("accepted unknown frequency")
	}

	bad = *valid
	bad.Amount = decimal.New(-1, 0)
	if err := bad.Validate(); err == nil {
		t.Error("accepted negative amount")
	}
}
