package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes money coming in from money going out.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExpense, KindIncome:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid transaction kind: %q", s)
}

// Transaction is a single income or expense entry.
type Transaction struct {
	Syncable
	CategoryID string
	Kind       Kind
	Amount     decimal.Decimal
	Note       string
	OccurredAt time.Time
}

// NewTransaction creates a transaction with fresh sync metadata.
func NewTransaction(categoryID string, kind Kind, amount decimal.Decimal, note string, occurredAt time.Time) *Transaction {
	return &Transaction{
		Syncable:   NewSyncable(),
		CategoryID: categoryID,
		Kind:       kind,
		Amount:     amount,
		Note:       note,
		OccurredAt: occurredAt.UTC(),
	}
}

// Validate checks required fields.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("transaction amount cannot be negative")
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("transaction occurred_at is required")
	}
	return nil
}

// Fields returns the transaction as a flat document, id excluded.
func (t *Transaction) Fields() map[string]any {
	f := t.syncFields()
	f["category_id"] = t.CategoryID
	f["kind"] = string(t.Kind)
	f["amount"] = t.Amount.String()
	f["note"] = t.Note
	f["occurred_at"] = FormatTime(t.OccurredAt)
	return f
}

// TransactionFromFields reconstructs a transaction from a document.
func TransactionFromFields(id string, f map[string]any) (*Transaction, error) {
	t := &Transaction{Syncable: syncableFromFields(id, f)}
	t.CategoryID, _ = StringField(f, "category_id")
	if s, ok := StringField(f, "kind"); ok {
		t.Kind = Kind(s)
	}
	if d, ok := DecimalField(f, "amount"); ok {
		t.Amount = d
	}
	t.Note, _ = StringField(f, "note")
	if at, ok := TimeField(f, "occurred_at"); ok {
		t.OccurredAt = at
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
