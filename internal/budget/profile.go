package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SalaryEntry is the user's salary configuration: amount and the day of
// the month it lands.
type SalaryEntry struct {
	Syncable
	Amount decimal.Decimal
	PayDay int
}

// NewSalaryEntry creates a salary entry with fresh sync metadata.
func NewSalaryEntry(amount decimal.Decimal, payDay int) *SalaryEntry {
	return &SalaryEntry{Syncable: NewSyncable(), Amount: amount, PayDay: payDay}
}

// Validate checks required fields.
func (s *SalaryEntry) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("salary id is required")
	}
	if s.PayDay < 1 || s.PayDay > 31 {
		return fmt.Errorf("pay day must be between 1 and 31, got %d", s.PayDay)
	}
	if s.Amount.IsNegative() {
		return fmt.Errorf("salary amount cannot be negative")
	}
	return nil
}

// Fields returns the salary entry as a flat document, id excluded.
func (s *SalaryEntry) Fields() map[string]any {
	f := s.syncFields()
	f["amount"] = s.Amount.String()
	f["pay_day"] = s.PayDay
	return f
}

// SalaryFromFields reconstructs a salary entry from a document.
func SalaryFromFields(id string, f map[string]any) (*SalaryEntry, error) {
	s := &SalaryEntry{Syncable: syncableFromFields(id, f)}
	if d, ok := DecimalField(f, "amount"); ok {
		s.Amount = d
	}
	s.PayDay, _ = IntField(f, "pay_day")
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Badge records an earned gamification badge and the streak it capped.
// Badge criteria evaluation lives in the application layer; the core only
// stores and syncs what was earned.
type Badge struct {
	Syncable
	Code     string
	EarnedAt time.Time
	Streak   int
}

// NewBadge creates a badge with fresh sync metadata.
func NewBadge(code string, earnedAt time.Time, streak int) *Badge {
	return &Badge{Syncable: NewSyncable(), Code: code, EarnedAt: earnedAt.UTC(), Streak: streak}
}

// Validate checks required fields.
func (b *Badge) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("badge id is required")
	}
	if b.Code == "" {
		return fmt.Errorf("badge code is required")
	}
	return nil
}

// Fields returns the badge as a flat document, id excluded.
func (b *Badge) Fields() map[string]any {
	f := b.syncFields()
	f["code"] = b.Code
	f["earned_at"] = FormatTime(b.EarnedAt)
	f["streak"] = b.Streak
	return f
}

// BadgeFromFields reconstructs a badge from a document.
func BadgeFromFields(id string, f map[string]any) (*Badge, error) {
	b := &Badge{Syncable: syncableFromFields(id, f)}
	b.Code, _ = StringField(f, "code")
	if at, ok := TimeField(f, "earned_at"); ok {
		b.EarnedAt = at
	}
	b.Streak, _ = IntField(f, "streak")
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// MetaEntry is a free-form application key/value pair (onboarding state,
// selected currency, and the like).
type MetaEntry struct {
	Syncable
	Key   string
	Value string
}

// NewMetaEntry creates a metadata entry with fresh sync metadata.
func NewMetaEntry(key, value string) *MetaEntry {
	return &MetaEntry{Syncable: NewSyncable(), Key: key, Value: value}
}

// Validate checks required fields.
func (m *MetaEntry) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("meta id is required")
	}
	if m.Key == "" {
		return fmt.Errorf("meta key is required")
	}
	return nil
}

// Fields returns the metadata entry as a flat document, id excluded.
func (m *MetaEntry) Fields() map[string]any {
	f := m.syncFields()
	f["key"] = m.Key
	f["value"] = m.Value
	return f
}

// MetaFromFields reconstructs a metadata entry from a document.
func MetaFromFields(id string, f map[string]any) (*MetaEntry, error) {
	m := &MetaEntry{Syncable: syncableFromFields(id, f)}
	m.Key, _ = StringField(f, "key")
	m.Value, _ = StringField(f, "value")
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
