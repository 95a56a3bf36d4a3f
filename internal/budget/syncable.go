// Package budget defines the domain model for centavo: the syncable row
// types (categories, transactions, recurring transactions, salary, badges,
// app metadata), the closed set of table descriptors the sync engine
// iterates over, and the pending-change log entries recorded by the local
// write path.
package budget

import (
	"time"

	"github.com/google/uuid"
)

// Syncable carries the common fields for rows that participate in
// synchronization. Embed it in any row type that is mirrored to the
// remote collection store.
type Syncable struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewSyncable returns a Syncable with a fresh UUID and both timestamps
// set to now.
func NewSyncable() Syncable {
	now := time.Now().UTC()
	return Syncable{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying row changes.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// MarkDeleted soft-deletes the row by setting DeletedAt.
// UpdatedAt is updated as well so the deletion wins delta comparisons.
func (s *Syncable) MarkDeleted() {
	now := time.Now().UTC()
	s.DeletedAt = &now
	s.UpdatedAt = now
}

// IsDeleted reports whether the row has been soft-deleted.
func (s *Syncable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// syncFields returns the common sync columns as document fields.
func (s *Syncable) syncFields() map[string]any {
	f := map[string]any{
		"created_at": FormatTime(s.CreatedAt),
		"updated_at": FormatTime(s.UpdatedAt),
	}
	if s.DeletedAt != nil {
		f["deleted_at"] = FormatTime(*s.DeletedAt)
	}
	return f
}

// syncableFromFields reconstructs the common sync columns from document
// fields. Missing timestamps are left at their zero value.
func syncableFromFields(id string, f map[string]any) Syncable {
	s := Syncable{ID: id}
	if t, ok := TimeField(f, "created_at"); ok {
		s.CreatedAt = t
	}
	if t, ok := TimeField(f, "updated_at"); ok {
		s.UpdatedAt = t
	}
	if t, ok := TimeField(f, "deleted_at"); ok {
		s.DeletedAt = &t
	}
	return s
}
