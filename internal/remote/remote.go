// Package remote defines the contract the sync engine holds against the
// per-user remote collection store, and an HTTP client implementing it
// against a centavo sync backend.
package remote

import (
	"context"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
)

// Document is one remote document: the mirror of a local syncable row,
// keyed by the row's id within its user/table collection.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// UpdatedAt returns the document's updated_at, or the epoch when missing.
func (d Document) UpdatedAt() time.Time {
	return budget.UpdatedAt(d.Fields)
}

// DeletedAt returns the document's tombstone timestamp, if set.
func (d Document) DeletedAt() (time.Time, bool) {
	return budget.DeletedAt(d.Fields)
}

// Deleted reports whether the document is a tombstone.
func (d Document) Deleted() bool {
	_, ok := d.DeletedAt()
	return ok
}

// ChangedAt is the timestamp delta queries and LWW comparisons use: the
// tombstone timestamp for deleted documents, updated_at otherwise.
func (d Document) ChangedAt() time.Time {
	if at, ok := d.DeletedAt(); ok && at.After(d.UpdatedAt()) {
		return at
	}
	return d.UpdatedAt()
}

// Store is the remote collection store the sync engine talks to.
type Store interface {
	// UserID returns the authenticated user identity, or the empty
	// string when none is available. Sync is a no-op without one.
	UserID() string

	// MergeDocument merge-writes fields into the document at
	// users/{userID}/{table}/{docID}. Fields absent from the map are
	// left untouched; the document is created when missing.
	MergeDocument(ctx context.Context, userID string, table budget.Table, docID string, fields map[string]any) error

	// DocumentsUpdatedSince returns every document in the user's table
	// collection changed strictly after since. Tombstones count as
	// changed at their deleted_at.
	DocumentsUpdatedSince(ctx context.Context, userID string, table budget.Table, since time.Time) ([]Document, error)
}
