package server

import (
	"sort"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/centavo-app/centavo/internal/remote"
)

// Collections is the backend's document store: per-user, per-table
// document collections with merge-write and changed-after queries.
//
// Merge semantics are unconditional, like a document database's
// set-with-merge: the client is responsible for conflict resolution at
// pull time, the server just stores whatever the latest push wrote.
// In-memory only; the serve command is for development and testing, and
// the sync protocol is what matters, not the backing storage.
type Collections struct {
	mu sync.RWMutex
	// users -> table -> doc id -> fields
	data map[string]map[string]map[string]map[string]any
}

// NewCollections creates an empty document store.
func NewCollections() *Collections {
	return &Collections{
		data: make(map[string]map[string]map[string]map[string]any),
	}
}

// Merge merge-writes fields into the addressed document, creating it when
// missing. Fields absent from the patch are left untouched.
func (c *Collections) Merge(userID string, table budget.Table, docID string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tables, ok := c.data[userID]
	if !ok {
		tables = make(map[string]map[string]map[string]any)
		c.data[userID] = tables
	}
	docs, ok := tables[table.Name]
	if !ok {
		docs = make(map[string]map[string]any)
		tables[table.Name] = docs
	}
	doc, ok := docs[docID]
	if !ok {
		doc = make(map[string]any)
		docs[docID] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
}

// Get returns a copy of one document, or nil when absent.
func (c *Collections) Get(userID string, table budget.Table, docID string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := c.data[userID][table.Name][docID]
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// ChangedAfter returns every document in the user's table collection
// changed strictly after since, ordered by id for determinism. A
// tombstone counts as changed at its deleted_at, so deletions propagate
// even though the delete merge does not rewrite updated_at.
func (c *Collections) ChangedAfter(userID string, table budget.Table, since time.Time) []remote.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []remote.Document
	for id, doc := range c.data[userID][table.Name] {
		d := remote.Document{ID: id, Fields: copyFields(doc)}
		if d.ChangedAt().After(since) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyFields(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
