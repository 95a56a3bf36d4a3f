package budget

import (
	"fmt"
	"time"
)

// Action is the kind of local mutation a pending change records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	}
	return "", fmt.Errorf("invalid change action: %q", s)
}

// PendingChange is one entry in the local append-only change log. Every
// local mutation to a syncable table records exactly one of these, in the
// same transaction as the mutation itself. The push phase replays unsynced
// entries oldest-first and flips Synced; entries are never rewritten.
type PendingChange struct {
	ID        int64
	TableName string
	RowID     string
	Action    Action
	// Payload is a snapshot of the row's field values after the mutation,
	// id excluded. Nil for deletes: the push phase writes only the
	// tombstone marker.
	Payload   map[string]any
	CreatedAt time.Time
	Synced    bool
}
