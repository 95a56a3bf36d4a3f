// Package syncer implements centavo's offline-first synchronization
// engine: a two-phase push/pull reconciliation between the local row store
// and the per-user remote collection store.
//
// Push drains the pending-change log in creation order, mirroring each
// local mutation into the remote store (soft-deleting remotely on local
// deletes). Pull fetches, per table, every remote document changed since
// the last successful sync and merges it locally under last-write-wins.
// The high-water mark advances only after both phases complete.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/centavo-app/centavo/internal/remote"
	"github.com/centavo-app/centavo/internal/store"
	"github.com/rs/zerolog"
)

// ErrSyncInProgress is returned when Sync is called while another sync on
// the same engine is still running. Concurrent syncs would race over the
// pending-change log and the high-water mark, so the engine is
// single-flight by construction.
var ErrSyncInProgress = errors.New("sync already in progress")

// EventSink receives sync lifecycle notifications. Implementations must
// not block; the engine calls them inline.
type EventSink interface {
	SyncCompleted(Result)
	SyncFailed(error)
}

// Engine orchestrates push/pull synchronization. Construct with New; both
// collaborators are injected explicitly so tests can substitute doubles.
type Engine struct {
	store  *store.Store
	remote remote.Store
	logger zerolog.Logger

	mu     sync.Mutex
	events EventSink
}

// New creates a sync engine over the given local store and remote store.
func New(st *store.Store, rs remote.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		remote: rs,
		logger: logger.With().Str("component", "syncer").Logger(),
	}
}

// SetEventSink attaches an optional sink for sync lifecycle events.
func (e *Engine) SetEventSink(sink EventSink) {
	e.events = sink
}

// Result summarizes one sync cycle.
type Result struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Pushed     int           `json:"pushed"`
	Pulled     int           `json:"pulled"`
	Skipped    int           `json:"skipped"`
	NoIdentity bool          `json:"no_identity,omitempty"`
}

// Sync performs one push+pull cycle.
//
// Safe to call repeatedly; idempotent with respect to final state. When no
// authenticated identity is available it completes as a logged no-op, not
// an error. On failure during either phase the error is returned and the
// high-water mark is left unchanged, so a retry re-covers the same window.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	result := &Result{StartedAt: time.Now()}
	finish := func() {
		result.FinishedAt = time.Now()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
	}

	userID := e.remote.UserID()
	if userID == "" {
		e.logger.Info().Msg("no authenticated user, skipping sync")
		result.NoIdentity = true
		finish()
		return result, nil
	}

	lastSynced, hasSynced, err := e.store.LastSyncedAt(ctx)
	if err != nil {
		e.fail(err)
		return nil, err
	}

	if err := e.push(ctx, userID, result); err != nil {
		err = fmt.Errorf("push failed: %w", err)
		e.fail(err)
		return nil, err
	}

	if err := e.pull(ctx, userID, lastSynced, hasSynced, result); err != nil {
		err = fmt.Errorf("pull failed: %w", err)
		e.fail(err)
		return nil, err
	}

	// Captured once, after both phases, so changes made mid-sync on other
	// devices still fall inside the next window.
	if err := e.store.SetLastSyncedAt(ctx, time.Now()); err != nil {
		e.fail(err)
		return nil, err
	}

	finish()
	e.logger.Info().
		Int("pushed", result.Pushed).
		Int("pulled", result.Pulled).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("sync complete")

	if e.events != nil {
		e.events.SyncCompleted(*result)
	}
	return result, nil
}

func (e *Engine) fail(err error) {
	e.logger.Error().Err(err).Msg("sync failed")
	if e.events != nil {
		e.events.SyncFailed(err)
	}
}

// push replays the unsynced pending-change log against the remote store,
// oldest first. The log read, every synced-flag flip, and the remote
// writes all share one local transaction: a failure anywhere rolls the
// flags back so the next call retries the full batch.
func (e *Engine) push(ctx context.Context, userID string, result *Result) error {
	return e.store.WithTx(ctx, func(tx *store.Tx) error {
		changes, err := tx.PendingChanges(ctx)
		if err != nil {
			return err
		}

		for _, change := range changes {
			table, err := budget.TableByName(change.TableName)
			if err != nil {
				return fmt.Errorf("pending change %d: %w", change.ID, err)
			}

			if err := e.pushChange(ctx, userID, table, change); err != nil {
				return err
			}

			if err := tx.MarkChangeSynced(ctx, change.ID); err != nil {
				return err
			}
			result.Pushed++
		}
		return nil
	})
}

// pushChange mirrors one pending change into the remote store.
func (e *Engine) pushChange(ctx context.Context, userID string, table budget.Table, change budget.PendingChange) error {
	switch change.Action {
	case budget.ActionCreate, budget.ActionUpdate:
		fields := make(map[string]any, len(change.Payload)+1)
		for k, v := range change.Payload {
			fields[k] = v
		}
		// A payload that carries deleted_at is a prior local delete being
		// re-synced; stamping a fresh updated_at here would overwrite the
		// delete's timestamp.
		if _, deleted := budget.DeletedAt(fields); !deleted {
			fields["updated_at"] = budget.FormatTime(time.Now())
		}
		return e.remote.MergeDocument(ctx, userID, table, change.RowID, fields)

	case budget.ActionDelete:
		// Soft delete: only the tombstone marker is merged, the remote
		// document is never hard-removed.
		return e.remote.MergeDocument(ctx, userID, table, change.RowID, map[string]any{
			"deleted_at": budget.FormatTime(time.Now()),
		})

	default:
		return fmt.Errorf("pending change %d has unknown action %q", change.ID, change.Action)
	}
}

// pull merges remote deltas into the local store, table by table. Each
// document comparison is independent; no ordering is required within or
// across tables, and failures abort the phase without rolling back tables
// already applied (retry is safe because applying a document is
// idempotent).
func (e *Engine) pull(ctx context.Context, userID string, lastSynced time.Time, hasSynced bool, result *Result) error {
	since := time.Unix(0, 0).UTC()
	if hasSynced {
		since = lastSynced
	}

	for _, table := range budget.AllTables() {
		docs, err := e.remote.DocumentsUpdatedSince(ctx, userID, table, since)
		if err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}

		for _, doc := range docs {
			applied, err := e.applyRemote(ctx, table, doc, hasSynced)
			if err != nil {
				return fmt.Errorf("table %s, document %s: %w", table.Name, doc.ID, err)
			}
			if applied {
				result.Pulled++
			} else {
				result.Skipped++
			}
		}
	}
	return nil
}

// applyRemote merges one remote document into the local store under
// last-write-wins. Returns whether the document changed local state.
func (e *Engine) applyRemote(ctx context.Context, table budget.Table, doc remote.Document, hasSynced bool) (bool, error) {
	local, exists, err := e.store.GetRow(ctx, table, doc.ID)
	if err != nil {
		return false, err
	}

	deletedAt, tombstone := doc.DeletedAt()

	if !exists {
		// Never materialize a tombstone as a new local row.
		if tombstone {
			return false, nil
		}
		if err := e.store.InsertRowFields(ctx, table, doc.ID, doc.Fields); err != nil {
			return false, err
		}
		return true, nil
	}

	// On the very first sync the remote state wins unconditionally;
	// afterwards it wins only when strictly newer at millisecond
	// resolution (ties keep the local row, the next push carries it
	// forward).
	if hasSynced && !budget.Newer(doc.ChangedAt(), budget.UpdatedAt(local)) {
		return false, nil
	}

	if tombstone {
		if err := e.store.SoftDeleteRow(ctx, table, doc.ID, deletedAt, doc.UpdatedAt()); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := e.store.UpdateRowFields(ctx, table, doc.ID, doc.Fields); err != nil {
		return false, err
	}
	return true, nil
}
