// Package daemon provides the background sync daemon.
//
// The daemon:
// 1. Runs one sync on startup
// 2. Watches the database file for local writes and syncs after a quiet period
// 3. Syncs on a fixed interval regardless of local activity
// 4. Retries failed syncs with exponential backoff
// 5. Prunes old synced change-log entries after successful syncs
package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/centavo-app/centavo/internal/syncer"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Syncer runs one sync cycle. *syncer.Engine implements it.
type Syncer interface {
	Sync(ctx context.Context) (*syncer.Result, error)
}

// ChangeLog is the slice of the local store the daemon maintains between
// syncs. *store.Store implements it.
type ChangeLog interface {
	PruneSyncedChanges(ctx context.Context, before time.Time) (int64, error)
}

// Config holds configuration for the daemon.
type Config struct {
	// Interval is how often to sync regardless of local activity.
	Interval time.Duration

	// Debounce is how long the database must stay quiet after a local
	// write before a sync is triggered. This batches rapid entry bursts
	// into one cycle.
	Debounce time.Duration

	// Retention is how long synced change-log entries are kept before
	// pruning. Zero disables pruning.
	Retention time.Duration

	// MaxRetries bounds the backoff retries after a failed sync.
	MaxRetries uint

	Logger zerolog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		Debounce:   2 * time.Second,
		Retention:  30 * 24 * time.Hour,
		MaxRetries: 5,
	}
}

// Daemon orchestrates database watching and periodic synchronization.
type Daemon struct {
	syncer Syncer
	log    ChangeLog
	dbPath string
	config Config

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	dirtyAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon that keeps the store at dbPath synchronized.
func New(sy Syncer, cl ChangeLog, dbPath string, config Config) (*Daemon, error) {
	if sy == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Daemon{
		syncer:  sy,
		log:     cl,
		dbPath:  dbPath,
		config:  config,
		watcher: watcher,
	}, nil
}

// Start begins the daemon's operation. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	logger := d.config.Logger
	logger.Info().Str("db", d.dbPath).Dur("interval", d.config.Interval).Msg("starting sync daemon")

	ctx, d.cancel = context.WithCancel(ctx)
	defer d.cancel()

	// SQLite writes touch the main file and its -wal sibling; watching
	// the directory catches both.
	if err := d.watcher.Add(filepath.Dir(d.dbPath)); err != nil {
		return fmt.Errorf("failed to watch database directory: %w", err)
	}

	// Initial sync picks up anything queued while the daemon was down.
	d.runSync(ctx)

	d.wg.Add(2)
	go d.watchFileEvents(ctx)
	go d.syncLoop(ctx)

	<-ctx.Done()
	return d.stop()
}

// stop shuts down the watcher and waits for goroutines to drain.
func (d *Daemon) stop() error {
	d.config.Logger.Info().Msg("stopping sync daemon")

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Warn().Err(err).Msg("error closing watcher")
	}

	d.wg.Wait()
	d.config.Logger.Info().Msg("sync daemon stopped")
	return nil
}

// watchFileEvents marks the daemon dirty whenever the database file or
// its WAL changes.
func (d *Daemon) watchFileEvents(ctx context.Context) {
	defer d.wg.Done()

	base := filepath.Base(d.dbPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			d.mu.Lock()
			d.dirtyAt = time.Now()
			d.mu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// syncLoop triggers syncs: after a debounced local write burst, and on
// the fixed interval.
func (d *Daemon) syncLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.NewTicker(d.config.Interval)
	defer interval.Stop()

	poll := time.NewTicker(d.config.Debounce / 2)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-interval.C:
			d.runSync(ctx)

		case <-poll.C:
			d.mu.Lock()
			dirty := !d.dirtyAt.IsZero() && time.Since(d.dirtyAt) >= d.config.Debounce
			if dirty {
				d.dirtyAt = time.Time{}
			}
			d.mu.Unlock()

			if dirty {
				d.runSync(ctx)
			}
		}
	}
}

// runSync performs one sync with bounded exponential backoff on failure,
// then prunes old synced change-log entries.
func (d *Daemon) runSync(ctx context.Context) {
	logger := d.config.Logger

	operation := func() error {
		_, err := d.syncer.Sync(ctx)
		if errors.Is(err, syncer.ErrSyncInProgress) {
			// Another trigger already picked this window up.
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.config.MaxRetries)),
		ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		logger.Error().Err(err).Msg("sync failed after retries, will retry on next trigger")
		return
	}

	// The sync itself writes to the database, which raises watcher
	// events; clear the dirty mark so they don't re-trigger a cycle.
	d.mu.Lock()
	d.dirtyAt = time.Time{}
	d.mu.Unlock()

	if d.config.Retention > 0 && d.log != nil {
		cutoff := time.Now().Add(-d.config.Retention)
		pruned, err := d.log.PruneSyncedChanges(ctx, cutoff)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to prune change log")
		} else if pruned > 0 {
			logger.Debug().Int64("pruned", pruned).Msg("pruned synced changes")
		}
	}
}
