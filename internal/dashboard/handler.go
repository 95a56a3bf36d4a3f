package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/centavo-app/centavo/internal/syncer"
	"github.com/rs/zerolog"
)

// QueueStats reports current sync queue state. *store.Store satisfies it.
type QueueStats interface {
	UnsyncedCount(ctx context.Context) (int, error)
	LastSyncedAt(ctx context.Context) (time.Time, bool, error)
}

// Handler bridges sync engine events to dashboard broadcasts. It
// implements syncer.EventSink.
type Handler struct {
	server *Server
	stats  QueueStats
	logger zerolog.Logger
}

// NewHandler creates an event handler connected to a dashboard server.
// stats may be nil, in which case no stats messages are broadcast.
func NewHandler(server *Server, stats QueueStats, logger zerolog.Logger) *Handler {
	return &Handler{
		server: server,
		stats:  stats,
		logger: logger.With().Str("component", "dashboard").Logger(),
	}
}

// SyncCompleted broadcasts a finished sync cycle and refreshed stats.
func (h *Handler) SyncCompleted(result syncer.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal sync result")
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      data,
	})

	h.broadcastStats()
}

// SyncFailed broadcasts a failed sync cycle.
func (h *Handler) SyncFailed(err error) {
	data, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncFailed,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// broadcastStats sends current queue statistics to all clients.
func (h *Handler) broadcastStats() {
	if h.stats == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := h.stats.UnsyncedCount(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to count pending changes")
		return
	}

	stats := StatsData{PendingChanges: pending}
	if at, ok, err := h.stats.LastSyncedAt(ctx); err == nil && ok {
		stats.LastSyncedAt = &at
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      data,
	})
}
