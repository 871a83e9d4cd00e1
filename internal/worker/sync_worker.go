// Package worker applies ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensemanager/internal/amqp"
	"expensemanager/internal/sheets"
)

// Stats counts what the worker did with the events it received
type Stats struct {
	Applied      int64
	Skipped      int64
	Failed       int64
	LastRevision uint64
	LastApplied  time.Time
}

// SyncWorker overwrites the mirror with each event's snapshot. Events older
// than the last applied one are dropped so a redelivered or reordered
// message never rolls the sheet back.
type SyncWorker struct {
	mirror sheets.Mirror

	mu        sync.Mutex
	session   uuid.UUID
	revision  uint64
	appliedAt time.Time
	stats     Stats
}

func NewSyncWorker(mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isStale(evt) {
		w.stats.Skipped++
		slog.InfoContext(ctx, "Skipping stale ledger event",
			"event_id", evt.ID.String(),
			"revision", evt.Revision,
			"last_revision", w.revision)
		return nil
	}

	if err := w.mirror.ReplaceAll(ctx, evt.Snapshot); err != nil {
		w.stats.Failed++
		return fmt.Errorf("replace mirror at revision %d: %w", evt.Revision, err)
	}

	w.session = evt.Session
	w.revision = evt.Revision
	w.appliedAt = evt.Timestamp
	w.stats.Applied++
	w.stats.LastRevision = evt.Revision
	w.stats.LastApplied = time.Now()

	slog.InfoContext(ctx, "Mirror updated",
		"event_id", evt.ID.String(),
		"kind", evt.Kind,
		"revision", evt.Revision,
		"rows", len(evt.Snapshot))
	return nil
}

// isStale orders events by revision within one producer session and by
// timestamp across sessions.
func (w *SyncWorker) isStale(evt *amqp.LedgerEvent) bool {
	if w.appliedAt.IsZero() {
		return false
	}
	if evt.Session == w.session {
		return evt.Revision <= w.revision
	}
	return evt.Timestamp.Before(w.appliedAt)
}

func (w *SyncWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
