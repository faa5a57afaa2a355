// Package worker replays record-change events into a mirror backend.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/records"
)

// MirrorWorker keeps a second backend, usually the spreadsheet, in step with
// the primary store by applying its change events.
type MirrorWorker struct {
	collections map[records.Kind]mirror
}

// mirror is one collection of the mirror backend, type-erased so a message
// can be routed by its entity name.
type mirror interface {
	apply(ctx context.Context, msg *amqp.RecordChangeMessage) error
	resync(ctx context.Context, primary any) (copied, removed int, err error)
}

type collection[T core.Entity[T]] struct {
	repo   records.Repository[T]
	upsert records.Upserter[T]
}

func newCollection[T core.Entity[T]](kind records.Kind, repo records.Repository[T]) (*collection[T], error) {
	up, ok := repo.(records.Upserter[T])
	if !ok {
		return nil, fmt.Errorf("mirror backend cannot upsert %s", kind)
	}
	return &collection[T]{repo: repo, upsert: up}, nil
}

func (c *collection[T]) apply(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	if msg.Op == amqp.OpDeleted {
		// Already gone is fine: the message may be a redelivery.
		if _, err := c.repo.Delete(ctx, msg.RecordID); err != nil {
			return fmt.Errorf("delete %s %d: %w", msg.Entity, msg.RecordID, err)
		}
		return nil
	}

	var rec T
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", msg.Entity, err, amqp.ErrPermanent)
	}
	if rec.RecordID() != msg.RecordID {
		return fmt.Errorf("payload id %d does not match record id %d: %w", rec.RecordID(), msg.RecordID, amqp.ErrPermanent)
	}
	if err := c.upsert.Put(ctx, rec); err != nil {
		return fmt.Errorf("put %s %d: %w", msg.Entity, msg.RecordID, err)
	}
	return nil
}

// resync copies every primary record and removes mirror records the primary
// no longer has.
func (c *collection[T]) resync(ctx context.Context, primary any) (int, int, error) {
	src, ok := primary.(records.Repository[T])
	if !ok {
		return 0, 0, fmt.Errorf("primary collection has type %T", primary)
	}
	want, err := src.GetAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read primary: %w", err)
	}
	have, err := c.repo.GetAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read mirror: %w", err)
	}

	keep := make(map[int64]bool, len(want))
	for _, rec := range want {
		if err := c.upsert.Put(ctx, rec); err != nil {
			return 0, 0, fmt.Errorf("put %d: %w", rec.RecordID(), err)
		}
		keep[rec.RecordID()] = true
	}
	removed := 0
	for _, rec := range have {
		if keep[rec.RecordID()] {
			continue
		}
		if _, err := c.repo.Delete(ctx, rec.RecordID()); err != nil {
			return len(want), removed, fmt.Errorf("delete %d: %w", rec.RecordID(), err)
		}
		removed++
	}
	return len(want), removed, nil
}

// NewMirrorWorker checks that every collection of the mirror store supports
// upserts.
func NewMirrorWorker(mirrorStore *records.Store) (*MirrorWorker, error) {
	w := &MirrorWorker{collections: make(map[records.Kind]mirror, len(records.Kinds))}
	var err error
	if w.collections[records.KindAccounts], err = newCollection(records.KindAccounts, mirrorStore.Accounts); err != nil {
		return nil, err
	}
	if w.collections[records.KindTransactions], err = newCollection(records.KindTransactions, mirrorStore.Transactions); err != nil {
		return nil, err
	}
	if w.collections[records.KindBudgets], err = newCollection(records.KindBudgets, mirrorStore.Budgets); err != nil {
		return nil, err
	}
	if w.collections[records.KindBills], err = newCollection(records.KindBills, mirrorStore.Bills); err != nil {
		return nil, err
	}
	if w.collections[records.KindGoals], err = newCollection(records.KindGoals, mirrorStore.Goals); err != nil {
		return nil, err
	}
	return w, nil
}

// HandleRecordChange applies one change event. Events for unknown entities
// fail permanently; store errors are retryable.
func (w *MirrorWorker) HandleRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	m, ok := w.collections[records.Kind(msg.Entity)]
	if !ok {
		return fmt.Errorf("unknown entity %q: %w", msg.Entity, amqp.ErrPermanent)
	}

	slog.InfoContext(ctx, "Mirroring record change",
		"message_id", msg.ID.String(),
		"entity", msg.Entity,
		"op", msg.Op,
		"id", msg.RecordID)

	return m.apply(ctx, msg)
}

// Resync makes the mirror an exact copy of primary. The worker runs it at
// startup to recover from events lost while it was down, and periodically
// through ResyncEvery.
func (w *MirrorWorker) Resync(ctx context.Context, primary *records.Store) error {
	sources := map[records.Kind]any{
		records.KindAccounts:     primary.Accounts,
		records.KindTransactions: primary.Transactions,
		records.KindBudgets:      primary.Budgets,
		records.KindBills:        primary.Bills,
		records.KindGoals:        primary.Goals,
	}
	for _, kind := range records.Kinds {
		copied, removed, err := w.collections[kind].resync(ctx, sources[kind])
		if err != nil {
			return fmt.Errorf("resync %s: %w", kind, err)
		}
		slog.InfoContext(ctx, "Resynced collection", "entity", kind, "copied", copied, "removed", removed)
	}
	return nil
}

// ResyncEvery runs Resync on every tick of interval until ctx ends. A failed
// pass is logged and retried on the next tick.
func (w *MirrorWorker) ResyncEvery(ctx context.Context, primary *records.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Resync(ctx, primary); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic mirror resync failed", "error", err)
			}
		}
	}
}
