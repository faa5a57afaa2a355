// Package services holds the write paths and use cases on top of the
// record store: validation, derived fields, change events and the
// scheduled bill jobs.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	applog "financeflow/internal/log"
	"financeflow/internal/records"
)

// ChangePublisher announces committed writes. *amqp.Client implements it.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error
}

// Records wraps one collection of the store. Writes are validated first and
// announced after they commit; a failed announcement is logged and does not
// fail the write.
type Records[T core.Entity[T]] struct {
	kind      records.Kind
	repo      records.Repository[T]
	publisher ChangePublisher
	now       func() time.Time

	// beforeWrite derives stored fields; afterRead recomputes derived ones.
	beforeWrite func(rec T, now time.Time) T
	afterRead   func(rec T) T
}

func newRecords[T core.Entity[T]](kind records.Kind, repo records.Repository[T], publisher ChangePublisher, now func() time.Time) *Records[T] {
	return &Records[T]{kind: kind, repo: repo, publisher: publisher, now: now}
}

func (r *Records[T]) Kind() records.Kind { return r.kind }

func (r *Records[T]) read(rec T) T {
	if r.afterRead != nil {
		return r.afterRead(rec)
	}
	return rec
}

func (r *Records[T]) prepare(rec T) (T, error) {
	if r.beforeWrite != nil {
		rec = r.beforeWrite(rec, r.now())
	}
	if err := rec.Validate(); err != nil {
		return rec, &ValidationError{Err: err}
	}
	return rec, nil
}

// List returns the whole collection in store order.
func (r *Records[T]) List(ctx context.Context) ([]T, error) {
	items, err := r.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	for i := range items {
		items[i] = r.read(items[i])
	}
	return items, nil
}

// Get returns ErrNotFound when no record has id.
func (r *Records[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	rec, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("get %s %d: %w", r.kind, id, err)
	}
	if rec == nil {
		return zero, ErrNotFound
	}
	return r.read(*rec), nil
}

func (r *Records[T]) Create(ctx context.Context, rec T) (T, error) {
	rec, err := r.prepare(rec)
	if err != nil {
		return rec, err
	}
	created, err := r.repo.Create(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("create %s: %w", r.kind, err)
	}
	created = r.read(created)
	r.announce(ctx, amqp.OpCreated, created.RecordID(), created)
	return created, nil
}

// Update replaces the record stored under id.
func (r *Records[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	rec, err := r.prepare(rec.WithRecordID(id))
	if err != nil {
		return rec, err
	}
	updated, err := r.repo.Update(ctx, id, rec)
	if err != nil {
		return rec, fmt.Errorf("update %s %d: %w", r.kind, id, err)
	}
	if updated == nil {
		return rec, ErrNotFound
	}
	out := r.read(*updated)
	r.announce(ctx, amqp.OpUpdated, id, out)
	return out, nil
}

func (r *Records[T]) Delete(ctx context.Context, id int64) error {
	ok, err := r.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.kind, id, err)
	}
	if !ok {
		return ErrNotFound
	}
	r.announce(ctx, amqp.OpDeleted, id, nil)
	return nil
}

func (r *Records[T]) announce(ctx context.Context, op string, id int64, rec any) {
	applog.LogRecordChange(ctx, string(r.kind), op, id)

	if r.publisher == nil {
		return
	}
	msg, err := amqp.NewRecordChangeMessage(string(r.kind), op, id, rec)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build record change message", "entity", r.kind, "id", id, "error", err)
		return
	}
	if err := r.publisher.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"entity", r.kind, "id", id, "op", op, "error", err)
	}
}
