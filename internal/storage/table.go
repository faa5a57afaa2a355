package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"financeflow/internal/core"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one record type onto one SQL table. columns excludes id; args
// must return values in the same order.
type table[T core.Entity[T]] struct {
	db      *sql.DB
	name    string
	columns []string
	orderBy string
	scan    func(s scanner) (T, error)
	args    func(T) []any
}

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(t.columns, ", "), t.name)
}

func (t *table[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, t.selectSQL()+" ORDER BY "+t.orderBy)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return out, nil
}

func (t *table[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	rec, err := t.scan(t.db.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", t.name, id, err)
	}
	return &rec, nil
}

func (t *table[T]) Create(ctx context.Context, rec T) (T, error) {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columns, ", "), placeholders(len(t.columns)))
	res, err := t.db.ExecContext(ctx, q, t.args(rec)...)
	if err != nil {
		return rec, fmt.Errorf("insert %s: %w", t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, fmt.Errorf("insert %s: last insert id: %w", t.name, err)
	}
	return rec.WithRecordID(id), nil
}

func (t *table[T]) Update(ctx context.Context, id int64, rec T) (*T, error) {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = ?"
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
	res, err := t.db.ExecContext(ctx, q, append(t.args(rec), id)...)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", t.name, id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", t.name, id, err)
	} else if n == 0 {
		return nil, nil
	}
	rec = rec.WithRecordID(id)
	return &rec, nil
}

func (t *table[T]) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := t.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", t.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", t.name, id, err)
	}
	return n > 0, nil
}

// Put inserts rec under its own id or overwrites the existing row.
func (t *table[T]) Put(ctx context.Context, rec T) error {
	if rec.RecordID() <= 0 {
		return fmt.Errorf("put: record id must be positive, got %d", rec.RecordID())
	}
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = excluded." + c
	}
	q := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (?, %s) ON CONFLICT(id) DO UPDATE SET %s",
		t.name, strings.Join(t.columns, ", "), placeholders(len(t.columns)), strings.Join(sets, ", "))
	if _, err := t.db.ExecContext(ctx, q, append([]any{rec.RecordID()}, t.args(rec)...)...); err != nil {
		return fmt.Errorf("put %s %d: %w", t.name, rec.RecordID(), err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
