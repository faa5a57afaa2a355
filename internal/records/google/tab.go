package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"financeflow/internal/core"
	"financeflow/internal/records"
)

// Tab is the repository for one collection stored in one sheet tab.
type Tab[T core.Entity[T]] struct {
	client *Client
	name   string
	codec  codec[T]
	order  func([]T)
}

type located[T any] struct {
	rec   T
	row   int // 1-based sheet row
	cells []string
}

type layout struct {
	header []string
	index  map[string]int
}

func newTab[T core.Entity[T]](c *Client, kind records.Kind, cd codec[T], order func([]T)) *Tab[T] {
	if order == nil {
		order = records.SortByID[T]
	}
	return &Tab[T]{client: c, name: string(kind), codec: cd, order: order}
}

// parseHeader maps normalized column names to positions. A bare column
// takes precedence over its suffixed twin.
func parseHeader(header []string) layout {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		key := records.NormalizeField(name)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; exists && strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), "_c") {
			continue
		}
		idx[key] = i
	}
	return layout{header: header, index: idx}
}

// load reads through the cache; loadForWrite bypasses it.
func (t *Tab[T]) load(ctx context.Context) (layout, []located[T], error) {
	rows, err := t.client.snapshot(ctx, t.name)
	if err != nil {
		return layout{}, nil, err
	}
	return t.parse(ctx, rows)
}

func (t *Tab[T]) loadForWrite(ctx context.Context) (layout, []located[T], error) {
	rows, err := t.client.readTab(ctx, t.name)
	if err != nil {
		return layout{}, nil, err
	}
	return t.parse(ctx, rows)
}

func (t *Tab[T]) parse(ctx context.Context, rows [][]string) (layout, []located[T], error) {
	if len(rows) == 0 {
		return layout{}, nil, nil
	}
	lay := parseHeader(rows[0])
	out := make([]located[T], 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		if blank(cells) {
			continue
		}
		r := &fieldReader{index: lay.index, cells: cells}
		rec := t.codec.decode(r)
		if r.err != nil {
			slog.WarnContext(ctx, "Skipping unreadable row", "sheet", t.name, "row", i+1, "error", r.err)
			continue
		}
		out = append(out, located[T]{rec: rec, row: i + 1, cells: cells})
	}
	return lay, out, nil
}

func (t *Tab[T]) GetAll(ctx context.Context) ([]T, error) {
	_, locs, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.rec)
	}
	t.order(out)
	return out, nil
}

func (t *Tab[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	_, locs, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	if l := find(locs, id); l != nil {
		rec := l.rec
		return &rec, nil
	}
	return nil, nil
}

func (t *Tab[T]) Create(ctx context.Context, rec T) (T, error) {
	t.client.writeMu.Lock()
	defer t.client.writeMu.Unlock()
	defer t.client.invalidate(t.name)

	lay, locs, err := t.loadForWrite(ctx)
	if err != nil {
		return rec, err
	}
	if lay, err = t.ensureHeader(ctx, lay); err != nil {
		return rec, err
	}
	existing := make([]T, 0, len(locs))
	for _, l := range locs {
		existing = append(existing, l.rec)
	}
	rec = rec.WithRecordID(records.NextID(existing))
	if err := t.client.api.Append(ctx, t.name+"!A1", [][]any{t.values(lay, rec, nil)}); err != nil {
		return rec, fmt.Errorf("append to %s: %w", t.name, err)
	}
	return rec, nil
}

func (t *Tab[T]) Update(ctx context.Context, id int64, rec T) (*T, error) {
	t.client.writeMu.Lock()
	defer t.client.writeMu.Unlock()
	defer t.client.invalidate(t.name)

	lay, locs, err := t.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	l := find(locs, id)
	if l == nil {
		return nil, nil
	}
	rec = rec.WithRecordID(id)
	if err := t.writeRow(ctx, lay, l, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *Tab[T]) Delete(ctx context.Context, id int64) (bool, error) {
	t.client.writeMu.Lock()
	defer t.client.writeMu.Unlock()
	defer t.client.invalidate(t.name)

	_, locs, err := t.loadForWrite(ctx)
	if err != nil {
		return false, err
	}
	l := find(locs, id)
	if l == nil {
		return false, nil
	}
	if err := t.client.api.DeleteRow(ctx, t.name, l.row); err != nil {
		return false, fmt.Errorf("delete row %d from %s: %w", l.row, t.name, err)
	}
	return true, nil
}

// Put writes rec under its own id, appending when the id is new.
func (t *Tab[T]) Put(ctx context.Context, rec T) error {
	if rec.RecordID() <= 0 {
		return fmt.Errorf("put: record id must be positive, got %d", rec.RecordID())
	}
	t.client.writeMu.Lock()
	defer t.client.writeMu.Unlock()
	defer t.client.invalidate(t.name)

	lay, locs, err := t.loadForWrite(ctx)
	if err != nil {
		return err
	}
	if l := find(locs, rec.RecordID()); l != nil {
		return t.writeRow(ctx, lay, l, rec)
	}
	if lay, err = t.ensureHeader(ctx, lay); err != nil {
		return err
	}
	if err := t.client.api.Append(ctx, t.name+"!A1", [][]any{t.values(lay, rec, nil)}); err != nil {
		return fmt.Errorf("append to %s: %w", t.name, err)
	}
	return nil
}

func (t *Tab[T]) writeRow(ctx context.Context, lay layout, l *located[T], rec T) error {
	rng := fmt.Sprintf("%s!A%d", t.name, l.row)
	if err := t.client.api.Write(ctx, rng, [][]any{t.values(lay, rec, l.cells)}); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ensureHeader writes the default header to an empty tab and checks that
// an existing one has an id column.
func (t *Tab[T]) ensureHeader(ctx context.Context, lay layout) (layout, error) {
	if len(lay.header) == 0 {
		header := make([]any, len(t.codec.columns))
		for i, c := range t.codec.columns {
			header[i] = c
		}
		if err := t.client.api.Write(ctx, t.name+"!A1", [][]any{header}); err != nil {
			return lay, fmt.Errorf("write header to %s: %w", t.name, err)
		}
		return parseHeader(t.codec.columns), nil
	}
	if _, ok := lay.index["id"]; !ok {
		return lay, fmt.Errorf("sheet %s has no id column", t.name)
	}
	return lay, nil
}

// values lays rec out in header order. Columns the codec does not know keep
// whatever the row already held.
func (t *Tab[T]) values(lay layout, rec T, existing []string) []any {
	fields := t.codec.encode(rec)
	out := make([]any, len(lay.header))
	for i, h := range lay.header {
		if v, ok := fields[records.NormalizeField(h)]; ok {
			out[i] = v
		} else {
			out[i] = safeGet(existing, i)
		}
	}
	return out
}

func find[T core.Entity[T]](locs []located[T], id int64) *located[T] {
	for i := range locs {
		if locs[i].rec.RecordID() == id {
			return &locs[i]
		}
	}
	return nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
