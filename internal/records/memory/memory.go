package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"financeflow/internal/core"
	"financeflow/internal/records"
)

// Collection is an in-process, mutex-guarded repository for one record type.
// Id assignment and insertion happen under the same lock.
type Collection[T core.Entity[T]] struct {
	mu    sync.RWMutex
	items []T
	order func([]T)
}

// NewCollection seeds a collection. order sorts GetAll results; nil means
// ascending id.
func NewCollection[T core.Entity[T]](seed []T, order func([]T)) *Collection[T] {
	if order == nil {
		order = records.SortByID[T]
	}
	return &Collection[T]{items: append([]T(nil), seed...), order: order}
}

func (c *Collection[T]) GetAll(_ context.Context) ([]T, error) {
	c.mu.RLock()
	out := append([]T(nil), c.items...)
	c.mu.RUnlock()
	c.order(out)
	return out, nil
}

func (c *Collection[T]) GetByID(_ context.Context, id int64) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		rec := c.items[i]
		return &rec, nil
	}
	return nil, nil
}

func (c *Collection[T]) Create(_ context.Context, rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec = rec.WithRecordID(records.NextID(c.items))
	c.items = append(c.items, rec)
	return rec, nil
}

func (c *Collection[T]) Update(_ context.Context, id int64, rec T) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return nil, nil
	}
	rec = rec.WithRecordID(id)
	c.items[i] = rec
	return &rec, nil
}

func (c *Collection[T]) Delete(_ context.Context, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false, nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true, nil
}

// Put inserts or replaces the record under its own id.
func (c *Collection[T]) Put(_ context.Context, rec T) error {
	if rec.RecordID() <= 0 {
		return fmt.Errorf("put: record id must be positive, got %d", rec.RecordID())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(rec.RecordID()); i >= 0 {
		c.items[i] = rec
		return nil
	}
	c.items = append(c.items, rec)
	return nil
}

func (c *Collection[T]) indexOf(id int64) int {
	for i, it := range c.items {
		if it.RecordID() == id {
			return i
		}
	}
	return -1
}

// New returns an empty in-memory store.
func New() *records.Store {
	return &records.Store{
		Accounts:     NewCollection[core.Account](nil, nil),
		Transactions: NewCollection[core.Transaction](nil, records.SortTransactions),
		Budgets:      NewCollection[core.Budget](nil, nil),
		Bills:        NewCollection[core.Bill](nil, nil),
		Goals:        NewCollection[core.Goal](nil, nil),
	}
}

// NewFromFiles seeds a store from <base>/<collection>.json fixtures. A
// missing file yields an empty collection; a malformed one is an error.
func NewFromFiles(base string) (*records.Store, error) {
	accounts, err := readFixture[core.Account](base, records.KindAccounts)
	if err != nil {
		return nil, err
	}
	txs, err := readFixture[core.Transaction](base, records.KindTransactions)
	if err != nil {
		return nil, err
	}
	budgets, err := readFixture[core.Budget](base, records.KindBudgets)
	if err != nil {
		return nil, err
	}
	bills, err := readFixture[core.Bill](base, records.KindBills)
	if err != nil {
		return nil, err
	}
	goals, err := readFixture[core.Goal](base, records.KindGoals)
	if err != nil {
		return nil, err
	}
	return &records.Store{
		Accounts:     NewCollection(accounts, nil),
		Transactions: NewCollection(txs, records.SortTransactions),
		Budgets:      NewCollection(budgets, nil),
		Bills:        NewCollection(bills, nil),
		Goals:        NewCollection(goals, nil),
	}, nil
}

// LoadTestimonials reads <base>/testimonials.json into a read-only
// collection. A missing file yields an empty one.
func LoadTestimonials(base string) (records.Reader[core.Testimonial], error) {
	items, err := readFixture[core.Testimonial](base, records.KindTestimonials)
	if err != nil {
		return nil, err
	}
	for i, t := range items {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("testimonial %d: %w", i+1, err)
		}
	}
	return NewCollection(items, nil), nil
}

func readFixture[T core.Entity[T]](base string, kind records.Kind) ([]T, error) {
	path := filepath.Join(base, string(kind)+".json")
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		rec, err := records.DecodeRecord[T](r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
