// Package records defines the record store contract shared by every backend.
//
// A backend exposes one Repository per collection. Reads return full
// snapshots; not-found is reported as a nil record or a false result, never
// as an error. Errors are reserved for store failures.
package records

import (
	"context"
	"slices"

	"financeflow/internal/core"
)

// Kind names a collection. It doubles as the table, sheet tab and event
// entity name.
type Kind string

const (
	KindAccounts     Kind = "accounts"
	KindTransactions Kind = "transactions"
	KindBudgets      Kind = "budgets"
	KindBills        Kind = "bills"
	KindGoals        Kind = "goals"

	// KindTestimonials is read-only fixture content. It is not part of
	// Kinds, so no backend stores it and no event names it.
	KindTestimonials Kind = "testimonials"
)

// Kinds lists every writable collection in a stable order.
var Kinds = []Kind{KindAccounts, KindTransactions, KindBudgets, KindBills, KindGoals}

// Valid reports whether k names a writable collection.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Ports for outbound adapters.
type (
	// Reader is the read half of Repository. Read-only collections such as
	// testimonials only implement this.
	Reader[T core.Entity[T]] interface {
		// GetAll returns the whole collection.
		GetAll(ctx context.Context) ([]T, error)
		// GetByID returns nil when no record has the id.
		GetByID(ctx context.Context, id int64) (*T, error)
	}

	// Repository is CRUD over one collection.
	Repository[T core.Entity[T]] interface {
		Reader[T]
		// Create assigns a fresh id and stores the record.
		Create(ctx context.Context, rec T) (T, error)
		// Update replaces the record with the given id, keeping the id.
		// It returns nil when no record has the id.
		Update(ctx context.Context, id int64, rec T) (*T, error)
		// Delete removes the record and reports whether it existed.
		Delete(ctx context.Context, id int64) (bool, error)
	}

	// Upserter stores a record under the id it already carries. Mirrors use
	// it to replay changes from the primary store.
	Upserter[T core.Entity[T]] interface {
		Put(ctx context.Context, rec T) error
	}
)

// Store bundles the five repositories of a backend.
type Store struct {
	Accounts     Repository[core.Account]
	Transactions Repository[core.Transaction]
	Budgets      Repository[core.Budget]
	Bills        Repository[core.Bill]
	Goals        Repository[core.Goal]
}

// SortTransactions orders transactions newest first; equal dates keep the
// higher id first.
func SortTransactions(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return compareInt(b.ID, a.ID)
	})
}

// SortByID orders records by ascending id.
func SortByID[T core.Entity[T]](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return compareInt(a.RecordID(), b.RecordID())
	})
}

// NextID returns max(existing ids)+1, or 1 for an empty collection.
func NextID[T core.Entity[T]](items []T) int64 {
	var max int64
	for _, it := range items {
		if id := it.RecordID(); id > max {
			max = id
		}
	}
	return max + 1
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
