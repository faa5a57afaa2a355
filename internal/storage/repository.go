package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"financeflow/internal/core"
	"financeflow/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db           *sql.DB
	accounts     *table[core.Account]
	transactions *table[core.Transaction]
	budgets      *table[core.Budget]
	bills        *table[core.Bill]
	goals        *table[core.Goal]
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and keeps id assignment atomic.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite database ready", "path", dbPath)
	return newRepository(db), nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
		accounts: &table[core.Account]{
			db: db, name: "accounts", orderBy: "id",
			columns: []string{"name", "type", "institution", "balance", "currency", "last_updated"},
			scan: func(s scanner) (core.Account, error) {
				var a core.Account
				err := s.Scan(&a.ID, &a.Name, &a.Type, &a.Institution, &a.Balance, &a.Currency, &a.LastUpdated)
				return a, err
			},
			args: func(a core.Account) []any {
				return []any{a.Name, a.Type, a.Institution, a.Balance, a.Currency, a.LastUpdated}
			},
		},
		transactions: &table[core.Transaction]{
			db: db, name: "transactions", orderBy: "date DESC, id DESC",
			columns: []string{"account_id", "date", "description", "amount", "category", "type", "notes"},
			scan: func(s scanner) (core.Transaction, error) {
				var t core.Transaction
				err := s.Scan(&t.ID, &t.AccountID, &t.Date, &t.Description, &t.Amount, &t.Category, &t.Type, &t.Notes)
				return t, err
			},
			args: func(t core.Transaction) []any {
				return []any{t.AccountID, t.Date, t.Description, t.Amount, t.Category, t.Type, t.Notes}
			},
		},
		budgets: &table[core.Budget]{
			db: db, name: "budgets", orderBy: "id",
			columns: []string{"category", "allocated", "period", "alert_enabled", "start_date"},
			scan: func(s scanner) (core.Budget, error) {
				var b core.Budget
				err := s.Scan(&b.ID, &b.Category, &b.Allocated, &b.Period, &b.AlertEnabled, &b.StartDate)
				return b, err
			},
			args: func(b core.Budget) []any {
				return []any{b.Category, b.Allocated, b.Period, b.AlertEnabled, b.StartDate}
			},
		},
		bills: &table[core.Bill]{
			db: db, name: "bills", orderBy: "id",
			columns: []string{"name", "amount", "due_date", "recurring", "frequency", "category", "is_paid"},
			scan: func(s scanner) (core.Bill, error) {
				var b core.Bill
				err := s.Scan(&b.ID, &b.Name, &b.Amount, &b.DueDate, &b.Recurring, &b.Frequency, &b.Category, &b.IsPaid)
				return b, err
			},
			args: func(b core.Bill) []any {
				return []any{b.Name, b.Amount, b.DueDate, b.Recurring, b.Frequency, b.Category, b.IsPaid}
			},
		},
		goals: &table[core.Goal]{
			db: db, name: "goals", orderBy: "id",
			columns: []string{"name", "target_amount", "current_amount", "deadline", "category", "status"},
			scan: func(s scanner) (core.Goal, error) {
				var g core.Goal
				err := s.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.Category, &g.Status)
				return g, err
			},
			args: func(g core.Goal) []any {
				return []any{g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline, g.Category, g.Status}
			},
		},
	}
}

// Store exposes the database as a record store.
func (r *SQLiteRepository) Store() *records.Store {
	return &records.Store{
		Accounts:     r.accounts,
		Transactions: r.transactions,
		Budgets:      r.budgets,
		Bills:        r.bills,
		Goals:        r.goals,
	}
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
