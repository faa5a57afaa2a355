package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/core"
)

// BillRollover creates the next occurrence of recurring bills once the
// current one is paid and past due.
type BillRollover struct {
	bills *Records[core.Bill]
}

func NewBillRollover(svc *FinanceService) *BillRollover {
	return &BillRollover{bills: svc.Bills}
}

// Run rolls over every eligible bill and returns how many bills it created.
// A bill is skipped when one with the same name is already due on the next
// date, so repeated runs create nothing new.
func (r *BillRollover) Run(ctx context.Context, now time.Time) (int, error) {
	if r.bills == nil {
		return 0, fmt.Errorf("rollover not properly initialized")
	}

	bills, err := r.bills.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bills: %w", err)
	}

	scheduled := make(map[string]bool, len(bills))
	for _, b := range bills {
		scheduled[occurrenceKey(b.Name, b.DueDate)] = true
	}

	created := 0
	for _, b := range bills {
		if !b.Recurring || !b.IsPaid || !b.DueDate.Before(now) {
			continue
		}

		next, err := NextDueDate(b)
		if err != nil {
			slog.ErrorContext(ctx, "Cannot roll over bill", "id", b.ID, "frequency", b.Frequency, "error", err)
			continue
		}
		key := occurrenceKey(b.Name, next)
		if scheduled[key] {
			continue
		}

		nb, err := r.bills.Create(ctx, core.Bill{
			Name:      b.Name,
			Amount:    b.Amount,
			DueDate:   next,
			Recurring: true,
			Frequency: b.Frequency,
			Category:  b.Category,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create next bill occurrence",
				"bill_id", b.ID,
				"name", b.Name,
				"error", err)
			continue
		}
		scheduled[key] = true
		created++

		slog.InfoContext(ctx, "Rolled over recurring bill",
			"bill_id", b.ID,
			"new_bill_id", nb.ID,
			"name", b.Name,
			"due_date", next.String(),
			"frequency", b.Frequency)
	}

	slog.InfoContext(ctx, "Bill rollover complete",
		"created", created,
		"total_checked", len(bills))

	return created, nil
}

func occurrenceKey(name string, due core.Date) string {
	return name + "|" + due.String()
}
