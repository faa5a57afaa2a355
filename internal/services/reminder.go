package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/analytics"
	"financeflow/internal/notify"
)

// BillReminder emails the bills that are overdue or due within a week.
type BillReminder struct {
	svc      *FinanceService
	sender   notify.Sender
	to       []string
	currency string
}

func NewBillReminder(svc *FinanceService, sender notify.Sender, currency string, to ...string) *BillReminder {
	return &BillReminder{svc: svc, sender: sender, to: to, currency: currency}
}

// Send mails the digest for now. It reports false without sending when no
// bill needs attention.
func (r *BillReminder) Send(ctx context.Context, now time.Time) (bool, error) {
	bills, err := r.svc.Bills.List(ctx)
	if err != nil {
		return false, err
	}

	digest := notify.BillDigest{
		Generated: now,
		Currency:  r.currency,
		Upcoming:  analytics.DescribeBills(analytics.UpcomingBills(bills, now), now),
		Overdue:   analytics.DescribeBills(analytics.OverdueBills(bills, now), now),
	}
	if digest.Empty() {
		slog.DebugContext(ctx, "No bills to remind about")
		return false, nil
	}

	msg, err := digest.Message(r.to...)
	if err != nil {
		return false, err
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send bill reminder: %w", err)
	}

	slog.InfoContext(ctx, "Bill reminder sent",
		"upcoming", len(digest.Upcoming),
		"overdue", len(digest.Overdue))
	return true, nil
}
