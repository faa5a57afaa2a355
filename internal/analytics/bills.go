package analytics

import (
	"fmt"
	"slices"
	"time"

	"financeflow/internal/core"
)

const (
	// UpcomingWindow is how far ahead a bill counts as upcoming.
	UpcomingWindow = 7 * day
	// UpcomingLimit caps the upcoming bills list.
	UpcomingLimit = 5
)

// BillState is the urgency classification of a bill.
type BillState struct {
	Label string `json:"label"`
	Tier  Tier   `json:"tier"`
	Days  int    `json:"daysUntilDue"`
}

// BillView pairs a bill with its current state.
type BillView struct {
	core.Bill
	State BillState `json:"state"`
}

// BillStatus classifies a bill relative to now.
func BillStatus(b core.Bill, now time.Time) BillState {
	days := daysUntil(b.DueDate.Time, now)
	if b.IsPaid {
		return BillState{Label: "Paid", Tier: TierSuccess, Days: days}
	}
	switch {
	case days < 0:
		return BillState{Label: "Overdue", Tier: TierError, Days: days}
	case days <= 2:
		return BillState{Label: fmt.Sprintf("Due in %d days", days), Tier: TierWarning, Days: days}
	case days <= 7:
		return BillState{Label: fmt.Sprintf("Due in %d days", days), Tier: TierInfo, Days: days}
	default:
		return BillState{Label: "Due " + b.DueDate.Format("Jan 2, 2006"), Tier: TierDefault, Days: days}
	}
}

// DescribeBills attaches a state to every bill.
func DescribeBills(bills []core.Bill, now time.Time) []BillView {
	out := make([]BillView, 0, len(bills))
	for _, b := range bills {
		out = append(out, BillView{Bill: b, State: BillStatus(b, now)})
	}
	return out
}

// UpcomingBills returns unpaid bills due between now and a week from now,
// soonest first, at most UpcomingLimit of them.
func UpcomingBills(bills []core.Bill, now time.Time) []core.Bill {
	limit := now.Add(UpcomingWindow)
	var out []core.Bill
	for _, b := range bills {
		if b.IsPaid || b.DueDate.Before(now) || b.DueDate.After(limit) {
			continue
		}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b core.Bill) int {
		return a.DueDate.Compare(b.DueDate.Time)
	})
	if len(out) > UpcomingLimit {
		out = out[:UpcomingLimit]
	}
	return out
}

// OverdueBills returns the unpaid bills whose due date has passed.
func OverdueBills(bills []core.Bill, now time.Time) []core.Bill {
	var out []core.Bill
	for _, b := range bills {
		if !b.IsPaid && daysUntil(b.DueDate.Time, now) < 0 {
			out = append(out, b)
		}
	}
	return out
}
