package analytics

import (
	"financeflow/internal/core"

	"github.com/shopspring/decimal"
)

// BudgetUsage is a budget joined with what was actually spent against it.
type BudgetUsage struct {
	Budget     core.Budget     `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Variance   decimal.Decimal `json:"variance"`
	Percentage float64         `json:"percentage"`
	Tier       Tier            `json:"tier"`
	Label      string          `json:"label"`
}

var (
	overBudget = decimal.NewFromInt(100)
	nearLimit  = decimal.NewFromInt(80)
)

// UtilizationTier maps a utilization percentage to its tier and label.
// Both thresholds are inclusive lower bounds.
func UtilizationTier(pct decimal.Decimal) (Tier, string) {
	switch {
	case pct.GreaterThanOrEqual(overBudget):
		return TierError, "Over Budget"
	case pct.GreaterThanOrEqual(nearLimit):
		return TierWarning, "Near Limit"
	default:
		return TierSuccess, "On Track"
	}
}

// Utilization computes spend, remaining and tier for one budget.
func Utilization(b core.Budget, txs []core.Transaction) BudgetUsage {
	spent := CategorySpend(txs, b.Category)
	remaining := b.Allocated.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	pct := percentOf(spent, b.Allocated)
	tier, label := UtilizationTier(pct)
	return BudgetUsage{
		Budget:     b,
		Spent:      spent,
		Remaining:  remaining,
		Variance:   b.Allocated.Sub(spent),
		Percentage: display(pct),
		Tier:       tier,
		Label:      label,
	}
}

// BudgetsVsActual computes utilization for every budget, keeping their order.
func BudgetsVsActual(budgets []core.Budget, txs []core.Transaction) []BudgetUsage {
	out := make([]BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, Utilization(b, txs))
	}
	return out
}
