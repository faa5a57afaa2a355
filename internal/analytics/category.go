package analytics

import (
	"slices"

	"financeflow/internal/core"

	"github.com/shopspring/decimal"
)

// TopCategoryLimit is how many categories the ranking keeps.
const TopCategoryLimit = 5

// CategoryTotal is an expense total for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategorySpend sums the absolute amount of every expense in category.
// Matching is exact and case-sensitive.
func CategorySpend(txs []core.Transaction, category string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsExpense() && tx.Category == category {
			total = total.Add(tx.Magnitude())
		}
	}
	return total
}

// SpendByCategory totals expenses per category in first-encountered order.
func SpendByCategory(txs []core.Transaction) []CategoryTotal {
	index := make(map[string]int)
	var out []CategoryTotal
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Magnitude())
	}
	return out
}

// TopCategories ranks categories by expense total, highest first, and keeps
// at most limit of them. Equal totals keep first-encountered order.
func TopCategories(txs []core.Transaction, limit int) []CategoryTotal {
	if limit <= 0 {
		limit = TopCategoryLimit
	}
	totals := SpendByCategory(txs)
	slices.SortStableFunc(totals, func(a, b CategoryTotal) int {
		return b.Amount.Cmp(a.Amount)
	})
	if len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}
