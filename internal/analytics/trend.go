package analytics

import (
	"time"

	"financeflow/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultTrendMonths is used when a caller passes a non-positive window.
const DefaultTrendMonths = 6

// TrendWindows are the window sizes the API accepts.
var TrendWindows = []int{3, 6, 12}

// MonthBucket holds income and expenses for one calendar month.
type MonthBucket struct {
	Month    string          `json:"month"` // YYYY-MM
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// MonthlyTrend buckets transactions into the last months calendar months,
// ending with the month of now, oldest first. Transactions outside the
// window are ignored.
func MonthlyTrend(txs []core.Transaction, months int, now time.Time) []MonthBucket {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	buckets := make([]MonthBucket, months)
	index := make(map[string]int, months)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := range buckets {
		m := first.AddDate(0, i-(months-1), 0)
		key := m.Format("2006-01")
		buckets[i] = MonthBucket{
			Month:    key,
			Label:    m.Format("Jan 2006"),
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		index[key] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case core.Expense:
			buckets[i].Expenses = buckets[i].Expenses.Add(tx.Magnitude())
		}
	}
	return buckets
}

// TrendAverages returns the mean monthly income and expenses over buckets.
func TrendAverages(buckets []MonthBucket) (income, expenses decimal.Decimal) {
	if len(buckets) == 0 {
		return decimal.Zero, decimal.Zero
	}
	income, expenses = decimal.Zero, decimal.Zero
	for _, b := range buckets {
		income = income.Add(b.Income)
		expenses = expenses.Add(b.Expenses)
	}
	n := decimal.NewFromInt(int64(len(buckets)))
	return income.Div(n).Round(2), expenses.Div(n).Round(2)
}
