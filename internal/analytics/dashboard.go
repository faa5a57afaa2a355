package analytics

import (
	"time"

	"financeflow/internal/core"

	"github.com/shopspring/decimal"
)

const (
	RecentTransactionLimit = 5
	BudgetOverviewLimit    = 4
)

// Summary holds the headline figures of the dashboard.
type Summary struct {
	TotalBalance      decimal.Decimal `json:"totalBalance"`
	MonthlyIncome     decimal.Decimal `json:"monthlyIncome"`
	MonthlySpending   decimal.Decimal `json:"monthlySpending"`
	TotalBudget       decimal.Decimal `json:"totalBudget"`
	BudgetUtilization float64         `json:"budgetUtilization"`
	GoalsProgress     float64         `json:"goalsProgress"`
}

// Dashboard is everything the overview page needs in one response.
type Dashboard struct {
	Summary            Summary            `json:"summary"`
	BudgetOverview     []BudgetUsage      `json:"budgetOverview"`
	RecentTransactions []core.Transaction `json:"recentTransactions"`
	UpcomingBills      []BillView         `json:"upcomingBills"`
	SpendingByCategory []CategoryTotal    `json:"spendingByCategory"`
	Goals              []GoalView         `json:"goals"`
}

// Summarize computes the headline figures for the calendar month of now.
func Summarize(accounts []core.Account, txs []core.Transaction, budgets []core.Budget, goals []core.Goal, now time.Time) Summary {
	s := Summary{
		TotalBalance:    decimal.Zero,
		MonthlyIncome:   decimal.Zero,
		MonthlySpending: decimal.Zero,
		TotalBudget:     decimal.Zero,
	}
	for _, a := range accounts {
		s.TotalBalance = s.TotalBalance.Add(a.Balance)
	}

	month := now.Format("2006-01")
	for _, tx := range txs {
		if tx.Date.MonthKey() != month {
			continue
		}
		switch tx.Type {
		case core.Expense:
			s.MonthlySpending = s.MonthlySpending.Add(tx.Magnitude())
		case core.Income:
			s.MonthlyIncome = s.MonthlyIncome.Add(tx.Amount)
		}
	}

	for _, b := range budgets {
		s.TotalBudget = s.TotalBudget.Add(b.Allocated)
	}
	s.BudgetUtilization = display(percentOf(s.MonthlySpending, s.TotalBudget))

	if len(goals) > 0 {
		completed := 0
		for _, g := range goals {
			if g.Status == core.GoalCompleted || g.Reached() {
				completed++
			}
		}
		s.GoalsProgress = display(percentOf(decimal.NewFromInt(int64(completed)), decimal.NewFromInt(int64(len(goals)))))
	}
	return s
}

// BuildDashboard assembles the overview from full collections.
// Transactions are expected newest first, as the record store returns them.
func BuildDashboard(accounts []core.Account, txs []core.Transaction, budgets []core.Budget, bills []core.Bill, goals []core.Goal, now time.Time) Dashboard {
	overview := budgets
	if len(overview) > BudgetOverviewLimit {
		overview = overview[:BudgetOverviewLimit]
	}
	recent := txs
	if len(recent) > RecentTransactionLimit {
		recent = recent[:RecentTransactionLimit]
	}
	return Dashboard{
		Summary:            Summarize(accounts, txs, budgets, goals, now),
		BudgetOverview:     BudgetsVsActual(overview, txs),
		RecentTransactions: append([]core.Transaction(nil), recent...),
		UpcomingBills:      DescribeBills(UpcomingBills(bills, now), now),
		SpendingByCategory: SpendByCategory(txs),
		Goals:              DescribeGoals(goals, now),
	}
}
