package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"financeflow/internal/analytics"
	"financeflow/internal/core"
	"financeflow/internal/records"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// FinanceService is the entry point the HTTP layer and the workers use.
type FinanceService struct {
	Accounts     *Records[core.Account]
	Transactions *Records[core.Transaction]
	Budgets      *Records[core.Budget]
	Bills        *Records[core.Bill]
	Goals        *Records[core.Goal]
	Testimonials *Testimonials

	now func() time.Time
}

// Option customizes a FinanceService.
type Option func(*FinanceService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

// WithTestimonials serves testimonials from repo instead of an empty set.
func WithTestimonials(repo records.Reader[core.Testimonial]) Option {
	return func(s *FinanceService) { s.Testimonials = NewTestimonials(repo) }
}

// NewFinanceService wires the store collections. publisher may be nil.
func NewFinanceService(store *records.Store, publisher ChangePublisher, opts ...Option) *FinanceService {
	s := &FinanceService{now: time.Now, Testimonials: NewTestimonials(nil)}
	for _, opt := range opts {
		opt(s)
	}
	clock := func() time.Time { return s.now() }

	s.Accounts = newRecords(records.KindAccounts, store.Accounts, publisher, clock)
	s.Accounts.beforeWrite = func(a core.Account, now time.Time) core.Account { return a.Touch(now) }

	s.Transactions = newRecords(records.KindTransactions, store.Transactions, publisher, clock)
	s.Budgets = newRecords(records.KindBudgets, store.Budgets, publisher, clock)
	s.Budgets.beforeWrite = func(b core.Budget, _ time.Time) core.Budget { return b.WithDefaults() }
	s.Bills = newRecords(records.KindBills, store.Bills, publisher, clock)

	s.Goals = newRecords(records.KindGoals, store.Goals, publisher, clock)
	s.Goals.beforeWrite = func(g core.Goal, _ time.Time) core.Goal { return g.Reconcile() }
	s.Goals.afterRead = core.Goal.Reconcile
	return s
}

// Now returns the service clock.
func (s *FinanceService) Now() time.Time { return s.now() }

// MarkBillPaid flags a bill as paid. Paying a paid bill is a no-op write.
func (s *FinanceService) MarkBillPaid(ctx context.Context, id int64) (core.Bill, error) {
	bill, err := s.Bills.Get(ctx, id)
	if err != nil {
		return bill, err
	}
	return s.Bills.Update(ctx, id, bill.MarkPaid())
}

// ContributeToGoal adds amount to a goal's saved amount.
func (s *FinanceService) ContributeToGoal(ctx context.Context, id int64, amount decimal.Decimal) (core.Goal, error) {
	goal, err := s.Goals.Get(ctx, id)
	if err != nil {
		return goal, err
	}
	next, err := goal.Contribute(amount)
	if err != nil {
		return goal, &ValidationError{Err: err}
	}
	return s.Goals.Update(ctx, id, next)
}

// Snapshot is every collection read at roughly the same time.
type Snapshot struct {
	Accounts     []core.Account
	Transactions []core.Transaction
	Budgets      []core.Budget
	Bills        []core.Bill
	Goals        []core.Goal
}

// Snapshot reads the five collections concurrently; any failure fails all.
func (s *FinanceService) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.Accounts, err = s.Accounts.List(ctx); return })
	g.Go(func() (err error) { snap.Transactions, err = s.Transactions.List(ctx); return })
	g.Go(func() (err error) { snap.Budgets, err = s.Budgets.List(ctx); return })
	g.Go(func() (err error) { snap.Bills, err = s.Bills.List(ctx); return })
	g.Go(func() (err error) { snap.Goals, err = s.Goals.List(ctx); return })
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

func (s *FinanceService) Dashboard(ctx context.Context) (analytics.Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	return analytics.BuildDashboard(snap.Accounts, snap.Transactions, snap.Budgets, snap.Bills, snap.Goals, s.now()), nil
}

// TrendReport is the monthly income/expense series with its averages.
type TrendReport struct {
	Months          int                     `json:"months"`
	Buckets         []analytics.MonthBucket `json:"buckets"`
	AverageIncome   decimal.Decimal         `json:"averageIncome"`
	AverageExpenses decimal.Decimal         `json:"averageExpenses"`
}

// Trend buckets transactions by month. Windows other than 3, 6 or 12
// fall back to the default of 6.
func (s *FinanceService) Trend(ctx context.Context, months int) (TrendReport, error) {
	if !slices.Contains(analytics.TrendWindows, months) {
		months = analytics.DefaultTrendMonths
	}
	txs, err := s.Transactions.List(ctx)
	if err != nil {
		return TrendReport{}, err
	}
	buckets := analytics.MonthlyTrend(txs, months, s.now())
	income, expenses := analytics.TrendAverages(buckets)
	return TrendReport{Months: months, Buckets: buckets, AverageIncome: income, AverageExpenses: expenses}, nil
}

func (s *FinanceService) SpendByCategory(ctx context.Context) ([]analytics.CategoryTotal, error) {
	txs, err := s.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.SpendByCategory(txs), nil
}

func (s *FinanceService) TopCategories(ctx context.Context) ([]analytics.CategoryTotal, error) {
	txs, err := s.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.TopCategories(txs, analytics.TopCategoryLimit), nil
}

// BudgetReport compares every budget with the spending in its category.
func (s *FinanceService) BudgetReport(ctx context.Context) ([]analytics.BudgetUsage, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { budgets, err = s.Budgets.List(gctx); return })
	g.Go(func() (err error) { txs, err = s.Transactions.List(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analytics.BudgetsVsActual(budgets, txs), nil
}

// DescribedBills returns every bill with its status.
func (s *FinanceService) DescribedBills(ctx context.Context) ([]analytics.BillView, error) {
	bills, err := s.Bills.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DescribeBills(bills, s.now()), nil
}

func (s *FinanceService) UpcomingBills(ctx context.Context) ([]analytics.BillView, error) {
	bills, err := s.Bills.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return analytics.DescribeBills(analytics.UpcomingBills(bills, now), now), nil
}

// DescribedGoals returns every goal with its progress.
func (s *FinanceService) DescribedGoals(ctx context.Context) ([]analytics.GoalView, error) {
	goals, err := s.Goals.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DescribeGoals(goals, s.now()), nil
}

func (s *FinanceService) SearchTransactions(ctx context.Context, f analytics.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.Transactions.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.FilterTransactions(txs, f), nil
}
