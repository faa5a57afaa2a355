package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/analytics"
	"financeflow/internal/core"
	"financeflow/internal/notify"
	"financeflow/internal/records"
	"financeflow/internal/records/memory"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.RecordChangeMessage
	err  error
}

func (p *fakePublisher) PublishRecordChange(_ context.Context, msg *amqp.RecordChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Entity + ":" + m.Op
	}
	return out
}

type failingBills struct {
	records.Repository[core.Bill]
}

func (failingBills) GetAll(context.Context) ([]core.Bill, error) {
	return nil, errors.New("disk on fire")
}

func newTestService(pub ChangePublisher) (*FinanceService, *records.Store) {
	store := memory.New()
	return NewFinanceService(store, pub, WithClock(func() time.Time { return testNow })), store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecords_CreateValidatesAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	_, err := svc.Bills.Create(ctx, core.Bill{Name: "", Amount: dec("10"), DueDate: core.NewDate(2024, 1, 20), Category: "Utilities"})
	if !IsValidation(err) || !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("Create() error = %v, want validation error wrapping ErrEmptyName", err)
	}
	if len(pub.ops()) != 0 {
		t.Fatal("invalid records must not be announced")
	}

	bill, err := svc.Bills.Create(ctx, core.Bill{Name: "Rent", Amount: dec("1200"), DueDate: core.NewDate(2024, 2, 1), Category: "Housing"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if bill.ID != 1 {
		t.Errorf("ID = %d, want 1", bill.ID)
	}

	got, err := svc.Bills.Get(ctx, bill.ID)
	if err != nil || got.Name != "Rent" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
	if ops := pub.ops(); len(ops) != 1 || ops[0] != "bills:created" {
		t.Errorf("published = %v", ops)
	}
}

func TestRecords_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, _ := newTestService(&fakePublisher{err: errors.New("broker down")})
	if _, err := svc.Budgets.Create(context.Background(), core.Budget{Category: "Food", Allocated: dec("500")}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestRecords_UpdateAndDeleteMissing(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Budgets.Update(ctx, 42, core.Budget{Category: "Food", Allocated: dec("1")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := svc.Budgets.Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Budgets.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRecords_UpdateKeepsID(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	b, _ := svc.Budgets.Create(ctx, core.Budget{Category: "Food", Allocated: dec("500")})
	updated, err := svc.Budgets.Update(ctx, b.ID, core.Budget{ID: 99, Category: "Groceries", Allocated: dec("450")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != b.ID || updated.Category != "Groceries" {
		t.Errorf("Update() = %+v", updated)
	}
	if err := svc.Budgets.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	want := []string{"budgets:created", "budgets:updated", "budgets:deleted"}
	got := pub.ops()
	if len(got) != len(want) {
		t.Fatalf("published = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("published[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAccounts_StampedOnWrite(t *testing.T) {
	svc, _ := newTestService(nil)
	acc, err := svc.Accounts.Create(context.Background(), core.Account{Name: "Checking", Type: core.Checking, Balance: dec("100")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !acc.LastUpdated.Equal(testNow) || acc.Currency != core.DefaultCurrency {
		t.Errorf("account = %+v", acc)
	}
}

func TestBudgets_DefaultPeriod(t *testing.T) {
	svc, _ := newTestService(nil)
	b, err := svc.Budgets.Create(context.Background(), core.Budget{Category: "Food", Allocated: dec("400")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.Period != core.DefaultBudgetPeriod {
		t.Errorf("Period = %q, want %q", b.Period, core.DefaultBudgetPeriod)
	}
}

func TestGoals_StatusDerivedOnRead(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()

	// A stale stored status is corrected on the way out.
	stored, _ := store.Goals.Create(ctx, core.Goal{
		Name: "Car", TargetAmount: dec("100"), CurrentAmount: dec("150"),
		Deadline: core.NewDate(2024, 6, 1), Category: "Car", Status: core.GoalActive,
	})
	got, err := svc.Goals.Get(ctx, stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
}

func TestGoals_LoweringCurrentAmountReopens(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	g, err := svc.Goals.Create(ctx, core.Goal{
		Name: "Laptop", TargetAmount: dec("1800"), CurrentAmount: dec("1800"),
		Deadline: core.NewDate(2024, 6, 1), Category: "Education",
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != core.GoalCompleted {
		t.Fatalf("Status = %s, want completed", g.Status)
	}

	// A replace that withdraws savings makes the goal active again, even
	// when the body still claims it is completed.
	g.CurrentAmount = dec("1200")
	g.Status = core.GoalCompleted
	got, err := svc.Goals.Update(ctx, g.ID, g)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalActive {
		t.Errorf("Status = %s, want active", got.Status)
	}
}

func TestContributeToGoal(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	g, err := svc.Goals.Create(ctx, core.Goal{
		Name: "Emergency Fund", TargetAmount: dec("1000"), CurrentAmount: dec("750"),
		Deadline: core.NewDate(2024, 12, 31), Category: "Emergency Fund",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p := analytics.GoalProgress(g, testNow); p.Percentage != 75 || p.Label != analytics.GoalAlmostThereLabel {
		t.Errorf("progress before = %+v", p)
	}

	g, err = svc.ContributeToGoal(ctx, g.ID, dec("300"))
	if err != nil {
		t.Fatalf("ContributeToGoal() error = %v", err)
	}
	if !g.CurrentAmount.Equal(dec("1050")) || g.Status != core.GoalCompleted {
		t.Errorf("goal after = %+v", g)
	}
	if p := analytics.GoalProgress(g, testNow); p.Label != analytics.GoalCompletedLabel {
		t.Errorf("progress after = %+v", p)
	}

	if _, err := svc.ContributeToGoal(ctx, g.ID, dec("-5")); !IsValidation(err) {
		t.Errorf("negative contribution error = %v", err)
	}
	if _, err := svc.ContributeToGoal(ctx, 999, dec("5")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing goal error = %v", err)
	}
}

func TestMarkBillPaid(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	b, _ := svc.Bills.Create(ctx, core.Bill{Name: "Phone", Amount: dec("45"), DueDate: core.NewDate(2024, 1, 16), Category: "Phone"})

	paid, err := svc.MarkBillPaid(ctx, b.ID)
	if err != nil {
		t.Fatalf("MarkBillPaid() error = %v", err)
	}
	if !paid.IsPaid {
		t.Error("bill should be paid")
	}
	again, err := svc.MarkBillPaid(ctx, b.ID)
	if err != nil || !again.IsPaid {
		t.Errorf("second MarkBillPaid() = %+v, %v", again, err)
	}
	if _, err := svc.MarkBillPaid(ctx, 77); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing bill error = %v", err)
	}
}

func TestSnapshot_FailsAsUnit(t *testing.T) {
	store := memory.New()
	store.Bills = failingBills{}
	svc := NewFinanceService(store, nil)

	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("expected snapshot error")
	}
	if _, err := svc.Dashboard(context.Background()); err == nil {
		t.Fatal("expected dashboard error")
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	ok := created(t)

	ok(svc.Accounts.Create(ctx, core.Account{Name: "Checking", Type: core.Checking, Balance: dec("2500")}))
	ok(svc.Transactions.Create(ctx, core.Transaction{Date: core.NewDate(2024, 1, 3), Description: "Salary", Amount: dec("3000"), Category: "Income", Type: core.Income}))
	ok(svc.Transactions.Create(ctx, core.Transaction{Date: core.NewDate(2024, 1, 5), Description: "Groceries", Amount: dec("-150"), Category: "Food", Type: core.Expense}))
	ok(svc.Budgets.Create(ctx, core.Budget{Category: "Food", Allocated: dec("600")}))
	ok(svc.Bills.Create(ctx, core.Bill{Name: "Rent", Amount: dec("1200"), DueDate: core.NewDate(2024, 1, 16), Category: "Housing"}))

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !d.Summary.TotalBalance.Equal(dec("2500")) || !d.Summary.MonthlySpending.Equal(dec("150")) {
		t.Errorf("summary = %+v", d.Summary)
	}
	if len(d.RecentTransactions) != 2 || d.RecentTransactions[0].Description != "Groceries" {
		t.Errorf("recent = %+v", d.RecentTransactions)
	}
	if len(d.UpcomingBills) != 1 || d.UpcomingBills[0].State.Label != "Due in 1 days" {
		t.Errorf("upcoming = %+v", d.UpcomingBills)
	}
}

func TestTrend_WindowFallback(t *testing.T) {
	svc, _ := newTestService(nil)
	for _, tt := range []struct{ in, want int }{{3, 3}, {12, 12}, {0, 6}, {-1, 6}, {5, 6}} {
		r, err := svc.Trend(context.Background(), tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if r.Months != tt.want || len(r.Buckets) != tt.want {
			t.Errorf("Trend(%d) months = %d buckets = %d, want %d", tt.in, r.Months, len(r.Buckets), tt.want)
		}
		if last := r.Buckets[len(r.Buckets)-1].Month; last != "2024-01" {
			t.Errorf("Trend(%d) last bucket = %s", tt.in, last)
		}
	}
}

func TestBillRollover(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	ok := created(t)

	ok(svc.Bills.Create(ctx, core.Bill{Name: "Internet", Amount: dec("60"), DueDate: core.NewDate(2023, 12, 31), Recurring: true, Frequency: core.Monthly, Category: "Internet", IsPaid: true}))
	ok(svc.Bills.Create(ctx, core.Bill{Name: "Gym", Amount: dec("30"), DueDate: core.NewDate(2024, 1, 10), Recurring: true, Frequency: core.Monthly, Category: "Other"}))
	ok(svc.Bills.Create(ctx, core.Bill{Name: "Insurance", Amount: dec("300"), DueDate: core.NewDate(2024, 1, 1), Category: "Insurance", IsPaid: true}))
	ok(svc.Bills.Create(ctx, core.Bill{Name: "Streaming", Amount: dec("15"), DueDate: core.NewDate(2024, 2, 1), Recurring: true, Frequency: core.Monthly, Category: "Subscriptions", IsPaid: true}))

	rollover := NewBillRollover(svc)
	n, err := rollover.Run(ctx, testNow)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Run() created %d, want 1", n)
	}

	bills, _ := svc.Bills.List(ctx)
	next := bills[len(bills)-1]
	if next.Name != "Internet" || next.DueDate.String() != "2024-01-31" || next.IsPaid || !next.Recurring {
		t.Errorf("next occurrence = %+v", next)
	}

	n, err = rollover.Run(ctx, testNow)
	if err != nil || n != 0 {
		t.Errorf("second Run() = %d, %v, want 0", n, err)
	}
}

type fakeSender struct {
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestBillReminder(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	sender := &fakeSender{}
	reminder := NewBillReminder(svc, sender, "USD", "me@example.com")
	ok := created(t)

	sent, err := reminder.Send(ctx, testNow)
	if err != nil || sent {
		t.Fatalf("Send() with no bills = %v, %v", sent, err)
	}

	ok(svc.Bills.Create(ctx, core.Bill{Name: "Rent", Amount: dec("1200"), DueDate: core.NewDate(2024, 1, 16), Category: "Housing"}))
	ok(svc.Bills.Create(ctx, core.Bill{Name: "Water", Amount: dec("40"), DueDate: core.NewDate(2024, 1, 10), Category: "Utilities"}))

	sent, err = reminder.Send(ctx, testNow)
	if err != nil || !sent {
		t.Fatalf("Send() = %v, %v", sent, err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != "1 overdue bill(s), 1 due soon" || sender.sent[0].To[0] != "me@example.com" {
		t.Errorf("sent = %+v", sender.sent)
	}

	sender.err = errors.New("smtp down")
	if _, err := reminder.Send(ctx, testNow); err == nil {
		t.Error("expected send error")
	}
}

// created returns a checker for the (record, error) pair of a Create call.
func created(t *testing.T) func(any, error) {
	return func(_ any, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
}
