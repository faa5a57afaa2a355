package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "bi-weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
	OtherType  AccountType = "other"
)

const (
	DefaultCurrency     = "USD"
	DefaultBudgetPeriod = "monthly"
)

type (
	TransactionType string
	Frequency       string
	GoalStatus      string
	AccountType     string

	Account struct {
		ID          int64           `json:"id"`
		Name        string          `json:"name"`
		Type        AccountType     `json:"type"`
		Institution string          `json:"institution"`
		Balance     decimal.Decimal `json:"balance"`
		Currency    string          `json:"currency"`
		LastUpdated Date            `json:"lastUpdated"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		AccountID   int64           `json:"accountId"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
		Notes       string          `json:"notes,omitempty"`
	}

	Budget struct {
		ID           int64           `json:"id"`
		Category     string          `json:"category"`
		Allocated    decimal.Decimal `json:"allocated"`
		Period       string          `json:"period"`
		AlertEnabled bool            `json:"alertEnabled"`
		StartDate    Date            `json:"startDate"`
	}

	Bill struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		DueDate   Date            `json:"dueDate"`
		Recurring bool            `json:"recurring"`
		Frequency Frequency       `json:"frequency"`
		Category  string          `json:"category"`
		IsPaid    bool            `json:"isPaid"`
	}

	Goal struct {
		ID            int64           `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		Deadline      Date            `json:"deadline"`
		Category      string          `json:"category"`
		Status        GoalStatus      `json:"status"`
	}

	// Testimonial is a read-only customer quote shown alongside the app.
	Testimonial struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Title  string `json:"title"`
		Quote  string `json:"quote"`
		Rating int    `json:"rating"`
	}
)

// Entity is implemented by every persisted record type.
type Entity[T any] interface {
	RecordID() int64
	WithRecordID(id int64) T
	Validate() error
}

var (
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidAccount    = errors.New("invalid account type")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrEmptyQuote        = errors.New("empty quote")
	ErrInvalidRating     = errors.New("invalid rating (must be 1 to 5)")
)

// FeaturedRating is the rating a testimonial needs to be featured.
const FeaturedRating = 5

var (
	TransactionCategories = []string{"Housing", "Food", "Transportation", "Entertainment", "Healthcare", "Shopping", "Utilities", "Income", "Other"}
	BillCategories        = []string{"Utilities", "Housing", "Insurance", "Subscriptions", "Credit Card", "Loan", "Phone", "Internet", "Other"}
	GoalCategories        = []string{"Emergency Fund", "Vacation", "Home", "Car", "Education", "Investment", "Debt Payoff", "Retirement", "Other"}
	Frequencies           = []Frequency{Weekly, BiWeekly, Monthly, Quarterly, Yearly}
)

func (a Account) RecordID() int64 { return a.ID }
func (a Account) WithRecordID(id int64) Account { a.ID = id; return a }
func (t Transaction) RecordID() int64 { return t.ID }
func (t Transaction) WithRecordID(id int64) Transaction { t.ID = id; return t }
func (b Budget) RecordID() int64 { return b.ID }
func (b Budget) WithRecordID(id int64) Budget { b.ID = id; return b }
func (b Bill) RecordID() int64 { return b.ID }
func (b Bill) WithRecordID(id int64) Bill { b.ID = id; return b }
func (g Goal) RecordID() int64 { return g.ID }
func (g Goal) WithRecordID(id int64) Goal { g.ID = id; return g }
func (t Testimonial) RecordID() int64 { return t.ID }
func (t Testimonial) WithRecordID(id int64) Testimonial { t.ID = id; return t }

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

func (a AccountType) Valid() bool {
	switch a {
	case Checking, Savings, Credit, Investment, OtherType:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccount
	}
	if a.Currency != "" && len(a.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Touch stamps the account as updated at now and fills in the default currency.
func (a Account) Touch(now time.Time) Account {
	a.LastUpdated = Date{Time: now}
	if a.Currency == "" {
		a.Currency = DefaultCurrency
	}
	return a
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLength
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// IsExpense reports whether the transaction counts towards spending.
func (t Transaction) IsExpense() bool { return t.Type == Expense }

// Magnitude is the unsigned amount used by every aggregation.
func (t Transaction) Magnitude() decimal.Decimal { return t.Amount.Abs() }

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !b.Allocated.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// WithDefaults fills in the period label when it is missing.
func (b Budget) WithDefaults() Budget {
	if strings.TrimSpace(b.Period) == "" {
		b.Period = DefaultBudgetPeriod
	}
	return b
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := b.DueDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Frequency != "" && !b.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if b.Recurring && b.Frequency == "" {
		return ErrInvalidFrequency
	}
	return nil
}

// MarkPaid returns the bill with isPaid set. There is no way back.
func (b Bill) MarkPaid() Bill {
	b.IsPaid = true
	return b
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := g.Deadline.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(g.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Reached reports whether the saved amount covers the target.
func (g Goal) Reached() bool {
	return g.TargetAmount.IsPositive() && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Reconcile overwrites the stored status with the one derived from the amounts.
func (g Goal) Reconcile() Goal {
	if g.Reached() {
		g.Status = GoalCompleted
	} else {
		g.Status = GoalActive
	}
	return g
}

// Contribute adds delta to the saved amount and completes the goal once
// the target is reached.
func (g Goal) Contribute(delta decimal.Decimal) (Goal, error) {
	if !delta.IsPositive() {
		return g, ErrInvalidAmount
	}
	g.CurrentAmount = g.CurrentAmount.Add(delta)
	return g.Reconcile(), nil
}

func (t Testimonial) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(t.Quote) == "" {
		return ErrEmptyQuote
	}
	if t.Rating < 1 || t.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// Featured reports whether the testimonial carries a top rating.
func (t Testimonial) Featured() bool { return t.Rating >= FeaturedRating }
