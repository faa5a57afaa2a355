package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/records"

	"github.com/shopspring/decimal"
)

// codec maps one record type to sheet cells.
type codec[T any] struct {
	columns []string // header written to an empty tab
	decode  func(r *fieldReader) T
	encode  func(T) map[string]any
}

// fieldReader reads typed cells by field name. The first parse error
// sticks in err and later reads return zero values.
type fieldReader struct {
	index map[string]int
	cells []string
	err   error
}

func (r *fieldReader) str(field string) string {
	i, ok := r.index[records.NormalizeField(field)]
	if !ok {
		return ""
	}
	return safeGet(r.cells, i)
}

func (r *fieldReader) fail(field, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("field %s: %q: %w", field, value, err)
	}
}

func (r *fieldReader) integer(field string) int64 {
	s := r.str(field)
	if s == "" || r.err != nil {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Numeric cells may come back as "3.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(field, s, err)
		return 0
	}
	return int64(f)
}

func (r *fieldReader) amount(field string) decimal.Decimal {
	s := r.str(field)
	if s == "" || r.err != nil {
		return decimal.Zero
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		r.fail(field, s, err)
		return decimal.Zero
	}
	return d
}

func (r *fieldReader) flag(field string) bool {
	switch strings.ToLower(r.str(field)) {
	case "true", "yes", "1", "x":
		return true
	}
	return false
}

func (r *fieldReader) date(field string) core.Date {
	s := r.str(field)
	if s == "" || r.err != nil {
		return core.Date{}
	}
	if d, err := core.ParseDate(s); err == nil {
		return d
	}
	t, err := time.Parse("1/2/2006", s)
	if err != nil {
		r.fail(field, s, core.ErrInvalidDate)
		return core.Date{}
	}
	return core.Date{Time: t}
}

// fields builds a normalized field map from alternating key/value pairs.
func fields(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[records.NormalizeField(kv[i].(string))] = kv[i+1]
	}
	return out
}

func cellDate(d core.Date) string {
	return d.String()
}

var accountCodec = codec[core.Account]{
	columns: []string{"id", "name", "type", "institution", "balance", "currency", "lastUpdated"},
	decode: func(r *fieldReader) core.Account {
		return core.Account{
			ID:          r.integer("id"),
			Name:        r.str("name"),
			Type:        core.AccountType(strings.ToLower(r.str("type"))),
			Institution: r.str("institution"),
			Balance:     r.amount("balance"),
			Currency:    r.str("currency"),
			LastUpdated: r.date("lastUpdated"),
		}
	},
	encode: func(a core.Account) map[string]any {
		updated := ""
		if !a.LastUpdated.IsZero() {
			updated = a.LastUpdated.Format(time.RFC3339)
		}
		return fields("id", a.ID, "name", a.Name, "type", string(a.Type), "institution", a.Institution,
			"balance", a.Balance.String(), "currency", a.Currency, "lastUpdated", updated)
	},
}

var transactionCodec = codec[core.Transaction]{
	columns: []string{"id", "accountId", "date", "description", "amount", "category", "type", "notes"},
	decode: func(r *fieldReader) core.Transaction {
		return core.Transaction{
			ID:          r.integer("id"),
			AccountID:   r.integer("accountId"),
			Date:        r.date("date"),
			Description: r.str("description"),
			Amount:      r.amount("amount"),
			Category:    r.str("category"),
			Type:        core.TransactionType(strings.ToLower(r.str("type"))),
			Notes:       r.str("notes"),
		}
	},
	encode: func(tx core.Transaction) map[string]any {
		return fields("id", tx.ID, "accountId", tx.AccountID, "date", cellDate(tx.Date), "description", tx.Description,
			"amount", tx.Amount.String(), "category", tx.Category, "type", string(tx.Type), "notes", tx.Notes)
	},
}

var budgetCodec = codec[core.Budget]{
	columns: []string{"id", "category", "allocated", "period", "alertEnabled", "startDate"},
	decode: func(r *fieldReader) core.Budget {
		return core.Budget{
			ID:           r.integer("id"),
			Category:     r.str("category"),
			Allocated:    r.amount("allocated"),
			Period:       r.str("period"),
			AlertEnabled: r.flag("alertEnabled"),
			StartDate:    r.date("startDate"),
		}
	},
	encode: func(b core.Budget) map[string]any {
		return fields("id", b.ID, "category", b.Category, "allocated", b.Allocated.String(), "period", b.Period,
			"alertEnabled", b.AlertEnabled, "startDate", cellDate(b.StartDate))
	},
}

var billCodec = codec[core.Bill]{
	columns: []string{"id", "name", "amount", "dueDate", "recurring", "frequency", "category", "isPaid"},
	decode: func(r *fieldReader) core.Bill {
		return core.Bill{
			ID:        r.integer("id"),
			Name:      r.str("name"),
			Amount:    r.amount("amount"),
			DueDate:   r.date("dueDate"),
			Recurring: r.flag("recurring"),
			Frequency: core.Frequency(strings.ToLower(r.str("frequency"))),
			Category:  r.str("category"),
			IsPaid:    r.flag("isPaid"),
		}
	},
	encode: func(b core.Bill) map[string]any {
		return fields("id", b.ID, "name", b.Name, "amount", b.Amount.String(), "dueDate", cellDate(b.DueDate),
			"recurring", b.Recurring, "frequency", string(b.Frequency), "category", b.Category, "isPaid", b.IsPaid)
	},
}

var goalCodec = codec[core.Goal]{
	columns: []string{"id", "name", "targetAmount", "currentAmount", "deadline", "category", "status"},
	decode: func(r *fieldReader) core.Goal {
		return core.Goal{
			ID:            r.integer("id"),
			Name:          r.str("name"),
			TargetAmount:  r.amount("targetAmount"),
			CurrentAmount: r.amount("currentAmount"),
			Deadline:      r.date("deadline"),
			Category:      r.str("category"),
			Status:        core.GoalStatus(strings.ToLower(r.str("status"))),
		}
	},
	encode: func(g core.Goal) map[string]any {
		return fields("id", g.ID, "name", g.Name, "targetAmount", g.TargetAmount.String(),
			"currentAmount", g.CurrentAmount.String(), "deadline", cellDate(g.Deadline), "category", g.Category,
			"status", string(g.Status))
	},
}
