package analytics

import (
	"strings"

	"financeflow/internal/core"
)

// TransactionFilter narrows a transaction list. Zero fields match everything.
type TransactionFilter struct {
	Search   string
	Category string
	Type     core.TransactionType
}

// FilterTransactions keeps the transactions matching f, preserving order.
// Search is a case-insensitive substring match on description and notes.
func FilterTransactions(txs []core.Transaction, f TransactionFilter) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if needle != "" &&
			!strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.Notes), needle) {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		out = append(out, tx)
	}
	return out
}
