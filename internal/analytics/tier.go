// Package analytics turns raw record collections into the derived figures a
// dashboard shows: category spend, budget utilization, monthly trend buckets,
// bill urgency and goal progress.
//
// Every function here is pure. Callers pass the full collections and the
// reference time; nothing is cached and nothing can fail. Missing data
// degrades to zero values.
package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the severity bucket a derived figure is rendered with.
type Tier string

const (
	TierSuccess Tier = "success"
	TierInfo    Tier = "info"
	TierWarning Tier = "warning"
	TierError   Tier = "error"
	TierDefault Tier = "default"
)

const day = 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole*100, or zero when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// display rounds a percentage for JSON output.
func display(pct decimal.Decimal) float64 {
	return pct.Round(2).InexactFloat64()
}

// daysUntil is the number of started days between now and t, rounded up.
// Negative values mean t is in the past.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(float64(t.Sub(now)) / float64(day)))
}
