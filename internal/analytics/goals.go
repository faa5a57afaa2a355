package analytics

import (
	"time"

	"financeflow/internal/core"

	"github.com/shopspring/decimal"
)

const (
	GoalCompletedLabel   = "Completed"
	GoalAlmostThereLabel = "Almost There"
	GoalInProgressLabel  = "In Progress"
	GoalJustStartedLabel = "Just Started"
)

var (
	almostThere = decimal.NewFromInt(75)
	inProgress  = decimal.NewFromInt(25)
)

// GoalState is the progress of a savings goal.
type GoalState struct {
	Percentage    float64         `json:"percentage"`
	Label         string          `json:"label"`
	Remaining     decimal.Decimal `json:"remaining"`
	DaysRemaining int             `json:"daysRemaining"`
	Overdue       bool            `json:"overdue"`
}

// GoalView pairs a goal with its progress.
type GoalView struct {
	core.Goal
	Progress GoalState `json:"progress"`
}

// GoalProgress computes how far a goal is from its target as of now.
// A past deadline only flags the goal as overdue.
func GoalProgress(g core.Goal, now time.Time) GoalState {
	pct := percentOf(g.CurrentAmount, g.TargetAmount)
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	days := daysUntil(g.Deadline.Time, now)

	var label string
	switch {
	case g.Status == core.GoalCompleted || pct.GreaterThanOrEqual(hundred):
		label = GoalCompletedLabel
	case pct.GreaterThanOrEqual(almostThere):
		label = GoalAlmostThereLabel
	case pct.GreaterThanOrEqual(inProgress):
		label = GoalInProgressLabel
	default:
		label = GoalJustStartedLabel
	}

	return GoalState{
		Percentage:    display(pct),
		Label:         label,
		Remaining:     remaining,
		DaysRemaining: days,
		Overdue:       days < 0 && label != GoalCompletedLabel,
	}
}

// DescribeGoals attaches progress to every goal.
func DescribeGoals(goals []core.Goal, now time.Time) []GoalView {
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalView{Goal: g, Progress: GoalProgress(g, now)})
	}
	return out
}
