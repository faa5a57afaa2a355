package services

// This file implements the strategy pattern for advancing a recurring bill's
// due date. Each frequency has its own stepper, looked up from a registry.

import (
	"fmt"
	"time"

	"financeflow/internal/core"
)

// DueDateStepper computes the next due date of a recurring bill.
type DueDateStepper interface {
	Next(due time.Time) time.Time
}

// DayStepper advances by a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Next(due time.Time) time.Time {
	return due.AddDate(0, 0, s.Days)
}

// MonthStepper advances by whole months, clamping to the last day of the
// target month so Jan 31 becomes Feb 29 (or 28), not Mar 2.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Next(due time.Time) time.Time {
	return addMonthsClamped(due, s.Months)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	lastDay := time.Date(y, m+time.Month(months)+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+time.Month(months), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

var dueDateSteppers = map[core.Frequency]DueDateStepper{
	core.Weekly:    DayStepper{Days: 7},
	core.BiWeekly:  DayStepper{Days: 14},
	core.Monthly:   MonthStepper{Months: 1},
	core.Quarterly: MonthStepper{Months: 3},
	core.Yearly:    MonthStepper{Months: 12},
}

// GetDueDateStepper returns the stepper for a frequency.
func GetDueDateStepper(frequency core.Frequency) (DueDateStepper, error) {
	stepper, ok := dueDateSteppers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return stepper, nil
}

// NextDueDate is the due date of the occurrence after b.
func NextDueDate(b core.Bill) (core.Date, error) {
	stepper, err := GetDueDateStepper(b.Frequency)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: stepper.Next(b.DueDate.Time)}, nil
}
