// Package services runs the background work around the store: budget and
// goal alerts, recurring transaction reminders and persistence.
//
// This file holds one dueness strategy per recurrence frequency. A strategy
// answers when the next occurrence of a recurring series falls, given the
// date of its latest posted occurrence and the date the series started.
package services

import (
	"fmt"

	"fintrack/internal/core"
)

// DuenessChecker decides when a recurring series next falls due.
type DuenessChecker interface {
	// NextDue returns the date of the occurrence following last. anchor is
	// the first occurrence and fixes the day of month and month of year.
	NextDue(last, anchor core.Date) core.Date
}

// IsDue reports whether the occurrence after last is due on or before today.
// A series that never ran is always due.
func IsDue(c DuenessChecker, last, today, anchor core.Date) bool {
	if last.IsZero() {
		return true
	}
	return !today.Before(c.NextDue(last, anchor))
}

// DailyChecker: due every calendar day.
type DailyChecker struct{}

func (DailyChecker) NextDue(last, _ core.Date) core.Date {
	return core.Date{Time: last.AddDate(0, 0, 1)}
}

// WeeklyChecker: due seven days after the last occurrence.
type WeeklyChecker struct{}

func (WeeklyChecker) NextDue(last, _ core.Date) core.Date {
	return core.Date{Time: last.AddDate(0, 0, 7)}
}

// MonthlyChecker: due in the month after the last occurrence on the anchor's
// day, clamped to the end of shorter months.
type MonthlyChecker struct{}

func (MonthlyChecker) NextDue(last, anchor core.Date) core.Date {
	year, month := last.Year(), last.Month()+1
	if month > 12 {
		year, month = year+1, 1
	}
	return clampedDate(year, month, dayOf(anchor, last))
}

// YearlyChecker: due in the year after the last occurrence on the anchor's
// month and day, clamped for February 29.
type YearlyChecker struct{}

func (YearlyChecker) NextDue(last, anchor core.Date) core.Date {
	month := anchor.Month()
	if anchor.IsZero() {
		month = last.Month()
	}
	return clampedDate(last.Year()+1, month, dayOf(anchor, last))
}

func dayOf(anchor, fallback core.Date) int {
	if anchor.IsZero() {
		return fallback.Day()
	}
	return anchor.Day()
}

func clampedDate(year, month, day int) core.Date {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// daysIn returns the number of days in month of year.
func daysIn(year, month int) int {
	return core.NewDate(year, month+1, 0).Day()
}

// duenessStrategies maps recurrence frequencies to their checkers.
var duenessStrategies = map[core.RepetitionTypes]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for frequency.
func GetDuenessChecker(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker adds or replaces the checker for frequency.
func RegisterDuenessChecker(frequency core.RepetitionTypes, checker DuenessChecker) {
	duenessStrategies[frequency] = checker
}
