// Package schedule computes the weekly installment calendar of a loan.
//
// All comparisons work on calendar days: times are reduced to midnight UTC of their own
// calendar date before any subtraction, so daylight saving shifts and time-of-day never
// move an installment across a day boundary.
package schedule

import (
	"math"
	"time"
)

const (
	// DaysPerInstallment is the spacing between consecutive due dates.
	DaysPerInstallment = 7
	// GraceDays is how long a due installment stays "due this week" before it is missed.
	GraceDays = 7
)

type Timing string

const (
	TimingPast   Timing = "past"
	TimingToday  Timing = "today"
	TimingFuture Timing = "future"
)

// Entry is one position of a loan's schedule.
type Entry struct {
	InstallmentNumber int       `json:"installment_number"`
	DueDate           time.Time `json:"due_date"`
	DaysSinceDue      int       `json:"days_since_due"` // Negative for future due dates
	Timing            Timing    `json:"timing"`
}

// StartOfDay drops the time-of-day of t, keeping its calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueDate returns the due date of installment n (1-based).
func DueDate(firstInstallmentDate time.Time, n int) time.Time {
	return StartOfDay(firstInstallmentDate).AddDate(0, 0, DaysPerInstallment*(n-1))
}

// For returns the due-date sequence without reference to today.
func For(firstInstallmentDate time.Time, totalInstallments int) []Entry {
	if totalInstallments <= 0 {
		return nil
	}
	entries := make([]Entry, 0, totalInstallments)
	for i := 0; i < totalInstallments; i++ {
		entries = append(entries, Entry{
			InstallmentNumber: i + 1,
			DueDate:           DueDate(firstInstallmentDate, i+1),
		})
	}
	return entries
}

// Calculate returns the due-date sequence with each entry positioned relative to today.
func Calculate(firstInstallmentDate time.Time, totalInstallments int, today time.Time) []Entry {
	entries := For(firstInstallmentDate, totalInstallments)
	for i := range entries {
		days := DaysSince(entries[i].DueDate, today)
		entries[i].DaysSinceDue = days
		entries[i].Timing = timingOf(days)
	}
	return entries
}

func timingOf(daysSinceDue int) Timing {
	switch {
	case daysSinceDue == 0:
		return TimingToday
	case daysSinceDue < 0:
		return TimingFuture
	default:
		return TimingPast
	}
}

// DaysSince returns the whole days elapsed from due to today, rounded.
func DaysSince(due, today time.Time) int {
	diff := StartOfDay(today).Sub(StartOfDay(due))
	return int(math.Round(diff.Hours() / 24))
}

// WeekRolledOver reports whether today falls in a later ISO week than due.
func WeekRolledOver(due, today time.Time) bool {
	dueYear, dueWeek := StartOfDay(due).ISOWeek()
	todayYear, todayWeek := StartOfDay(today).ISOWeek()
	return todayYear > dueYear || (todayYear == dueYear && todayWeek > dueWeek)
}

// IsPastDue applies the grace rule: more than GraceDays elapsed, or the week rolled over.
func IsPastDue(due, today time.Time) bool {
	days := DaysSince(due, today)
	if days <= 0 {
		return false
	}
	return days > GraceDays || WeekRolledOver(due, today)
}

// WeekRange returns Monday and Friday of the working week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 4)
}

// NextWeekRange returns Monday and Friday of the week after t.
func NextWeekRange(t time.Time) (time.Time, time.Time) {
	monday, friday := WeekRange(t)
	return monday.AddDate(0, 0, 7), friday.AddDate(0, 0, 7)
}
