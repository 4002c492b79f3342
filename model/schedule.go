package model

import "time"

// DateLayout is the canonical storage format for appointment dates.
const DateLayout = "2006-01-02"

// dateOnly truncates t to midnight UTC so date comparisons ignore the clock.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextBusinessDay returns the next calendar day after date, skipping Saturdays
// and Sundays. The result is always strictly after date and never a weekend day.
func NextBusinessDay(date time.Time) time.Time {
	next := dateOnly(date).AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextBusinessDays returns the num business days strictly after date in
// ascending order. Used to present the booking horizon on the booking screen.
func NextBusinessDays(date time.Time, num int) []time.Time {
	days := make([]time.Time, 0, num)
	next := NextBusinessDay(date)
	for len(days) < num {
		days = append(days, next)
		next = NextBusinessDay(next)
	}
	return days
}
