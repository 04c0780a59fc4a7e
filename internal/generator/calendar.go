package generator

import (
	"fmt"
	"time"

	"finops/pkg/contracts/domain"
)

// DateKey formats t as YYYYMMDD.
func DateKey(t time.Time) string {
	return t.Format("20060102")
}

// QuarterOf returns the calendar quarter (1-4) of a month.
func QuarterOf(month time.Month) int {
	return (int(month)-1)/3 + 1
}

// DateDimensions builds one row per day in [start, end].
func DateDimensions(start, end time.Time) []domain.DateDimension {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	out := make([]domain.DateDimension, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, domain.DateDimension{
			DateKey:   DateKey(d),
			Date:      d,
			Year:      d.Year(),
			Quarter:   fmt.Sprintf("Q%d", QuarterOf(d.Month())),
			Month:     int(d.Month()),
			MonthName: d.Month().String(),
			YearMonth: d.Format("2006-01"),
			DayOfWeek: d.Weekday().String(),
			IsWeekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
		})
	}
	return out
}

// MonthStarts returns every first-of-month date falling in [start, end].
func MonthStarts(start, end time.Time) []time.Time {
	start = truncateDay(start)
	end = truncateDay(end)

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if first.Before(start) {
		first = first.AddDate(0, 1, 0)
	}

	var out []time.Time
	for m := first; !m.After(end); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

// MonthsBetween counts whole calendar months from start's month to t's month.
func MonthsBetween(start, t time.Time) int {
	return (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
