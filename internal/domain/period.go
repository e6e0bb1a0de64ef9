package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is a performance look-back window
type Period int

const (
	PeriodDaily Period = iota
	PeriodWeekly
	PeriodMonthly
	PeriodQuarterly
	PeriodYearly
	PeriodYTD
	PeriodAllTime
)

// Periods lists every period in display order
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly, PeriodYTD, PeriodAllTime}

func (p Period) String() string {
	switch p {
	case PeriodDaily:
		return "daily"
	case PeriodWeekly:
		return "weekly"
	case PeriodMonthly:
		return "monthly"
	case PeriodQuarterly:
		return "quarterly"
	case PeriodYearly:
		return "yearly"
	case PeriodYTD:
		return "ytd"
	case PeriodAllTime:
		return "all_time"
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod parses a period name case-insensitively
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d":
		return PeriodDaily, nil
	case "weekly", "week", "1w":
		return PeriodWeekly, nil
	case "monthly", "month", "1m":
		return PeriodMonthly, nil
	case "quarterly", "quarter", "3m":
		return PeriodQuarterly, nil
	case "yearly", "year", "1y":
		return PeriodYearly, nil
	case "ytd", "year-to-date":
		return PeriodYTD, nil
	case "all_time", "alltime", "all", "max":
		return PeriodAllTime, nil
	}
	return 0, fmt.Errorf("unknown period %q: %w", s, ErrInvalidArgument)
}

// StartDate returns the calendar day a period starts on, given today's date.
// The second result is false for PeriodAllTime, which has no calendar start.
func (p Period) StartDate(today time.Time) (time.Time, bool) {
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	switch p {
	case PeriodDaily:
		return day.AddDate(0, 0, -1), true
	case PeriodWeekly:
		return day.AddDate(0, 0, -7), true
	case PeriodMonthly:
		return day.AddDate(0, -1, 0), true
	case PeriodQuarterly:
		return day.AddDate(0, -3, 0), true
	case PeriodYearly:
		return day.AddDate(-1, 0, 0), true
	case PeriodYTD:
		return time.Date(y-1, time.December, 31, 0, 0, 0, 0, today.Location()), true
	}
	return time.Time{}, false
}
