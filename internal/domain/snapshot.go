package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for snapshot keys
const DateLayout = "2006-01-02"

// PortfolioSnapshot is the end-of-day value of an account.
// There is at most one per (AccountID, Date).
type PortfolioSnapshot struct {
	AccountID     uuid.UUID
	Date          string // YYYY-MM-DD in the snapshot location
	TotalValue    decimal.Decimal
	CashBalance   decimal.Decimal
	HoldingsValue decimal.Decimal
	TakenAt       time.Time
}

// DateOf returns the calendar day of t in loc, formatted as a snapshot key
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
