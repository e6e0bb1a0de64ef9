package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultInitialBalance is the paper cash an account opens with when none is given
var DefaultInitialBalance = decimal.NewFromInt(100000)

// Account is a paper-trading account.
// CashBalance never goes negative; InitialBalance is fixed at creation.
type Account struct {
	ID             uuid.UUID
	Name           string
	CashBalance    decimal.Decimal
	InitialBalance decimal.Decimal
	CreatedAt      time.Time
	Version        int64 // bumped by every ledger mutation
}

// NewAccount creates an account funded with initialBalance
func NewAccount(name string, initialBalance decimal.Decimal, now time.Time) (*Account, error) {
	a := &Account{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(name),
		CashBalance:    initialBalance,
		InitialBalance: initialBalance,
		CreatedAt:      now.UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name cannot be empty: %w", ErrInvalidArgument)
	}
	if a.CashBalance.IsNegative() {
		return fmt.Errorf("cash balance cannot be negative: %w", ErrInvalidArgument)
	}
	if a.InitialBalance.IsNegative() {
		return fmt.Errorf("initial balance cannot be negative: %w", ErrInvalidArgument)
	}
	return nil
}
