package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the scale at which cash, cost and quantity are stored
const AmountPlaces = 8

// ValidateQuantity accepts positive quantities representable at AmountPlaces
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return ErrInvalidQuantity
	}
	if !q.Equal(q.Truncate(AmountPlaces)) {
		return fmt.Errorf("quantity %s has more than %d decimal places: %w", q, AmountPlaces, ErrInvalidQuantity)
	}
	return nil
}

// Portfolio is a consistent read of an account and its open holdings
type Portfolio struct {
	Account  *Account
	Holdings []*Holding
}

// Holding returns the open position in symbol, or nil
func (p *Portfolio) Holding(symbol string) *Holding {
	for _, h := range p.Holdings {
		if h.Symbol == symbol {
			return h
		}
	}
	return nil
}

// position returns the open holding f applies to. A fill whose asset class
// differs from the held position fails with ErrInvalidArgument.
func (p *Portfolio) position(f Fill) (*Holding, error) {
	h := p.Holding(f.Symbol)
	if h != nil && h.AssetClass != f.AssetClass {
		return nil, fmt.Errorf("%s is held as %s, not %s: %w", f.Symbol, h.AssetClass, f.AssetClass, ErrInvalidArgument)
	}
	return h, nil
}

// Fill is a priced order ready to be applied to a portfolio
type Fill struct {
	Symbol     string
	AssetClass AssetClass
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
	ExecutedAt time.Time
}

func (f Fill) validate() error {
	if err := ValidateQuantity(f.Quantity); err != nil {
		return err
	}
	if f.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty: %w", ErrInvalidArgument)
	}
	if !f.AssetClass.Valid() {
		return fmt.Errorf("asset class %q: %w", f.AssetClass, ErrInvalidArgument)
	}
	if !f.Price.IsPositive() {
		return fmt.Errorf("price must be positive: %w", ErrInvalidArgument)
	}
	if f.Fee.IsNegative() {
		return fmt.Errorf("fee cannot be negative: %w", ErrInvalidArgument)
	}
	return nil
}

// LedgerMutation is the complete effect of one fill. Storage applies it in a
// single transaction, guarded by ExpectedVersion.
type LedgerMutation struct {
	AccountID       uuid.UUID
	ExpectedVersion int64
	CashBalance     decimal.Decimal
	// Holding is the new position state; nil together with DeleteHolding
	// means the position in Trade.Symbol is closed.
	Holding       *Holding
	DeleteHolding bool
	Trade         *Trade
}

// Buy computes the mutation for buying f.Quantity at f.Price.
// Fails with ErrInsufficientFunds when cash does not cover notional plus fee.
func (p *Portfolio) Buy(f Fill) (*LedgerMutation, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	notional := f.Quantity.Mul(f.Price)
	cost := notional.Add(f.Fee).Round(AmountPlaces)
	if p.Account.CashBalance.LessThan(cost) {
		return nil, fmt.Errorf("buy %s %s needs %s, have %s: %w",
			f.Quantity, f.Symbol, cost, p.Account.CashBalance, ErrInsufficientFunds)
	}

	holding := &Holding{
		AccountID:   p.Account.ID,
		Symbol:      f.Symbol,
		AssetClass:  f.AssetClass,
		Quantity:    f.Quantity,
		AverageCost: f.Price,
		UpdatedAt:   f.ExecutedAt,
	}
	existing, err := p.position(f)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		qty := existing.Quantity.Add(f.Quantity)
		basis := existing.Quantity.Mul(existing.AverageCost).Add(notional)
		holding.Quantity = qty
		holding.AverageCost = basis.Div(qty).Round(AmountPlaces)
	}

	return &LedgerMutation{
		AccountID:       p.Account.ID,
		ExpectedVersion: p.Account.Version,
		CashBalance:     p.Account.CashBalance.Sub(cost),
		Holding:         holding,
		Trade:           newTrade(p.Account.ID, TradeActionBuy, f, cost),
	}, nil
}

// Sell computes the mutation for selling f.Quantity at f.Price.
// Average cost is left unchanged; the position is deleted at exactly zero.
func (p *Portfolio) Sell(f Fill) (*LedgerMutation, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	existing, err := p.position(f)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("no position in %s: %w", f.Symbol, ErrInsufficientHoldings)
	}
	if f.Quantity.GreaterThan(existing.Quantity) {
		return nil, fmt.Errorf("sell %s %s exceeds held %s: %w",
			f.Quantity, f.Symbol, existing.Quantity, ErrInsufficientHoldings)
	}

	proceeds := f.Quantity.Mul(f.Price).Sub(f.Fee).Round(AmountPlaces)
	cash := p.Account.CashBalance.Add(proceeds)
	if cash.IsNegative() {
		return nil, fmt.Errorf("fee exceeds proceeds and cash: %w", ErrInsufficientFunds)
	}

	m := &LedgerMutation{
		AccountID:       p.Account.ID,
		ExpectedVersion: p.Account.Version,
		CashBalance:     cash,
		Trade:           newTrade(p.Account.ID, TradeActionSell, f, proceeds),
	}
	remaining := existing.Quantity.Sub(f.Quantity)
	if remaining.IsZero() {
		m.DeleteHolding = true
	} else {
		m.Holding = &Holding{
			AccountID:   existing.AccountID,
			Symbol:      existing.Symbol,
			AssetClass:  existing.AssetClass,
			Quantity:    remaining,
			AverageCost: existing.AverageCost,
			UpdatedAt:   f.ExecutedAt,
		}
	}
	return m, nil
}

func newTrade(accountID uuid.UUID, action TradeAction, f Fill, total decimal.Decimal) *Trade {
	return &Trade{
		ID:         uuid.New(),
		AccountID:  accountID,
		Symbol:     f.Symbol,
		AssetClass: f.AssetClass,
		Action:     action,
		Quantity:   f.Quantity,
		Price:      f.Price,
		Fee:        f.Fee,
		TotalValue: total,
		ExecutedAt: f.ExecutedAt,
	}
}
