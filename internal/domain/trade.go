package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeAction is the side of a market order
type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

// ParseTradeAction parses "buy" or "sell", case-insensitively
func ParseTradeAction(s string) (TradeAction, error) {
	switch a := TradeAction(strings.ToLower(strings.TrimSpace(s))); a {
	case TradeActionBuy, TradeActionSell:
		return a, nil
	}
	return "", fmt.Errorf("unknown trade action %q: %w", s, ErrInvalidArgument)
}

// Holding is an open position. It exists only while Quantity > 0.
type Holding struct {
	AccountID   uuid.UUID
	Symbol      string
	AssetClass  AssetClass
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	UpdatedAt   time.Time
}

// Instrument returns the symbol and asset class of the holding
func (h *Holding) Instrument() Instrument {
	return Instrument{Symbol: h.Symbol, AssetClass: h.AssetClass}
}

// CostBasis is Quantity * AverageCost
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}

// Validate ensures the holding adheres to domain rules
func (h *Holding) Validate() error {
	if h.Symbol == "" {
		return fmt.Errorf("holding symbol cannot be empty: %w", ErrInvalidArgument)
	}
	if !h.AssetClass.Valid() {
		return fmt.Errorf("holding asset class %q: %w", h.AssetClass, ErrInvalidArgument)
	}
	if !h.Quantity.IsPositive() {
		return fmt.Errorf("holding quantity must be positive: %w", ErrInvalidQuantity)
	}
	if h.AverageCost.IsNegative() {
		return fmt.Errorf("average cost cannot be negative: %w", ErrInvalidArgument)
	}
	return nil
}

// Trade is an immutable record of an executed market order.
// TotalValue is the cash that moved: notional plus fee for buys, notional minus fee for sells.
type Trade struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Symbol     string
	AssetClass AssetClass
	Action     TradeAction
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
	TotalValue decimal.Decimal
	ExecutedAt time.Time
}

// Notional is Quantity * Price
func (t *Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Validate ensures the trade adheres to domain rules
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trade symbol cannot be empty: %w", ErrInvalidArgument)
	}
	if t.Action != TradeActionBuy && t.Action != TradeActionSell {
		return fmt.Errorf("trade action %q: %w", t.Action, ErrInvalidArgument)
	}
	if !t.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("trade price must be positive: %w", ErrInvalidArgument)
	}
	if t.Fee.IsNegative() {
		return fmt.Errorf("trade fee cannot be negative: %w", ErrInvalidArgument)
	}
	return nil
}
