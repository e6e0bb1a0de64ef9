package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass groups instruments that share a provider route
type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassETF    AssetClass = "etf"
	AssetClassCrypto AssetClass = "crypto"
)

// ParseAssetClass parses a case-insensitive asset class name
func ParseAssetClass(s string) (AssetClass, error) {
	switch c := AssetClass(strings.ToLower(strings.TrimSpace(s))); c {
	case AssetClassStock, AssetClassETF, AssetClassCrypto:
		return c, nil
	}
	return "", fmt.Errorf("unknown asset class %q: %w", s, ErrInvalidArgument)
}

// Valid reports whether c is one of the known asset classes
func (c AssetClass) Valid() bool {
	_, err := ParseAssetClass(string(c))
	return err == nil
}

// NormalizeSymbol trims and upper-cases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Instrument identifies a tradable symbol within its asset class
type Instrument struct {
	Symbol     string
	AssetClass AssetClass
}

// Key returns the cache and single-flight key for the instrument
func (i Instrument) Key() string {
	return string(i.AssetClass) + ":" + i.Symbol
}

// Quote is a price observation from a named provider.
// Quotes are never stored beyond the cache TTL.
type Quote struct {
	Symbol        string
	AssetClass    AssetClass
	CurrentPrice  decimal.Decimal
	PreviousClose decimal.NullDecimal
	AsOf          time.Time
	Source        string

	// session range, when the provider reports it
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Volume decimal.NullDecimal
}

// Change returns CurrentPrice - PreviousClose when the previous close is known
func (q Quote) Change() decimal.NullDecimal {
	if !q.PreviousClose.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(q.CurrentPrice.Sub(q.PreviousClose.Decimal))
}

// ChangePercent returns the change relative to the previous close, in percent
func (q Quote) ChangePercent() decimal.NullDecimal {
	if !q.PreviousClose.Valid || q.PreviousClose.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	pct := q.CurrentPrice.Sub(q.PreviousClose.Decimal).
		Div(q.PreviousClose.Decimal).
		Mul(decimal.NewFromInt(100)).
		Round(4)
	return decimal.NewNullDecimal(pct)
}

// Validate checks the invariants every provider result must satisfy
func (q Quote) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("quote symbol cannot be empty: %w", ErrInvalidArgument)
	}
	if !q.CurrentPrice.IsPositive() {
		return fmt.Errorf("quote price for %s must be positive: %w", q.Symbol, ErrInvalidArgument)
	}
	return nil
}
