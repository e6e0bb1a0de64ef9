package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolMatch is one result of a symbol search
type SymbolMatch struct {
	Symbol     string
	Name       string
	AssetClass AssetClass
	Exchange   string
}

// Candle is one daily OHLC bar. Date is the bar's UTC calendar day.
type Candle struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// SymbolSearcher is a provider that can look up tickers by name or symbol
type SymbolSearcher interface {
	Name() string
	SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error)
}

// HistoryProvider is a provider that serves daily bars.
// A zero since asks for the longest history the provider keeps.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, assetClass AssetClass, since time.Time) ([]Candle, error)
}
