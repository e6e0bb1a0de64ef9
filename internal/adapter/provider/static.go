package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Static answers from a fixed price table. It backs offline demo runs and tests.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	now    func() time.Time
}

var _ domain.QuoteProvider = (*Static)(nil)

// NewStatic creates a provider from symbol -> price strings
func NewStatic(prices map[string]string) (*Static, error) {
	s := &Static{prices: make(map[string]decimal.Decimal, len(prices)), now: time.Now}
	for sym, raw := range prices {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("static price for %s: %w", sym, err)
		}
		s.Set(sym, p)
	}
	return s, nil
}

func (p *Static) Name() string { return "static" }

// Set changes the price of a symbol
func (p *Static) Set(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	p.prices[domain.NormalizeSymbol(symbol)] = price
	p.mu.Unlock()
}

func (p *Static) FetchQuote(_ context.Context, symbol string, _ domain.AssetClass) (domain.Quote, error) {
	p.mu.RLock()
	price, ok := p.prices[domain.NormalizeSymbol(symbol)]
	p.mu.RUnlock()
	if !ok {
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}
	return domain.Quote{
		Symbol:       symbol,
		CurrentPrice: price,
		AsOf:         p.now().UTC(),
		Source:       p.Name(),
	}, nil
}
