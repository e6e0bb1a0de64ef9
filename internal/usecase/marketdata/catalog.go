package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// MaxSearchResults caps one merged search response
const MaxSearchResults = 20

// cryptoListings is the crypto universe search offers; each trades as <base>USD
var cryptoListings = []struct{ base, name string }{
	{"BTC", "Bitcoin"},
	{"ETH", "Ethereum"},
	{"BNB", "Binance Coin"},
	{"SOL", "Solana"},
	{"ADA", "Cardano"},
	{"XRP", "Ripple"},
	{"DOT", "Polkadot"},
	{"DOGE", "Dogecoin"},
	{"AVAX", "Avalanche"},
	{"MATIC", "Polygon"},
}

const cryptoExchange = "Binance"

// Catalog answers symbol search and daily price history from whichever
// configured providers support them.
type Catalog struct {
	Chain     *ProviderChain
	Searchers []domain.SymbolSearcher
	Location  *time.Location
	Logger    *slog.Logger

	now func() time.Time
}

// NewCatalog creates a new Catalog instance. History walks the quote chain
// of the requested asset class; search asks searchers in order.
func NewCatalog(chain *ProviderChain, searchers []domain.SymbolSearcher, loc *time.Location, logger *slog.Logger) *Catalog {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{Chain: chain, Searchers: searchers, Location: loc, Logger: logger, now: time.Now}
}

// Search returns stock and ETF matches from the first searcher that answers,
// followed by the built-in crypto listings whose ticker or name contains
// query. Searcher failures degrade to crypto-only results.
func (c *Catalog) Search(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty: %w", domain.ErrInvalidArgument)
	}

	var matches []domain.SymbolMatch
	for _, s := range c.Searchers {
		found, err := s.SearchSymbols(ctx, query)
		if errors.Is(err, errors.ErrUnsupported) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.Logger.Warn("symbol search failed", "query", query, "provider", s.Name(), "error", err)
			continue
		}
		matches = found
		break
	}

	seen := make(map[domain.Instrument]bool, len(matches))
	out := make([]domain.SymbolMatch, 0, len(matches)+len(cryptoListings))
	add := func(m domain.SymbolMatch) {
		key := domain.Instrument{Symbol: m.Symbol, AssetClass: m.AssetClass}
		if seen[key] || len(out) == MaxSearchResults {
			return
		}
		seen[key] = true
		out = append(out, m)
	}
	for _, m := range matches {
		add(m)
	}
	upper := strings.ToUpper(query)
	for _, l := range cryptoListings {
		if strings.Contains(l.base, upper) || strings.Contains(strings.ToUpper(l.name), upper) {
			add(domain.SymbolMatch{
				Symbol:     l.base + "USD",
				Name:       l.name,
				AssetClass: domain.AssetClassCrypto,
				Exchange:   cryptoExchange,
			})
		}
	}
	return out, nil
}

// History returns daily bars covering period, oldest first, from the first
// provider in the asset class chain that serves history. It fails with
// ErrSymbolNotFound when a provider says the symbol does not exist and with
// ErrQuoteUnavailable when no provider could answer.
func (c *Catalog) History(ctx context.Context, symbol string, assetClass domain.AssetClass, period domain.Period) ([]domain.Candle, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty: %w", domain.ErrInvalidArgument)
	}
	if !assetClass.Valid() {
		return nil, fmt.Errorf("asset class %q: %w", assetClass, domain.ErrInvalidArgument)
	}
	since, _ := period.StartDate(c.now().In(c.Location))

	var failures []error
	for _, link := range c.Chain.Route(assetClass) {
		h, ok := link.Provider.(domain.HistoryProvider)
		if !ok {
			continue
		}
		candles, err := c.fetch(ctx, h, link.Timeout, symbol, assetClass, since)
		if err == nil {
			return candles, nil
		}
		if errors.Is(err, errors.ErrUnsupported) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		kind := domain.ProviderErrorKindOf(err)
		if kind == domain.ProviderNotFound {
			return nil, fmt.Errorf("%s (%s): %w", symbol, h.Name(), domain.ErrSymbolNotFound)
		}
		c.Logger.Warn("history provider failed", "symbol", symbol, "provider", h.Name(), "kind", kind.String(), "error", err)
		failures = append(failures, err)
	}

	if len(failures) == 0 {
		return nil, fmt.Errorf("no history source for %s: %w", assetClass, domain.ErrQuoteUnavailable)
	}
	return nil, fmt.Errorf("%s history: %d providers failed (%v): %w",
		symbol, len(failures), errors.Join(failures...), domain.ErrQuoteUnavailable)
}

func (c *Catalog) fetch(ctx context.Context, h domain.HistoryProvider, timeout time.Duration, symbol string, class domain.AssetClass, since time.Time) ([]domain.Candle, error) {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candles, err := h.FetchHistory(lctx, symbol, class, since)
	if err != nil {
		if errors.Is(lctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.NewProviderError(h.Name(), domain.ProviderTransient, err)
		}
		return nil, err
	}
	return candles, nil
}
