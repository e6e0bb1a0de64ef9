package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	fakeProvider
	candles []domain.Candle
	herr    error
	since   time.Time
}

func (p *fakeHistory) FetchHistory(_ context.Context, _ string, _ domain.AssetClass, since time.Time) ([]domain.Candle, error) {
	p.calls.Add(1)
	p.since = since
	return p.candles, p.herr
}

type fakeSearcher struct {
	name    string
	matches []domain.SymbolMatch
	err     error
	calls   int
}

func (s *fakeSearcher) Name() string { return s.name }

func (s *fakeSearcher) SearchSymbols(context.Context, string) ([]domain.SymbolMatch, error) {
	s.calls++
	return s.matches, s.err
}

func newTestCatalog(searchers []domain.SymbolSearcher, providers ...domain.QuoteProvider) *Catalog {
	chain := NewProviderChain()
	for _, p := range providers {
		chain.Add(p, 200*time.Millisecond, domain.AssetClassStock)
	}
	c := NewCatalog(chain, searchers, time.UTC, nil)
	c.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return c
}

func bar(day int, close string) domain.Candle {
	return domain.Candle{
		Date:  time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		Close: decimal.RequireFromString(close),
	}
}

func TestCatalog_History_FallsThroughChain(t *testing.T) {
	quotesOnly := &fakeProvider{name: "static", price: decimal.NewFromInt(1)}
	down := &fakeHistory{fakeProvider: fakeProvider{name: "finnhub"}, herr: domain.NewProviderError("finnhub", domain.ProviderTransient, errors.New("502"))}
	up := &fakeHistory{fakeProvider: fakeProvider{name: "yahoo"}, candles: []domain.Candle{bar(13, "100"), bar(14, "101")}}

	c := newTestCatalog(nil, quotesOnly, down, up)
	candles, err := c.History(context.Background(), " aapl ", domain.AssetClassStock, domain.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, up.candles, candles)

	assert.EqualValues(t, 0, quotesOnly.calls.Load())
	assert.EqualValues(t, 1, down.calls.Load())
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), up.since)
}

func TestCatalog_History_AllTimeHasNoStart(t *testing.T) {
	p := &fakeHistory{fakeProvider: fakeProvider{name: "yahoo"}, candles: []domain.Candle{}}
	_, err := newTestCatalog(nil, p).History(context.Background(), "AAPL", domain.AssetClassStock, domain.PeriodAllTime)
	require.NoError(t, err)
	assert.True(t, p.since.IsZero())
}

func TestCatalog_History_Errors(t *testing.T) {
	notFound := &fakeHistory{fakeProvider: fakeProvider{name: "yahoo"}, herr: domain.NewProviderError("yahoo", domain.ProviderNotFound, errors.New("no data"))}
	next := &fakeHistory{fakeProvider: fakeProvider{name: "binance"}}
	_, err := newTestCatalog(nil, notFound, next).History(context.Background(), "NOPE", domain.AssetClassStock, domain.PeriodWeekly)
	assert.ErrorIs(t, err, domain.ErrSymbolNotFound)
	assert.EqualValues(t, 0, next.calls.Load(), "notFound is authoritative")

	unsupported := &fakeHistory{fakeProvider: fakeProvider{name: "alpaca"}, herr: errors.ErrUnsupported}
	_, err = newTestCatalog(nil, unsupported, &fakeProvider{name: "static"}).History(context.Background(), "AAPL", domain.AssetClassStock, domain.PeriodWeekly)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	assert.Contains(t, err.Error(), "no history source")

	limited := &fakeHistory{fakeProvider: fakeProvider{name: "yahoo"}, herr: domain.NewProviderError("yahoo", domain.ProviderRateLimited, errors.New("429"))}
	_, err = newTestCatalog(nil, limited).History(context.Background(), "AAPL", domain.AssetClassStock, domain.PeriodWeekly)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
	assert.NotErrorIs(t, err, domain.ErrSymbolNotFound)

	c := newTestCatalog(nil)
	_, err = c.History(context.Background(), " ", domain.AssetClassStock, domain.PeriodWeekly)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = c.History(context.Background(), "AAPL", domain.AssetClass("bond"), domain.PeriodWeekly)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCatalog_Search(t *testing.T) {
	apple := domain.SymbolMatch{Symbol: "AAPL", Name: "Apple Inc", AssetClass: domain.AssetClassStock, Exchange: "NASDAQ"}
	skip := &fakeSearcher{name: "static", err: errors.ErrUnsupported}
	down := &fakeSearcher{name: "finnhub", err: errors.New("503")}
	up := &fakeSearcher{name: "yahoo", matches: []domain.SymbolMatch{apple, apple}}
	after := &fakeSearcher{name: "spare"}

	c := newTestCatalog([]domain.SymbolSearcher{skip, down, up, after})
	got, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []domain.SymbolMatch{apple}, got, "duplicates collapse")
	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 0, after.calls, "first answer wins")
}

func TestCatalog_Search_CryptoListings(t *testing.T) {
	c := newTestCatalog([]domain.SymbolSearcher{&fakeSearcher{name: "finnhub", err: errors.New("timeout")}})

	got, err := c.Search(context.Background(), "bit")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SymbolMatch{Symbol: "BTCUSD", Name: "Bitcoin", AssetClass: domain.AssetClassCrypto, Exchange: "Binance"}, got[0])

	got, err = c.Search(context.Background(), "eth")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ETHUSD", got[0].Symbol)

	got, err = c.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCatalog_Search_Capped(t *testing.T) {
	var many []domain.SymbolMatch
	for i := 0; i < MaxSearchResults+5; i++ {
		many = append(many, domain.SymbolMatch{Symbol: fmt.Sprintf("S%d", i), AssetClass: domain.AssetClassStock})
	}
	c := newTestCatalog([]domain.SymbolSearcher{&fakeSearcher{name: "yahoo", matches: many}})

	got, err := c.Search(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, got, MaxSearchResults)
}
