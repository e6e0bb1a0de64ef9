package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// latestTrader is the slice of the Alpaca market data client this provider uses
type latestTrader interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Alpaca serves real-time stock and ETF prices from the last trade print
type Alpaca struct {
	client latestTrader
}

var _ domain.QuoteProvider = (*Alpaca)(nil)

// NewAlpaca creates an Alpaca provider. Empty credentials fall back to the
// APCA_API_KEY_ID / APCA_API_SECRET_KEY environment the SDK reads itself.
func NewAlpaca(apiKey, apiSecret, baseURL string) *Alpaca {
	return &Alpaca{client: marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})}
}

func (p *Alpaca) Name() string { return "alpaca" }

type alpacaResult struct {
	trade *marketdata.Trade
	err   error
}

// FetchQuote returns the latest trade. The SDK call takes no context, so it
// runs in its own goroutine and is abandoned when ctx ends.
func (p *Alpaca) FetchQuote(ctx context.Context, symbol string, _ domain.AssetClass) (domain.Quote, error) {
	done := make(chan alpacaResult, 1)
	go func() {
		trade, err := p.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		done <- alpacaResult{trade: trade, err: err}
	}()

	var res alpacaResult
	select {
	case <-ctx.Done():
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderTransient, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return domain.Quote{}, p.classify(res.err)
	}
	if res.trade == nil || res.trade.Price <= 0 {
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}

	return domain.Quote{
		Symbol:       symbol,
		CurrentPrice: decimal.NewFromFloat(res.trade.Price),
		AsOf:         res.trade.Timestamp.UTC(),
		Source:       p.Name(),
	}, nil
}

func (p *Alpaca) classify(err error) error {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return domain.NewProviderError(p.Name(), domain.ProviderRateLimited, err)
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return domain.NewProviderError(p.Name(), domain.ProviderNotFound, err)
		}
	}
	return domain.NewProviderError(p.Name(), domain.ProviderTransient, err)
}
