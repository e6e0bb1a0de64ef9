package provider

import (
	"context"
	"errors"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"golang.org/x/time/rate"
)

var errLocalRateLimit = errors.New("local request budget exhausted")

// RateLimited keeps a provider inside its request quota. A call with no
// token available fails fast as rateLimited so the chain moves on.
type RateLimited struct {
	domain.QuoteProvider
	limiter *rate.Limiter
}

// WithRateLimit wraps p with a budget of requestsPerMinute and burst.
// A non-positive requestsPerMinute leaves p unwrapped.
func WithRateLimit(p domain.QuoteProvider, requestsPerMinute, burst int) domain.QuoteProvider {
	if requestsPerMinute <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimited{QuoteProvider: p, limiter: rate.NewLimiter(rate.Every(every), burst)}
}

func (r *RateLimited) FetchQuote(ctx context.Context, symbol string, class domain.AssetClass) (domain.Quote, error) {
	if !r.limiter.Allow() {
		return domain.Quote{}, domain.NewProviderError(r.Name(), domain.ProviderRateLimited, errLocalRateLimit)
	}
	return r.QuoteProvider.FetchQuote(ctx, symbol, class)
}

// FetchHistory spends from the quote budget. Providers without history
// answer errors.ErrUnsupported.
func (r *RateLimited) FetchHistory(ctx context.Context, symbol string, class domain.AssetClass, since time.Time) ([]domain.Candle, error) {
	h, ok := r.QuoteProvider.(domain.HistoryProvider)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	if !r.limiter.Allow() {
		return nil, domain.NewProviderError(r.Name(), domain.ProviderRateLimited, errLocalRateLimit)
	}
	return h.FetchHistory(ctx, symbol, class, since)
}

// SearchSymbols spends from the quote budget. Providers without search
// answer errors.ErrUnsupported.
func (r *RateLimited) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	s, ok := r.QuoteProvider.(domain.SymbolSearcher)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	if !r.limiter.Allow() {
		return nil, domain.NewProviderError(r.Name(), domain.ProviderRateLimited, errLocalRateLimit)
	}
	return s.SearchSymbols(ctx, query)
}
