package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultBatchConcurrency bounds parallel lookups in Quotes
const DefaultBatchConcurrency = 8

// Aggregator answers quote requests from the cache, falling back to the
// provider chain. Concurrent misses for the same instrument share one chain walk.
type Aggregator struct {
	Cache            *QuoteCache
	Chain            *ProviderChain
	TTL              time.Duration
	BatchConcurrency int
	Logger           *slog.Logger

	group singleflight.Group
	now   func() time.Time
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(cache *QuoteCache, chain *ProviderChain, ttl time.Duration, logger *slog.Logger) *Aggregator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		Cache:            cache,
		Chain:            chain,
		TTL:              ttl,
		BatchConcurrency: DefaultBatchConcurrency,
		Logger:           logger,
		now:              time.Now,
	}
}

// Quote returns a quote no older than the cache TTL plus one provider round-trip.
// It fails with ErrSymbolNotFound when a provider says the symbol does not exist
// and with ErrQuoteUnavailable when every provider in the chain failed.
func (s *Aggregator) Quote(ctx context.Context, symbol string, assetClass domain.AssetClass) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, fmt.Errorf("symbol cannot be empty: %w", domain.ErrInvalidArgument)
	}
	if !assetClass.Valid() {
		return domain.Quote{}, fmt.Errorf("asset class %q: %w", assetClass, domain.ErrInvalidArgument)
	}

	if q, ok := s.Cache.Get(symbol, assetClass); ok {
		return q, nil
	}

	inst := domain.Instrument{Symbol: symbol, AssetClass: assetClass}
	// The walk is detached from the caller so that one caller giving up does
	// not fail every other waiter. Link timeouts still bound it.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(inst.Key(), func() (any, error) {
		if q, ok := s.Cache.Get(symbol, assetClass); ok {
			return q, nil
		}
		return s.walk(detached, inst)
	})

	select {
	case <-ctx.Done():
		return domain.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Quote{}, res.Err
		}
		return res.Val.(domain.Quote), nil
	}
}

func (s *Aggregator) walk(ctx context.Context, inst domain.Instrument) (domain.Quote, error) {
	links := s.Chain.Route(inst.AssetClass)
	if len(links) == 0 {
		return domain.Quote{}, fmt.Errorf("no providers for %s: %w", inst.AssetClass, domain.ErrQuoteUnavailable)
	}

	var failures []error
	for _, link := range links {
		name := link.Provider.Name()
		q, err := s.call(ctx, link, inst)
		if err == nil {
			s.Cache.Put(inst.Symbol, inst.AssetClass, q, s.TTL)
			return q, nil
		}

		kind := domain.ProviderErrorKindOf(err)
		if kind == domain.ProviderNotFound {
			s.Logger.Info("symbol not found", "symbol", inst.Symbol, "provider", name)
			return domain.Quote{}, fmt.Errorf("%s (%s): %w", inst.Symbol, name, domain.ErrSymbolNotFound)
		}
		s.Logger.Warn("quote provider failed", "symbol", inst.Symbol, "provider", name, "kind", kind.String(), "error", err)
		failures = append(failures, err)
	}

	// Provider errors are flattened to text so their causes never change the kind.
	return domain.Quote{}, fmt.Errorf("%s: %d providers failed (%v): %w",
		inst.Symbol, len(failures), errors.Join(failures...), domain.ErrQuoteUnavailable)
}

func (s *Aggregator) call(ctx context.Context, link Link, inst domain.Instrument) (domain.Quote, error) {
	name := link.Provider.Name()
	lctx, cancel := context.WithTimeout(ctx, link.Timeout)
	defer cancel()

	q, err := link.Provider.FetchQuote(lctx, inst.Symbol, inst.AssetClass)
	if err != nil {
		if errors.Is(lctx.Err(), context.DeadlineExceeded) {
			return domain.Quote{}, domain.NewProviderError(name, domain.ProviderTransient, err)
		}
		return domain.Quote{}, err
	}

	if q.Symbol == "" {
		q.Symbol = inst.Symbol
	}
	q.AssetClass = inst.AssetClass
	if q.Source == "" {
		q.Source = name
	}
	if q.AsOf.IsZero() {
		q.AsOf = s.now().UTC()
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, domain.NewProviderError(name, domain.ProviderTransient, err)
	}
	return q, nil
}

// QuoteResult is the outcome of one lookup in a batch
type QuoteResult struct {
	Quote domain.Quote
	Err   error
}

// Quotes looks up many instruments concurrently. Each result carries its own
// error; the map is keyed by the normalized instrument.
func (s *Aggregator) Quotes(ctx context.Context, instruments []domain.Instrument) map[domain.Instrument]QuoteResult {
	results := make(map[domain.Instrument]QuoteResult, len(instruments))
	var mu sync.Mutex

	limit := s.BatchConcurrency
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for _, inst := range instruments {
		inst := inst
		inst.Symbol = domain.NormalizeSymbol(inst.Symbol)
		mu.Lock()
		_, seen := results[inst]
		if !seen {
			results[inst] = QuoteResult{}
		}
		mu.Unlock()
		if seen {
			continue
		}

		g.Go(func() error {
			q, err := s.Quote(ctx, inst.Symbol, inst.AssetClass)
			mu.Lock()
			results[inst] = QuoteResult{Quote: q, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
