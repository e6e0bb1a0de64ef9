package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultCacheTTL bounds how old a served quote can be
const DefaultCacheTTL = 10 * time.Second

type cacheEntry struct {
	quote     domain.Quote
	expiresAt time.Time
}

// QuoteCache is a short-lived, shared store of quotes keyed by instrument.
// Expired entries are treated as absent; overlapping writes are last-write-wins.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewQuoteCache creates an empty cache
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote if it has not expired
func (c *QuoteCache) Get(symbol string, assetClass domain.AssetClass) (domain.Quote, bool) {
	key := domain.Instrument{Symbol: symbol, AssetClass: assetClass}.Key()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return domain.Quote{}, false
	}
	return e.quote, true
}

// Put stores a quote for ttl
func (c *QuoteCache) Put(symbol string, assetClass domain.AssetClass, q domain.Quote, ttl time.Duration) {
	key := domain.Instrument{Symbol: symbol, AssetClass: assetClass}.Key()

	c.mu.Lock()
	c.entries[key] = cacheEntry{quote: q, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Purge drops expired entries and returns how many were removed
func (c *QuoteCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RunJanitor purges expired entries every interval until ctx is done
func (c *QuoteCache) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Purge()
		}
	}
}
