package marketdata

import (
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultProviderTimeout applies to links configured without a timeout
const DefaultProviderTimeout = 5 * time.Second

// Link is one step of a provider chain
type Link struct {
	Provider domain.QuoteProvider
	Timeout  time.Duration
}

// ProviderChain holds the ordered fallback list for each asset class
type ProviderChain struct {
	routes map[domain.AssetClass][]Link
}

// NewProviderChain creates an empty chain
func NewProviderChain() *ProviderChain {
	return &ProviderChain{routes: make(map[domain.AssetClass][]Link)}
}

// Add appends a provider to the route of each given asset class
func (c *ProviderChain) Add(p domain.QuoteProvider, timeout time.Duration, classes ...domain.AssetClass) *ProviderChain {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	for _, class := range classes {
		c.routes[class] = append(c.routes[class], Link{Provider: p, Timeout: timeout})
	}
	return c
}

// Route returns the ordered links for an asset class
func (c *ProviderChain) Route(assetClass domain.AssetClass) []Link {
	return c.routes[assetClass]
}
