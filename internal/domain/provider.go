package domain

import (
	"context"
	"errors"
	"fmt"
)

// ProviderErrorKind tells the aggregator whether to fall through to the next provider
type ProviderErrorKind int

const (
	// ProviderTransient covers timeouts, 5xx and network failures
	ProviderTransient ProviderErrorKind = iota
	// ProviderRateLimited means the provider refused the call for quota reasons
	ProviderRateLimited
	// ProviderNotFound is authoritative: the symbol does not exist upstream
	ProviderNotFound
)

func (k ProviderErrorKind) String() string {
	switch k {
	case ProviderRateLimited:
		return "rate_limited"
	case ProviderNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// ProviderError is the tagged failure returned by a QuoteProvider
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError of the given kind
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// ProviderErrorKindOf classifies err. Anything that is not a ProviderError is transient.
func ProviderErrorKindOf(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ProviderTransient
}

// QuoteProvider is a single upstream source of quotes
type QuoteProvider interface {
	// Name identifies the provider in quotes, logs and configuration
	Name() string

	// FetchQuote returns the latest quote for symbol or a *ProviderError
	FetchQuote(ctx context.Context, symbol string, assetClass AssetClass) (Quote, error)
}
