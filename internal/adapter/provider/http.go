// Package provider holds the concrete upstream quote sources.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// maxBody caps how much of an upstream response is read
const maxBody = 1 << 20

const userAgent = "papertrade/1.0"

// NewHTTPClient returns the client shared by the HTTP providers.
// Per-call deadlines come from the context; timeout is a backstop.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// get issues a GET and returns the status code and body.
// Transport failures come back as transient ProviderErrors.
func get(ctx context.Context, client *http.Client, provider, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, domain.NewProviderError(provider, domain.ProviderTransient, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, domain.NewProviderError(provider, domain.ProviderTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, domain.NewProviderError(provider, domain.ProviderTransient, err)
	}
	return resp.StatusCode, body, nil
}

// statusError maps a non-200 status to a ProviderError.
// Auth failures are transient: a bad key must not claim a symbol is missing.
func statusError(provider string, status int) error {
	err := fmt.Errorf("unexpected status %d", status)
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests, status == http.StatusTeapot:
		return domain.NewProviderError(provider, domain.ProviderRateLimited, err)
	case status == http.StatusNotFound:
		return domain.NewProviderError(provider, domain.ProviderNotFound, err)
	default:
		return domain.NewProviderError(provider, domain.ProviderTransient, err)
	}
}

var errNoData = errors.New("no data for symbol")

func malformed(provider string, err error) error {
	return domain.NewProviderError(provider, domain.ProviderTransient, fmt.Errorf("malformed response: %w", err))
}

// positive keeps d only when it is above zero; upstreams send 0 for unknown fields
func positive(d decimal.Decimal) decimal.NullDecimal {
	if !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
