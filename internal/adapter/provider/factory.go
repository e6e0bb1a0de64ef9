package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Settings configures a single provider
type Settings struct {
	APIKey            string
	APISecret         string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	Prices            map[string]string // static only
}

// Names lists the providers New knows how to build
var Names = []string{"finnhub", "alpaca", "yahoo", "binance", "static"}

// New builds the named provider, wrapped in its rate limit
func New(name string, s Settings, client *http.Client) (domain.QuoteProvider, error) {
	var p domain.QuoteProvider
	switch name {
	case "finnhub":
		if s.APIKey == "" {
			return nil, fmt.Errorf("finnhub requires an api key")
		}
		p = NewFinnhub(s.APIKey, s.BaseURL, client)
	case "alpaca":
		p = NewAlpaca(s.APIKey, s.APISecret, s.BaseURL)
	case "yahoo":
		p = NewYahoo(s.BaseURL, client)
	case "binance":
		p = NewBinance(s.BaseURL, client)
	case "static":
		st, err := NewStatic(s.Prices)
		if err != nil {
			return nil, err
		}
		p = st
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return WithRateLimit(p, s.RequestsPerMinute, s.Burst), nil
}
