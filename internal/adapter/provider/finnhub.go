package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

const finnhubDefaultBaseURL = "https://finnhub.io/api/v1"

// Finnhub serves real-time stock and ETF quotes
type Finnhub struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var (
	_ domain.QuoteProvider  = (*Finnhub)(nil)
	_ domain.SymbolSearcher = (*Finnhub)(nil)
)

// NewFinnhub creates a Finnhub provider. An empty baseURL uses the public API.
func NewFinnhub(apiKey, baseURL string, client *http.Client) *Finnhub {
	if baseURL == "" {
		baseURL = finnhubDefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Finnhub{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Finnhub) Name() string { return "finnhub" }

type finnhubQuote struct {
	Current       decimal.Decimal `json:"c"`
	PreviousClose decimal.Decimal `json:"pc"`
	Open          decimal.Decimal `json:"o"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Timestamp     int64           `json:"t"`
}

// FetchQuote calls /quote. Finnhub answers unknown symbols and its own
// coverage gaps alike with c == 0, so an empty quote is transient and the
// chain moves on to the next provider.
func (p *Finnhub) FetchQuote(ctx context.Context, symbol string, _ domain.AssetClass) (domain.Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", p.baseURL, url.QueryEscape(symbol), url.QueryEscape(p.apiKey))
	status, body, err := get(ctx, p.client, p.Name(), u)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := statusError(p.Name(), status); err != nil {
		return domain.Quote{}, err
	}

	var r finnhubQuote
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.Quote{}, malformed(p.Name(), err)
	}
	if r.Current.IsZero() {
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderTransient, errNoData)
	}

	q := domain.Quote{
		Symbol:        symbol,
		CurrentPrice:  r.Current,
		PreviousClose: positive(r.PreviousClose),
		Open:          positive(r.Open),
		High:          positive(r.High),
		Low:           positive(r.Low),
		Source:        p.Name(),
	}
	if r.Timestamp > 0 {
		q.AsOf = time.Unix(r.Timestamp, 0).UTC()
	}
	return q, nil
}

// finnhubSearchLimit caps the matches taken from one /search response
const finnhubSearchLimit = 10

type finnhubSearch struct {
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Exchange    string `json:"exchange"`
	} `json:"result"`
}

// SearchSymbols calls /search. Exchange-suffixed listings such as AAPL.MX
// are skipped; only the primary US tickers can be traded.
func (p *Finnhub) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	u := fmt.Sprintf("%s/search?q=%s&token=%s", p.baseURL, url.QueryEscape(query), url.QueryEscape(p.apiKey))
	status, body, err := get(ctx, p.client, p.Name(), u)
	if err != nil {
		return nil, err
	}
	if err := statusError(p.Name(), status); err != nil {
		return nil, err
	}

	var r finnhubSearch
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, malformed(p.Name(), err)
	}

	matches := make([]domain.SymbolMatch, 0, finnhubSearchLimit)
	for _, it := range r.Result {
		if len(matches) == finnhubSearchLimit {
			break
		}
		if it.Symbol == "" || strings.Contains(it.Symbol, ".") {
			continue
		}
		class := domain.AssetClassStock
		if t := strings.ToUpper(it.Type); t == "ETP" || t == "ETF" {
			class = domain.AssetClassETF
		}
		matches = append(matches, domain.SymbolMatch{
			Symbol:     domain.NormalizeSymbol(it.Symbol),
			Name:       it.Description,
			AssetClass: class,
			Exchange:   it.Exchange,
		})
	}
	return matches, nil
}
