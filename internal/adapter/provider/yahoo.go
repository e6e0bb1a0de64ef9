package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

const yahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// Yahoo reads the public chart endpoint. Prices may be delayed, so it sits
// last in the stock chain.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

var (
	_ domain.QuoteProvider   = (*Yahoo)(nil)
	_ domain.HistoryProvider = (*Yahoo)(nil)
	_ domain.SymbolSearcher  = (*Yahoo)(nil)
)

// NewYahoo creates a Yahoo chart provider
func NewYahoo(baseURL string, client *http.Client) *Yahoo {
	if baseURL == "" {
		baseURL = yahooDefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Yahoo{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Yahoo) Name() string { return "yahoo" }

// yahooSymbol maps crypto pairs to Yahoo's dashed form: BTCUSD becomes BTC-USD
func yahooSymbol(symbol string, class domain.AssetClass) string {
	if class != domain.AssetClassCrypto || strings.Contains(symbol, "-") {
		return symbol
	}
	s := strings.ToUpper(symbol)
	for _, quote := range []string{"USDT", "USD"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			s = strings.TrimSuffix(s, quote)
			break
		}
	}
	return s + "-USD"
}

// chart fetches the chart document for symbol and returns its first result
func (p *Yahoo) chart(ctx context.Context, symbol string, class domain.AssetClass, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(yahooSymbol(symbol, class)), params.Encode())
	status, body, err := get(ctx, p.client, p.Name(), u)
	if err != nil {
		return nil, err
	}
	if code, cerr := jsonparser.GetString(body, "chart", "error", "code"); cerr == nil && code == "Not Found" {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}
	if err := statusError(p.Name(), status); err != nil {
		return nil, err
	}
	result, _, _, err := jsonparser.Get(body, "chart", "result", "[0]")
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}
	return result, nil
}

func (p *Yahoo) FetchQuote(ctx context.Context, symbol string, class domain.AssetClass) (domain.Quote, error) {
	result, err := p.chart(ctx, symbol, class, url.Values{"range": {"1d"}, "interval": {"1d"}})
	if err != nil {
		return domain.Quote{}, err
	}
	meta, _, _, err := jsonparser.Get(result, "meta")
	if err != nil {
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}

	price, err := decimalField(meta, "regularMarketPrice")
	if err != nil {
		return domain.Quote{}, malformed(p.Name(), err)
	}
	if !price.IsPositive() {
		return domain.Quote{}, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
	}

	q := domain.Quote{Symbol: symbol, CurrentPrice: price, Source: p.Name()}
	q.PreviousClose = optionalField(meta, "chartPreviousClose")
	q.High = optionalField(meta, "regularMarketDayHigh")
	q.Low = optionalField(meta, "regularMarketDayLow")
	q.Volume = optionalField(meta, "regularMarketVolume")
	q.Open = optionalField(result, "indicators", "quote", "[0]", "open", "[0]")
	if ts, err := jsonparser.GetInt(meta, "regularMarketTime"); err == nil && ts > 0 {
		q.AsOf = time.Unix(ts, 0).UTC()
	}
	return q, nil
}

// FetchHistory reads daily bars from the chart endpoint. Bars with a null
// close, which Yahoo emits for halted sessions, are dropped.
func (p *Yahoo) FetchHistory(ctx context.Context, symbol string, class domain.AssetClass, since time.Time) ([]domain.Candle, error) {
	params := url.Values{"interval": {"1d"}}
	if since.IsZero() {
		params.Set("range", "max")
		params.Set("interval", "1wk")
	} else {
		params.Set("period1", strconv.FormatInt(since.Unix(), 10))
		params.Set("period2", strconv.FormatInt(time.Now().Unix(), 10))
	}
	result, err := p.chart(ctx, symbol, class, params)
	if err != nil {
		return nil, err
	}

	var stamps []int64
	_, err = jsonparser.ArrayEach(result, func(v []byte, _ jsonparser.ValueType, _ int, _ error) {
		ts, perr := jsonparser.ParseInt(v)
		if perr == nil {
			stamps = append(stamps, ts)
		}
	}, "timestamp")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		// a range with no sessions has no timestamp array
		return []domain.Candle{}, nil
	}
	if err != nil {
		return nil, malformed(p.Name(), err)
	}

	bars, _, _, err := jsonparser.Get(result, "indicators", "quote", "[0]")
	if err != nil {
		return nil, malformed(p.Name(), err)
	}
	columns := make(map[string][]decimal.NullDecimal, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		col, err := nullableColumn(bars, name)
		if err != nil {
			return nil, malformed(p.Name(), err)
		}
		columns[name] = col
	}

	candles := make([]domain.Candle, 0, len(stamps))
	for i, ts := range stamps {
		at := func(name string) decimal.Decimal {
			col := columns[name]
			if i < len(col) && col[i].Valid {
				return col[i].Decimal
			}
			return decimal.Zero
		}
		if col := columns["close"]; i >= len(col) || !col[i].Valid {
			continue
		}
		y, m, d := time.Unix(ts, 0).UTC().Date()
		candles = append(candles, domain.Candle{
			Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   at("open"),
			High:   at("high"),
			Low:    at("low"),
			Close:  at("close"),
			Volume: at("volume"),
		})
	}
	return candles, nil
}

// yahooSearchLimit caps the quotes requested from /v1/finance/search
const yahooSearchLimit = 10

// SearchSymbols calls the public search endpoint and keeps equities, ETFs
// and USD crypto pairs.
func (p *Yahoo) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	params := url.Values{
		"q":           {query},
		"quotesCount": {strconv.Itoa(yahooSearchLimit)},
		"newsCount":   {"0"},
	}
	status, body, err := get(ctx, p.client, p.Name(), p.baseURL+"/v1/finance/search?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if err := statusError(p.Name(), status); err != nil {
		return nil, err
	}

	matches := []domain.SymbolMatch{}
	_, err = jsonparser.ArrayEach(body, func(v []byte, _ jsonparser.ValueType, _ int, _ error) {
		symbol, _ := jsonparser.GetString(v, "symbol")
		kind, _ := jsonparser.GetString(v, "quoteType")
		m := domain.SymbolMatch{Symbol: domain.NormalizeSymbol(symbol)}
		switch kind {
		case "EQUITY":
			m.AssetClass = domain.AssetClassStock
		case "ETF":
			m.AssetClass = domain.AssetClassETF
		case "CRYPTOCURRENCY":
			if !strings.HasSuffix(m.Symbol, "-USD") {
				return
			}
			m.AssetClass = domain.AssetClassCrypto
			m.Symbol = strings.ReplaceAll(m.Symbol, "-", "")
		default:
			return
		}
		if m.Symbol == "" || strings.Contains(m.Symbol, ".") {
			return
		}
		if m.Name, _ = jsonparser.GetString(v, "longname"); m.Name == "" {
			m.Name, _ = jsonparser.GetString(v, "shortname")
		}
		if m.Exchange, _ = jsonparser.GetString(v, "exchDisp"); m.Exchange == "" {
			m.Exchange, _ = jsonparser.GetString(v, "exchange")
		}
		matches = append(matches, m)
	}, "quotes")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, malformed(p.Name(), err)
	}
	return matches, nil
}

func decimalField(data []byte, keys ...string) (decimal.Decimal, error) {
	raw, _, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(raw))
}

// optionalField reads a positive decimal at keys, or nothing
func optionalField(data []byte, keys ...string) decimal.NullDecimal {
	d, err := decimalField(data, keys...)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return positive(d)
}

// nullableColumn reads a numeric array whose entries may be null
func nullableColumn(data []byte, key string) ([]decimal.NullDecimal, error) {
	var col []decimal.NullDecimal
	var perr error
	_, err := jsonparser.ArrayEach(data, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
		if t != jsonparser.Number {
			col = append(col, decimal.NullDecimal{})
			return
		}
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			perr = err
		}
		col = append(col, decimal.NullDecimal{Decimal: d, Valid: err == nil})
	}, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return col, perr
}
