package provider

import (
	"context"
	"encoding/json"
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

const (
	binanceDefaultBaseURL = "https://api.binance.com"
	binanceInvalidSymbol  = -1121
)

// Binance serves crypto quotes from the public 24h ticker
type Binance struct {
	baseURL string
	client  *http.Client
}

var (
	_ domain.QuoteProvider   = (*Binance)(nil)
	_ domain.HistoryProvider = (*Binance)(nil)
)

// NewBinance creates a Binance ticker provider
func NewBinance(baseURL string, client *http.Client) *Binance {
	if baseURL == "" {
		baseURL = binanceDefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Binance{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Binance) Name() string { return "binance" }

// BinanceSymbol maps a USD pair to the USDT market Binance actually lists:
// BTCUSD, BTC-USD and BTC all become BTCUSDT.
func BinanceSymbol(symbol string) string {
	s := strings.NewReplacer("-", "", "/", "").Replace(strings.ToUpper(symbol))
	switch {
	case strings.HasSuffix(s, "USDT"), strings.HasSuffix(s, "USDC"), strings.HasSuffix(s, "BUSD"):
		return s
	case strings.HasSuffix(s, "USD"):
		return s + "T"
	default:
		return s + "USDT"
	}
}

type binanceTicker struct {
	LastPrice      decimal.Decimal `json:"lastPrice"`
	PrevClosePrice decimal.Decimal `json:"prevClosePrice"`
	OpenPrice      decimal.Decimal `json:"openPrice"`
	HighPrice      decimal.Decimal `json:"highPrice"`
	LowPrice       decimal.Decimal `json:"lowPrice"`
	Volume         decimal.Decimal `json:"volume"`
	CloseTime      int64           `json:"closeTime"`
}

func (p *Binance) FetchQuote(ctx context.Context, symbol string, _ domain.AssetClass) (domain.Quote, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", p.baseURL, url.QueryEscape(BinanceSymbol(symbol)))
	body, err := p.get(ctx, u)
	if err != nil {
		return domain.Quote{}, err
	}

	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.Quote{}, malformed(p.Name(), err)
	}

	q := domain.Quote{
		Symbol:       symbol,
		CurrentPrice: t.LastPrice,
		Open:         positive(t.OpenPrice),
		High:         positive(t.HighPrice),
		Low:          positive(t.LowPrice),
		Volume:       positive(t.Volume),
		Source:       p.Name(),
	}
	prev := t.PrevClosePrice
	if !prev.IsPositive() {
		prev = t.OpenPrice
	}
	if prev.IsPositive() {
		q.PreviousClose = decimal.NewNullDecimal(prev)
	}
	if t.CloseTime > 0 {
		q.AsOf = time.UnixMilli(t.CloseTime).UTC()
	}
	return q, nil
}

// get maps Binance's invalid symbol error to notFound
func (p *Binance) get(ctx context.Context, u string) ([]byte, error) {
	status, body, err := get(ctx, p.client, p.Name(), u)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest {
		if code, cerr := jsonparser.GetInt(body, "code"); cerr == nil && code == binanceInvalidSymbol {
			return nil, domain.NewProviderError(p.Name(), domain.ProviderNotFound, errNoData)
		}
	}
	if err := statusError(p.Name(), status); err != nil {
		return nil, err
	}
	return body, nil
}

// binanceKlineLimit is the most bars /klines returns in one call
const binanceKlineLimit = 1000

// FetchHistory reads daily klines. Each kline is an array of
// [openTime, open, high, low, close, volume, closeTime, ...].
func (p *Binance) FetchHistory(ctx context.Context, symbol string, _ domain.AssetClass, since time.Time) ([]domain.Candle, error) {
	params := url.Values{
		"symbol":   {BinanceSymbol(symbol)},
		"interval": {"1d"},
		"limit":    {strconv.Itoa(binanceKlineLimit)},
	}
	if !since.IsZero() {
		params.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}
	body, err := p.get(ctx, p.baseURL+"/api/v3/klines?"+params.Encode())
	if err != nil {
		return nil, err
	}

	candles := []domain.Candle{}
	var perr error
	_, err = jsonparser.ArrayEach(body, func(v []byte, _ jsonparser.ValueType, _ int, _ error) {
		if perr != nil {
			return
		}
		openTime, err := jsonparser.GetInt(v, "[0]")
		if err != nil {
			perr = err
			return
		}
		var c domain.Candle
		for i, dst := range []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			s, err := jsonparser.GetString(v, fmt.Sprintf("[%d]", i+1))
			if err != nil {
				perr = err
				return
			}
			if *dst, err = decimal.NewFromString(s); err != nil {
				perr = err
				return
			}
		}
		y, m, d := time.UnixMilli(openTime).UTC().Date()
		c.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		candles = append(candles, c)
	})
	if err == nil {
		err = perr
	}
	if err != nil {
		return nil, malformed(p.Name(), err)
	}
	return candles, nil
}
