package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"1234.5", "$1,234.50"},
		{"98498.5", "$98,498.50"},
		{"0", "$0.00"},
		{"-12.345", "-$12.35"},
		{"153.333333", "$153.33"},
		{nil, na},
		{"", na},
		{"abc", na},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.in), "%v", tt.in)
	}
}

func TestFormatSignedAndPercent(t *testing.T) {
	assert.Equal(t, "+$100.00", formatSignedMoney("100"))
	assert.Equal(t, "-$5.00", formatSignedMoney("-5"))
	assert.Equal(t, "$0.00", formatSignedMoney("0"))

	assert.Equal(t, "0.10%", formatPercent("0.1"))
	assert.Equal(t, "-1.50%", formatPercent("-1.5"))
	assert.Equal(t, na, formatPercent(nil))

	assert.Equal(t, "0.5", formatQuantity("0.50000000"))
}

func TestRenderPortfolio(t *testing.T) {
	resp := map[string]any{"portfolio": map[string]any{
		"cash_balance":   "98500",
		"holdings_value": "1600",
		"total_value":    "100100",
		"complete":       true,
		"holdings": []any{map[string]any{
			"symbol":                 "AAPL",
			"asset_class":            "stock",
			"quantity":               "10",
			"average_cost":           "150",
			"current_price":          "160",
			"current_value":          "1600",
			"unrealized_pnl":         "100",
			"unrealized_pnl_percent": "6.67",
		}},
	}}

	var buf bytes.Buffer
	require.NoError(t, renderPortfolio(&buf, resp))
	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "+$100.00")
	assert.Contains(t, out, "total $100,100.00")
	assert.NotContains(t, out, "unavailable")
}

func TestRenderWatchlist_MissingQuote(t *testing.T) {
	resp := map[string]any{"items": []any{
		map[string]any{"id": "1", "symbol": "AAPL", "asset_class": "stock", "quote": map[string]any{"current_price": "150", "change_percent": "1.2"}},
		map[string]any{"id": "2", "symbol": "NOPE", "asset_class": "stock", "quote": nil},
	}}

	var buf bytes.Buffer
	require.NoError(t, renderWatchlist(&buf, resp))
	out := buf.String()
	assert.Contains(t, out, "$150.00")
	assert.Contains(t, out, "1.20%")
	assert.Contains(t, out, "NOPE")
	assert.Contains(t, out, na)
}

func TestRenderQuote_SessionRange(t *testing.T) {
	resp := map[string]any{"quote": map[string]any{
		"symbol": "BTCUSD", "current_price": "42000.5", "change": "100.5", "change_percent": "0.24",
		"open": "41900", "high": "42500", "low": "41000", "volume": "1234.50000000",
		"source": "binance", "as_of": "2024-06-15T12:00:00Z",
	}}

	var buf bytes.Buffer
	require.NoError(t, renderQuote(&buf, resp))
	out := buf.String()
	assert.Contains(t, out, "$42,000.50")
	assert.Contains(t, out, "day range $41,000.00 to $42,500.00")
	assert.Contains(t, out, "volume 1234.5")

	buf.Reset()
	delete(resp["quote"].(map[string]any), "high")
	require.NoError(t, renderQuote(&buf, resp))
	assert.NotContains(t, buf.String(), "day range")
}

func TestRenderSearchAndBars(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderSearch(&buf, map[string]any{"results": []any{
		map[string]any{"symbol": "BTCUSD", "name": "Bitcoin", "asset_class": "crypto", "exchange": "Binance"},
	}}))
	assert.Contains(t, buf.String(), "BTCUSD")
	assert.Contains(t, buf.String(), "Bitcoin")

	buf.Reset()
	require.NoError(t, renderBars(&buf, map[string]any{"symbol": "AAPL", "period": "weekly", "candles": []any{
		map[string]any{"date": "2024-06-14", "open": "150", "high": "153", "low": "149.5", "close": "151.25", "volume": "1200"},
	}}))
	out := buf.String()
	assert.Contains(t, out, "2024-06-14")
	assert.Contains(t, out, "$151.25")
	assert.Contains(t, out, "AAPL weekly, 1 bars")
}
