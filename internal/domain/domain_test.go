package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrapped funds", fmt.Errorf("buy: %w", ErrInsufficientFunds), KindInsufficientFunds},
		{"symbol", ErrSymbolNotFound, KindSymbolNotFound},
		{"version conflict maps to busy", fmt.Errorf("x: %w", ErrConcurrentModification), KindAccountBusy},
		{"canceled", fmt.Errorf("wait: %w", context.Canceled), KindCanceled},
		{"plain", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
	assert.True(t, KindQuoteUnavailable.Retryable())
	assert.False(t, KindInsufficientFunds.Retryable())
	assert.Equal(t, "insufficient_holdings", KindInsufficientHoldings.String())
}

func TestProviderErrorKindOf(t *testing.T) {
	nf := NewProviderError("finnhub", ProviderNotFound, errors.New("no data"))
	assert.Equal(t, ProviderNotFound, ProviderErrorKindOf(fmt.Errorf("wrap: %w", nf)))
	assert.Equal(t, ProviderTransient, ProviderErrorKindOf(errors.New("dial tcp")))
	assert.Contains(t, nf.Error(), "finnhub")
	assert.Contains(t, nf.Error(), "not_found")
}

func TestParseAssetClass(t *testing.T) {
	c, err := ParseAssetClass(" Crypto ")
	require.NoError(t, err)
	assert.Equal(t, AssetClassCrypto, c)

	_, err = ParseAssetClass("bond")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "BRK.B", NormalizeSymbol(" brk.b "))
}

func TestQuote_Change(t *testing.T) {
	q := Quote{Symbol: "AAPL", CurrentPrice: decimal.NewFromInt(110)}
	assert.False(t, q.Change().Valid)
	assert.False(t, q.ChangePercent().Valid)

	q.PreviousClose = decimal.NewNullDecimal(decimal.NewFromInt(100))
	assert.Equal(t, "10", q.Change().Decimal.String())
	assert.Equal(t, "10", q.ChangePercent().Decimal.String())
	assert.NoError(t, q.Validate())

	q.CurrentPrice = decimal.Zero
	assert.ErrorIs(t, q.Validate(), ErrInvalidArgument)
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{
		"daily": PeriodDaily, "WEEK": PeriodWeekly, "monthly": PeriodMonthly,
		"ytd": PeriodYTD, "all_time": PeriodAllTime, "all": PeriodAllTime,
		"3M": PeriodQuarterly, "quarterly": PeriodQuarterly,
		"1Y": PeriodYearly, "yearly": PeriodYearly, "1M": PeriodMonthly, "YTD": PeriodYTD,
	} {
		got, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePeriod("yearly-ish")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "all_time", PeriodAllTime.String())

	for _, p := range Periods {
		got, err := ParsePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got, "String round-trips through ParsePeriod")
	}
}

func TestPeriod_StartDate(t *testing.T) {
	today := time.Date(2024, time.March, 31, 15, 4, 0, 0, time.UTC)
	tests := []struct {
		period Period
		want   string
	}{
		{PeriodDaily, "2024-03-30"},
		{PeriodWeekly, "2024-03-24"},
		{PeriodMonthly, "2024-03-02"}, // AddDate normalizes Feb 31
		{PeriodQuarterly, "2023-12-31"},
		{PeriodYearly, "2023-03-31"},
		{PeriodYTD, "2023-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			start, ok := tt.period.StartDate(today)
			require.True(t, ok)
			assert.Equal(t, tt.want, start.Format(DateLayout))
		})
	}
	_, ok := PeriodAllTime.StartDate(today)
	assert.False(t, ok)
}

func TestAccount_Validate(t *testing.T) {
	a, err := NewAccount(" demo ", DefaultInitialBalance, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "demo", a.Name)
	assert.True(t, a.CashBalance.Equal(a.InitialBalance))

	_, err = NewAccount("", DefaultInitialBalance, time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewAccount("x", decimal.NewFromInt(-1), time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseTradeAction(t *testing.T) {
	a, err := ParseTradeAction("SELL")
	require.NoError(t, err)
	assert.Equal(t, TradeActionSell, a)
	_, err = ParseTradeAction("short")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
