package pricefeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQuotes struct {
	mu    sync.Mutex
	asked [][]domain.Instrument
}

func (r *recordingQuotes) Quotes(_ context.Context, instruments []domain.Instrument) map[domain.Instrument]marketdata.QuoteResult {
	r.mu.Lock()
	r.asked = append(r.asked, instruments)
	r.mu.Unlock()

	out := make(map[domain.Instrument]marketdata.QuoteResult)
	for _, inst := range instruments {
		if inst.Symbol == "FAIL" {
			out[inst] = marketdata.QuoteResult{Err: domain.ErrQuoteUnavailable}
			continue
		}
		out[inst] = marketdata.QuoteResult{Quote: domain.Quote{Symbol: inst.Symbol, AssetClass: inst.AssetClass, CurrentPrice: decimal.NewFromInt(1)}}
	}
	return out
}

var (
	aapl = domain.Instrument{Symbol: "AAPL", AssetClass: domain.AssetClassStock}
	btc  = domain.Instrument{Symbol: "BTCUSD", AssetClass: domain.AssetClassCrypto}
	fail = domain.Instrument{Symbol: "FAIL", AssetClass: domain.AssetClassStock}
)

func drain(sub *Subscription) []string {
	var got []string
	for {
		select {
		case q := <-sub.Updates():
			got = append(got, q.Symbol)
		default:
			return got
		}
	}
}

func TestHub_TickFansOut(t *testing.T) {
	quotes := &recordingQuotes{}
	h := NewHub(quotes, time.Second, nil)

	a := h.Subscribe(domain.Instrument{Symbol: "aapl", AssetClass: domain.AssetClassStock}, fail)
	b := h.Subscribe(aapl, btc)

	h.Tick(context.Background())

	require.Len(t, quotes.asked, 1)
	assert.Len(t, quotes.asked[0], 3, "union is fetched once")
	assert.ElementsMatch(t, []string{"AAPL"}, drain(a))
	assert.ElementsMatch(t, []string{"AAPL", "BTCUSD"}, drain(b))
}

func TestHub_UpdateAndUnsubscribe(t *testing.T) {
	quotes := &recordingQuotes{}
	h := NewHub(quotes, time.Second, nil)
	sub := h.Subscribe(aapl)

	h.Update(sub, []domain.Instrument{btc}, []domain.Instrument{aapl})
	h.Tick(context.Background())
	assert.Equal(t, []string{"BTCUSD"}, drain(sub))

	h.Unsubscribe(sub)
	_, open := <-sub.Updates()
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers())

	h.Unsubscribe(sub) // second call is a no-op
	h.Tick(context.Background())
	assert.Len(t, quotes.asked, 1, "no subscribers means no fetch")
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(&recordingQuotes{}, time.Second, nil)
	sub := h.Subscribe(aapl)

	for i := 0; i < bufferSize+10; i++ {
		h.Tick(context.Background())
	}
	assert.Len(t, drain(sub), bufferSize)
}

func TestHub_Run(t *testing.T) {
	h := NewHub(&recordingQuotes{}, 5*time.Millisecond, nil)
	sub := h.Subscribe(aapl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case q := <-sub.Updates():
		assert.Equal(t, "AAPL", q.Symbol)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
