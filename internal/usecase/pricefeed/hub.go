package pricefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
)

const (
	// DefaultInterval is how often subscribed instruments are re-quoted
	DefaultInterval = 5 * time.Second
	bufferSize      = 64
)

// QuoteBatch prices many instruments at once
type QuoteBatch interface {
	Quotes(ctx context.Context, instruments []domain.Instrument) map[domain.Instrument]marketdata.QuoteResult
}

// Subscription receives quote updates for the instruments it follows.
// Updates are dropped, not queued, when the consumer falls behind.
type Subscription struct {
	ch          chan domain.Quote
	instruments map[domain.Instrument]struct{}
}

// Updates is closed by Unsubscribe
func (s *Subscription) Updates() <-chan domain.Quote {
	return s.ch
}

// Hub polls the aggregator for the union of all subscriptions and fans the
// results out
type Hub struct {
	Quotes   QuoteBatch
	Interval time.Duration
	Logger   *slog.Logger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewHub creates a new Hub instance
func NewHub(quotes QuoteBatch, interval time.Duration, logger *slog.Logger) *Hub {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Quotes:   quotes,
		Interval: interval,
		Logger:   logger,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe(instruments ...domain.Instrument) *Subscription {
	sub := &Subscription{
		ch:          make(chan domain.Quote, bufferSize),
		instruments: make(map[domain.Instrument]struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	for _, inst := range instruments {
		sub.instruments[normalize(inst)] = struct{}{}
	}
	return sub
}

// Update changes what a subscriber follows
func (h *Hub) Update(sub *Subscription, add, remove []domain.Instrument) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	for _, inst := range add {
		sub.instruments[normalize(inst)] = struct{}{}
	}
	for _, inst := range remove {
		delete(sub.instruments, normalize(inst))
	}
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run polls until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}

// Tick fetches every followed instrument once and delivers the results.
// A failed instrument is simply absent from this round.
func (h *Hub) Tick(ctx context.Context) {
	h.mu.Lock()
	union := make(map[domain.Instrument]struct{})
	for sub := range h.subs {
		for inst := range sub.instruments {
			union[inst] = struct{}{}
		}
	}
	h.mu.Unlock()
	if len(union) == 0 {
		return
	}

	instruments := make([]domain.Instrument, 0, len(union))
	for inst := range union {
		instruments = append(instruments, inst)
	}
	results := h.Quotes.Quotes(ctx, instruments)

	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for sub := range h.subs {
		for inst := range sub.instruments {
			res, ok := results[inst]
			if !ok || res.Err != nil {
				continue
			}
			select {
			case sub.ch <- res.Quote:
			default:
				dropped++
			}
		}
	}
	if dropped > 0 {
		h.Logger.Debug("price updates dropped for slow subscribers", "dropped", dropped)
	}
}

func normalize(inst domain.Instrument) domain.Instrument {
	inst.Symbol = domain.NormalizeSymbol(inst.Symbol)
	return inst
}
