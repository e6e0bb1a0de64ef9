// Package present renders domain results as plain maps shared by the gRPC
// (structpb) and HTTP (JSON) transports. Amounts are decimal strings, absent
// values are nil, and times are RFC 3339 in UTC.
package present

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/valuation"
	"github.com/simaogato/papertrade-backend/internal/usecase/watchlist"
)

// Object is one rendered entity
type Object = map[string]any

func ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullDec(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// List converts rendered objects into the []any form structpb accepts
func List[T any](items []T, render func(T) Object) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, render(it))
	}
	return out
}

func Quote(q domain.Quote) Object {
	return Object{
		"symbol":         q.Symbol,
		"asset_class":    string(q.AssetClass),
		"current_price":  q.CurrentPrice.String(),
		"previous_close": nullDec(q.PreviousClose),
		"open":           nullDec(q.Open),
		"high":           nullDec(q.High),
		"low":            nullDec(q.Low),
		"volume":         nullDec(q.Volume),
		"change":         nullDec(q.Change()),
		"change_percent": nullDec(q.ChangePercent()),
		"as_of":          ts(q.AsOf),
		"source":         q.Source,
	}
}

func SymbolMatch(m domain.SymbolMatch) Object {
	return Object{
		"symbol":      m.Symbol,
		"name":        m.Name,
		"asset_class": string(m.AssetClass),
		"exchange":    m.Exchange,
	}
}

// Candle renders a daily bar; date is YYYY-MM-DD
func Candle(c domain.Candle) Object {
	return Object{
		"date":   c.Date.Format(domain.DateLayout),
		"open":   c.Open.String(),
		"high":   c.High.String(),
		"low":    c.Low.String(),
		"close":  c.Close.String(),
		"volume": c.Volume.String(),
	}
}

func Trade(t *domain.Trade) Object {
	return Object{
		"id":          t.ID.String(),
		"account_id":  t.AccountID.String(),
		"symbol":      t.Symbol,
		"asset_class": string(t.AssetClass),
		"action":      string(t.Action),
		"quantity":    t.Quantity.String(),
		"price":       t.Price.String(),
		"fee":         t.Fee.String(),
		"total_value": t.TotalValue.String(),
		"executed_at": ts(t.ExecutedAt),
	}
}

func Account(a *domain.Account) Object {
	return Object{
		"id":              a.ID.String(),
		"name":            a.Name,
		"cash_balance":    a.CashBalance.String(),
		"initial_balance": a.InitialBalance.String(),
		"created_at":      ts(a.CreatedAt),
	}
}

func Holding(h valuation.HoldingValuation) Object {
	o := Object{
		"symbol":                 h.Symbol,
		"asset_class":            string(h.AssetClass),
		"quantity":               h.Quantity.String(),
		"average_cost":           h.AverageCost.String(),
		"cost_basis":             h.CostBasis.String(),
		"current_price":          nullDec(h.CurrentPrice),
		"current_value":          nullDec(h.CurrentValue),
		"unrealized_pnl":         nullDec(h.UnrealizedPnL),
		"unrealized_pnl_percent": nullDec(h.UnrealizedPnLPercent),
		"day_change_percent":     nullDec(h.DayChangePercent),
		"quote_as_of":            ts(h.QuoteAsOf),
		"quote_source":           nil,
		"quote_error":            nil,
	}
	if h.QuoteSource != "" {
		o["quote_source"] = h.QuoteSource
	}
	if h.QuoteError != "" {
		o["quote_error"] = h.QuoteError
	}
	return o
}

// Valuation renders a marked-to-market portfolio
func Valuation(v *valuation.Valuation) Object {
	return Object{
		"account_id":      v.AccountID.String(),
		"cash_balance":    v.CashBalance.String(),
		"holdings_value":  v.HoldingsValue.String(),
		"total_value":     v.TotalValue.String(),
		"initial_balance": v.InitialBalance.String(),
		"cost_basis":      v.CostBasis.String(),
		"holdings":        List(v.Holdings, Holding),
		"as_of":           ts(v.AsOf),
		"complete":        v.Complete,
	}
}

func Performance(p *valuation.Performance) Object {
	o := Object{
		"period":          p.Period.String(),
		"start_date":      nil,
		"start_value":     p.StartValue.String(),
		"end_value":       p.EndValue.String(),
		"absolute_change": p.AbsoluteChange.String(),
		"percent_change":  p.PercentChange.String(),
	}
	if p.StartDate != "" {
		o["start_date"] = p.StartDate
	}
	return o
}

func ValuePoint(p valuation.ValuePoint) Object {
	return Object{
		"date":           p.Date,
		"total_value":    p.TotalValue.String(),
		"cash_balance":   p.CashBalance.String(),
		"holdings_value": p.HoldingsValue.String(),
		"live":           p.Live,
	}
}

func Snapshot(s *domain.PortfolioSnapshot) Object {
	return Object{
		"account_id":     s.AccountID.String(),
		"date":           s.Date,
		"total_value":    s.TotalValue.String(),
		"cash_balance":   s.CashBalance.String(),
		"holdings_value": s.HoldingsValue.String(),
		"taken_at":       ts(s.TakenAt),
	}
}

func WatchEntry(e *domain.WatchlistEntry) Object {
	return Object{
		"id":          e.ID.String(),
		"symbol":      e.Symbol,
		"asset_class": string(e.AssetClass),
		"added_at":    ts(e.AddedAt),
	}
}

// WatchItem renders an entry with its quote, or a nil quote when unavailable
func WatchItem(it watchlist.Item) Object {
	o := WatchEntry(it.Entry)
	o["quote"] = nil
	if it.Quote != nil {
		o["quote"] = Quote(*it.Quote)
	}
	return o
}
