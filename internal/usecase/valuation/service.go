package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
)

var hundred = decimal.NewFromInt(100)

// QuoteBatch prices many instruments at once, reporting failures per instrument
type QuoteBatch interface {
	Quotes(ctx context.Context, instruments []domain.Instrument) map[domain.Instrument]marketdata.QuoteResult
}

// HoldingValuation is one position marked to market. The price fields are
// absent when no quote could be obtained.
type HoldingValuation struct {
	Symbol               string
	AssetClass           domain.AssetClass
	Quantity             decimal.Decimal
	AverageCost          decimal.Decimal
	CostBasis            decimal.Decimal
	CurrentPrice         decimal.NullDecimal
	CurrentValue         decimal.NullDecimal
	UnrealizedPnL        decimal.NullDecimal
	UnrealizedPnLPercent decimal.NullDecimal
	DayChangePercent     decimal.NullDecimal
	QuoteAsOf            time.Time
	QuoteSource          string
	QuoteError           string // failure kind when the price is absent
}

// Valuation is an account marked to market.
// Complete is false when at least one holding could not be priced.
type Valuation struct {
	AccountID      uuid.UUID
	CashBalance    decimal.Decimal
	HoldingsValue  decimal.Decimal
	TotalValue     decimal.Decimal
	InitialBalance decimal.Decimal
	CostBasis      decimal.Decimal
	Holdings       []HoldingValuation
	AsOf           time.Time
	Complete       bool
}

// Performance is the change in total value over a period
type Performance struct {
	Period         domain.Period
	StartDate      string
	StartValue     decimal.Decimal
	EndValue       decimal.Decimal
	AbsoluteChange decimal.Decimal
	PercentChange  decimal.Decimal
}

// ValuePoint is one point of the value-history series
type ValuePoint struct {
	Date          string
	TotalValue    decimal.Decimal
	CashBalance   decimal.Decimal
	HoldingsValue decimal.Decimal
	Live          bool // the current valuation rather than a stored snapshot
}

// ValuationService marks portfolios to market and reports performance
type ValuationService struct {
	PortfolioRepo domain.PortfolioRepository
	SnapshotRepo  domain.SnapshotRepository
	AccountRepo   domain.AccountRepository
	Quotes        QuoteBatch
	Location      *time.Location
	Logger        *slog.Logger

	now func() time.Time
}

// NewValuationService creates a new ValuationService instance.
// Snapshot dates and period boundaries are calendar days in loc.
func NewValuationService(
	portfolioRepo domain.PortfolioRepository,
	snapshotRepo domain.SnapshotRepository,
	accountRepo domain.AccountRepository,
	quotes QuoteBatch,
	loc *time.Location,
	logger *slog.Logger,
) *ValuationService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValuationService{
		PortfolioRepo: portfolioRepo,
		SnapshotRepo:  snapshotRepo,
		AccountRepo:   accountRepo,
		Quotes:        quotes,
		Location:      loc,
		Logger:        logger,
		now:           time.Now,
	}
}

// Valuate marks every holding to market. A failed quote degrades only that
// holding: its price is absent and it is left out of HoldingsValue.
func (s *ValuationService) Valuate(ctx context.Context, accountID uuid.UUID) (*Valuation, error) {
	p, err := s.PortfolioRepo.GetPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		instruments = append(instruments, h.Instrument())
	}
	var quotes map[domain.Instrument]marketdata.QuoteResult
	if len(instruments) > 0 {
		quotes = s.Quotes.Quotes(ctx, instruments)
	}

	v := &Valuation{
		AccountID:      p.Account.ID,
		CashBalance:    p.Account.CashBalance,
		HoldingsValue:  decimal.Zero,
		InitialBalance: p.Account.InitialBalance,
		CostBasis:      decimal.Zero,
		Holdings:       make([]HoldingValuation, 0, len(p.Holdings)),
		AsOf:           s.now().UTC(),
		Complete:       true,
	}

	for _, h := range p.Holdings {
		hv := HoldingValuation{
			Symbol:      h.Symbol,
			AssetClass:  h.AssetClass,
			Quantity:    h.Quantity,
			AverageCost: h.AverageCost,
			CostBasis:   h.CostBasis().Round(domain.AmountPlaces),
		}
		v.CostBasis = v.CostBasis.Add(hv.CostBasis)

		res, ok := quotes[h.Instrument()]
		if !ok || res.Err != nil {
			v.Complete = false
			hv.QuoteError = domain.KindQuoteUnavailable.String()
			if res.Err != nil {
				hv.QuoteError = domain.KindOf(res.Err).String()
				s.Logger.Warn("holding not priced", "account_id", accountID, "symbol", h.Symbol, "error", res.Err)
			}
			v.Holdings = append(v.Holdings, hv)
			continue
		}

		q := res.Quote
		value := h.Quantity.Mul(q.CurrentPrice).Round(domain.AmountPlaces)
		pnl := h.Quantity.Mul(q.CurrentPrice.Sub(h.AverageCost)).Round(domain.AmountPlaces)
		pct := decimal.Zero
		if hv.CostBasis.IsPositive() {
			pct = pnl.Div(hv.CostBasis).Mul(hundred).Round(4)
		}
		hv.CurrentPrice = decimal.NewNullDecimal(q.CurrentPrice)
		hv.CurrentValue = decimal.NewNullDecimal(value)
		hv.UnrealizedPnL = decimal.NewNullDecimal(pnl)
		hv.UnrealizedPnLPercent = decimal.NewNullDecimal(pct)
		hv.DayChangePercent = q.ChangePercent()
		hv.QuoteAsOf = q.AsOf
		hv.QuoteSource = q.Source

		v.HoldingsValue = v.HoldingsValue.Add(value)
		v.Holdings = append(v.Holdings, hv)
	}

	v.TotalValue = v.CashBalance.Add(v.HoldingsValue)
	return v, nil
}

// Performance reports the change in total value over period
func (s *ValuationService) Performance(ctx context.Context, accountID uuid.UUID, period domain.Period) (*Performance, error) {
	v, err := s.Valuate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.performance(ctx, v, period)
}

// PerformanceSummary reports every period that has enough history, sharing one valuation
func (s *ValuationService) PerformanceSummary(ctx context.Context, accountID uuid.UUID) ([]*Performance, error) {
	v, err := s.Valuate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]*Performance, 0, len(domain.Periods))
	for _, period := range domain.Periods {
		perf, err := s.performance(ctx, v, period)
		if errors.Is(err, domain.ErrInsufficientHistory) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, perf)
	}
	return out, nil
}

func (s *ValuationService) performance(ctx context.Context, v *Valuation, period domain.Period) (*Performance, error) {
	perf := &Performance{Period: period, EndValue: v.TotalValue}

	start, bounded := period.StartDate(s.today())
	if !bounded {
		perf.StartValue = v.InitialBalance
	} else {
		date := start.Format(domain.DateLayout)
		snap, err := s.SnapshotRepo.GetOnOrBefore(ctx, v.AccountID, date)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s performance needs a snapshot on or before %s: %w", period, date, domain.ErrInsufficientHistory)
		}
		if err != nil {
			return nil, err
		}
		perf.StartDate = snap.Date
		perf.StartValue = snap.TotalValue
	}

	perf.AbsoluteChange = perf.EndValue.Sub(perf.StartValue)
	perf.PercentChange = decimal.Zero
	if perf.StartValue.IsPositive() {
		perf.PercentChange = perf.AbsoluteChange.Div(perf.StartValue).Mul(hundred).Round(4)
	}
	return perf, nil
}

// ValueHistory returns the stored snapshots since the start of period, oldest
// first, followed by the live valuation as today's point.
func (s *ValuationService) ValueHistory(ctx context.Context, accountID uuid.UUID, period domain.Period) ([]ValuePoint, error) {
	v, err := s.Valuate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	from := ""
	if start, ok := period.StartDate(s.today()); ok {
		from = start.Format(domain.DateLayout)
	}
	snaps, err := s.SnapshotRepo.List(ctx, accountID, from)
	if err != nil {
		return nil, err
	}

	today := s.today().Format(domain.DateLayout)
	points := make([]ValuePoint, 0, len(snaps)+1)
	for _, snap := range snaps {
		if snap.Date == today {
			continue
		}
		points = append(points, ValuePoint{
			Date:          snap.Date,
			TotalValue:    snap.TotalValue,
			CashBalance:   snap.CashBalance,
			HoldingsValue: snap.HoldingsValue,
		})
	}
	points = append(points, ValuePoint{
		Date:          today,
		TotalValue:    v.TotalValue,
		CashBalance:   v.CashBalance,
		HoldingsValue: v.HoldingsValue,
		Live:          true,
	})
	return points, nil
}

// TakeSnapshot upserts today's snapshot from a fresh valuation. It refuses
// when any holding could not be priced, so an outage never records a drop.
func (s *ValuationService) TakeSnapshot(ctx context.Context, accountID uuid.UUID) (*domain.PortfolioSnapshot, error) {
	v, err := s.Valuate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !v.Complete {
		return nil, fmt.Errorf("snapshot of %s skipped, valuation incomplete: %w", accountID, domain.ErrQuoteUnavailable)
	}

	snap := &domain.PortfolioSnapshot{
		AccountID:     accountID,
		Date:          s.today().Format(domain.DateLayout),
		TotalValue:    v.TotalValue,
		CashBalance:   v.CashBalance,
		HoldingsValue: v.HoldingsValue,
		TakenAt:       v.AsOf,
	}
	if err := s.SnapshotRepo.Upsert(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotAll takes today's snapshot for every account. A failing account is
// logged and skipped.
func (s *ValuationService) SnapshotAll(ctx context.Context) (taken, failed int, err error) {
	accounts, err := s.AccountRepo.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range accounts {
		if ctx.Err() != nil {
			return taken, failed, ctx.Err()
		}
		if _, err := s.TakeSnapshot(ctx, a.ID); err != nil {
			failed++
			s.Logger.Warn("snapshot failed", "account_id", a.ID, "kind", domain.KindOf(err).String(), "error", err)
			continue
		}
		taken++
	}
	return taken, failed, nil
}

func (s *ValuationService) today() time.Time {
	return s.now().In(s.Location)
}
