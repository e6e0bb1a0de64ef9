package trading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/ledger"
)

const (
	// MaxHistoryPage caps History's limit
	MaxHistoryPage = 500
	feePlaces      = 2
)

// QuoteSource is the part of the market data aggregator the engine needs
type QuoteSource interface {
	Quote(ctx context.Context, symbol string, assetClass domain.AssetClass) (domain.Quote, error)
}

// TradeLedger applies priced fills to an account
type TradeLedger interface {
	ApplyBuy(ctx context.Context, in ledger.TradeInput) (*domain.Trade, error)
	ApplySell(ctx context.Context, in ledger.TradeInput) (*domain.Trade, error)
}

// FeePolicy charges a percentage of notional, rounded to cents
type FeePolicy struct {
	Percent decimal.Decimal
}

// Fee returns the fee for a notional amount
func (f FeePolicy) Fee(notional decimal.Decimal) decimal.Decimal {
	if !f.Percent.IsPositive() {
		return decimal.Zero
	}
	return notional.Mul(f.Percent).Div(decimal.NewFromInt(100)).Round(feePlaces)
}

// ExecuteInput is a market order
type ExecuteInput struct {
	AccountID  uuid.UUID
	Symbol     string
	AssetClass domain.AssetClass
	Action     domain.TradeAction
	Quantity   decimal.Decimal
}

// TradingService executes market orders at a freshly verified price
type TradingService struct {
	Quotes    QuoteSource
	Ledger    TradeLedger
	TradeRepo domain.TradeRepository
	Fees      FeePolicy
	Logger    *slog.Logger
}

// NewTradingService creates a new TradingService instance
func NewTradingService(quotes QuoteSource, l TradeLedger, tradeRepo domain.TradeRepository, fees FeePolicy, logger *slog.Logger) *TradingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradingService{
		Quotes:    quotes,
		Ledger:    l,
		TradeRepo: tradeRepo,
		Fees:      fees,
		Logger:    logger,
	}
}

// Execute fills a market order. It never trades against a price it cannot
// presently verify, and it does not retry any failure.
func (s *TradingService) Execute(ctx context.Context, input ExecuteInput) (*domain.Trade, error) {
	if err := domain.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if input.Action != domain.TradeActionBuy && input.Action != domain.TradeActionSell {
		return nil, fmt.Errorf("trade action %q: %w", input.Action, domain.ErrInvalidArgument)
	}
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required: %w", domain.ErrInvalidArgument)
	}

	quote, err := s.Quotes.Quote(ctx, input.Symbol, input.AssetClass)
	if err != nil {
		s.Logger.Warn("trade rejected: no quote",
			"account_id", input.AccountID, "symbol", input.Symbol, "kind", domain.KindOf(err).String(), "error", err)
		return nil, err
	}

	// trades are stored at AmountPlaces
	price := quote.CurrentPrice.Round(domain.AmountPlaces)
	fill := ledger.TradeInput{
		AccountID:  input.AccountID,
		Symbol:     quote.Symbol,
		AssetClass: input.AssetClass,
		Quantity:   input.Quantity,
		Price:      price,
		Fee:        s.Fees.Fee(input.Quantity.Mul(price)),
	}

	if input.Action == domain.TradeActionBuy {
		return s.Ledger.ApplyBuy(ctx, fill)
	}
	return s.Ledger.ApplySell(ctx, fill)
}

// History returns a page of trades, newest first, and the total count
func (s *TradingService) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Trade, int, error) {
	if limit <= 0 || limit > MaxHistoryPage {
		return nil, 0, fmt.Errorf("limit must be between 1 and %d: %w", MaxHistoryPage, domain.ErrInvalidArgument)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("offset cannot be negative: %w", domain.ErrInvalidArgument)
	}

	trades, err := s.TradeRepo.List(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.TradeRepo.Count(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}
