package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DefaultLockTimeout bounds how long a mutation waits for its account
const DefaultLockTimeout = 5 * time.Second

// TradeInput is a priced order for one account
type TradeInput struct {
	AccountID  uuid.UUID
	Symbol     string
	AssetClass domain.AssetClass
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
}

// Ledger is the only mutation path into cash and holdings.
// Mutations on one account are serialized; each one commits atomically.
type Ledger struct {
	PortfolioRepo domain.PortfolioRepository
	LockTimeout   time.Duration
	Logger        *slog.Logger

	locks *accountLocks
	now   func() time.Time
}

// NewLedger creates a new Ledger instance
func NewLedger(portfolioRepo domain.PortfolioRepository, lockTimeout time.Duration, logger *slog.Logger) *Ledger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		PortfolioRepo: portfolioRepo,
		LockTimeout:   lockTimeout,
		Logger:        logger,
		locks:         newAccountLocks(),
		now:           time.Now,
	}
}

// ApplyBuy debits Quantity*Price + Fee and opens or grows the position.
// Fails with ErrInsufficientFunds when cash does not cover it.
func (l *Ledger) ApplyBuy(ctx context.Context, in TradeInput) (*domain.Trade, error) {
	return l.apply(ctx, domain.TradeActionBuy, in)
}

// ApplySell credits Quantity*Price - Fee and shrinks or closes the position.
// Fails with ErrInsufficientHoldings when the position is smaller than Quantity.
func (l *Ledger) ApplySell(ctx context.Context, in TradeInput) (*domain.Trade, error) {
	return l.apply(ctx, domain.TradeActionSell, in)
}

func (l *Ledger) apply(ctx context.Context, action domain.TradeAction, in TradeInput) (*domain.Trade, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}

	release, err := l.locks.acquire(ctx, in.AccountID, l.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	portfolio, err := l.PortfolioRepo.GetPortfolio(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	fill := domain.Fill{
		Symbol:     domain.NormalizeSymbol(in.Symbol),
		AssetClass: in.AssetClass,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Fee:        in.Fee,
		ExecutedAt: l.now().UTC(),
	}

	var m *domain.LedgerMutation
	if action == domain.TradeActionBuy {
		m, err = portfolio.Buy(fill)
	} else {
		m, err = portfolio.Sell(fill)
	}
	if err != nil {
		return nil, err
	}

	if err := l.PortfolioRepo.ApplyTrade(ctx, m); err != nil {
		return nil, fmt.Errorf("apply %s %s: %w", action, fill.Symbol, err)
	}

	l.Logger.Info("trade applied",
		"account_id", in.AccountID,
		"action", string(action),
		"symbol", fill.Symbol,
		"quantity", fill.Quantity.String(),
		"price", fill.Price.String(),
		"cash_balance", m.CashBalance.String(),
	)
	return m.Trade, nil
}
