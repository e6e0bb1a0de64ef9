package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPortfolioRepository is a mock implementation of PortfolioRepository for testing
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetPortfolio(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) ApplyTrade(ctx context.Context, mut *domain.LedgerMutation) error {
	args := m.Called(ctx, mut)
	return args.Error(0)
}

// memRepo keeps one portfolio in memory and enforces the version guard
type memRepo struct {
	mu        sync.Mutex
	portfolio *domain.Portfolio
	trades    []*domain.Trade
	readDelay time.Duration
}

func newMemRepo(cash string) *memRepo {
	return &memRepo{portfolio: &domain.Portfolio{Account: &domain.Account{
		ID:             uuid.New(),
		Name:           "mem",
		CashBalance:    decimal.RequireFromString(cash),
		InitialBalance: decimal.RequireFromString(cash),
	}}}
}

func (r *memRepo) GetPortfolio(_ context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if accountID != r.portfolio.Account.ID {
		return nil, domain.ErrNotFound
	}
	acct := *r.portfolio.Account
	p := &domain.Portfolio{Account: &acct}
	for _, h := range r.portfolio.Holdings {
		hc := *h
		p.Holdings = append(p.Holdings, &hc)
	}
	if r.readDelay > 0 {
		// widen the read-modify-write window
		r.mu.Unlock()
		time.Sleep(r.readDelay)
		r.mu.Lock()
	}
	return p, nil
}

func (r *memRepo) ApplyTrade(_ context.Context, m *domain.LedgerMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.portfolio.Account.Version != m.ExpectedVersion {
		return domain.ErrConcurrentModification
	}
	r.portfolio.Account.CashBalance = m.CashBalance
	r.portfolio.Account.Version++
	kept := r.portfolio.Holdings[:0]
	for _, h := range r.portfolio.Holdings {
		if h.Symbol != m.Trade.Symbol {
			kept = append(kept, h)
		}
	}
	r.portfolio.Holdings = kept
	if m.Holding != nil {
		r.portfolio.Holdings = append(r.portfolio.Holdings, m.Holding)
	}
	r.trades = append(r.trades, m.Trade)
	return nil
}

func input(id uuid.UUID, qty, price string) TradeInput {
	return TradeInput{
		AccountID:  id,
		Symbol:     "aapl",
		AssetClass: domain.AssetClassStock,
		Quantity:   decimal.RequireFromString(qty),
		Price:      decimal.RequireFromString(price),
		Fee:        decimal.Zero,
	}
}

func TestLedger_ApplyBuy_Persists(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPortfolioRepository)
	l := NewLedger(repo, time.Second, nil)

	acct := &domain.Account{ID: uuid.New(), Name: "a", CashBalance: decimal.NewFromInt(1000), Version: 7}
	repo.On("GetPortfolio", ctx, acct.ID).Return(&domain.Portfolio{Account: acct}, nil)
	repo.On("ApplyTrade", ctx, mock.MatchedBy(func(m *domain.LedgerMutation) bool {
		return m.ExpectedVersion == 7 &&
			m.CashBalance.Equal(decimal.NewFromInt(700)) &&
			m.Holding != nil && m.Holding.Symbol == "AAPL" &&
			m.Trade.Action == domain.TradeActionBuy
	})).Return(nil)

	trade, err := l.ApplyBuy(ctx, input(acct.ID, "2", "150"))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, "300", trade.TotalValue.String())
	repo.AssertExpectations(t)
	assert.Equal(t, 0, l.locks.len(), "lock entry released")
}

func TestLedger_PreconditionsDoNotWrite(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPortfolioRepository)
	l := NewLedger(repo, time.Second, nil)

	acct := &domain.Account{ID: uuid.New(), Name: "a", CashBalance: decimal.NewFromInt(100)}
	repo.On("GetPortfolio", ctx, acct.ID).Return(&domain.Portfolio{Account: acct}, nil)

	_, err := l.ApplyBuy(ctx, input(acct.ID, "1", "150"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = l.ApplySell(ctx, input(acct.ID, "1", "150"))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

	_, err = l.ApplyBuy(ctx, input(acct.ID, "0", "150"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	repo.AssertNotCalled(t, "ApplyTrade", mock.Anything, mock.Anything)
}

func TestLedger_UnknownAccount(t *testing.T) {
	repo := newMemRepo("100")
	l := NewLedger(repo, time.Second, nil)
	_, err := l.ApplyBuy(context.Background(), input(uuid.New(), "1", "1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_StorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPortfolioRepository)
	l := NewLedger(repo, time.Second, nil)

	acct := &domain.Account{ID: uuid.New(), Name: "a", CashBalance: decimal.NewFromInt(100)}
	repo.On("GetPortfolio", ctx, acct.ID).Return(&domain.Portfolio{Account: acct}, nil)
	repo.On("ApplyTrade", ctx, mock.Anything).Return(errors.New("disk full"))

	_, err := l.ApplyBuy(ctx, input(acct.ID, "1", "1"))
	assert.ErrorContains(t, err, "disk full")
}

func TestLedger_ConcurrentBuysNeverOverspend(t *testing.T) {
	repo := newMemRepo("1000")
	repo.readDelay = time.Millisecond
	l := NewLedger(repo, 10*time.Second, nil)
	id := repo.portfolio.Account.ID

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, refused := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ApplyBuy(context.Background(), input(id, "1", "100"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, refused)
	p, err := repo.GetPortfolio(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, p.Account.CashBalance.IsZero())
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "10", p.Holdings[0].Quantity.String())
	assert.Len(t, repo.trades, 10)
}

func TestLedger_ConcurrentSellsNeverOversell(t *testing.T) {
	repo := newMemRepo("1000")
	l := NewLedger(repo, 10*time.Second, nil)
	id := repo.portfolio.Account.ID
	_, err := l.ApplyBuy(context.Background(), input(id, "5", "100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.ApplySell(context.Background(), input(id, "1", "100"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
		}
	}
	assert.Equal(t, 5, ok)
	p, _ := repo.GetPortfolio(context.Background(), id)
	assert.Empty(t, p.Holdings)
	assert.Equal(t, "1000", p.Account.CashBalance.String())
}

func TestLedger_LockTimeout(t *testing.T) {
	repo := newMemRepo("1000")
	l := NewLedger(repo, 20*time.Millisecond, nil)
	id := repo.portfolio.Account.ID

	release, err := l.locks.acquire(context.Background(), id, time.Second)
	require.NoError(t, err)

	_, err = l.ApplyBuy(context.Background(), input(id, "1", "1"))
	assert.ErrorIs(t, err, domain.ErrAccountBusy)
	assert.Equal(t, domain.KindAccountBusy, domain.KindOf(err))

	release()
	_, err = l.ApplyBuy(context.Background(), input(id, "1", "1"))
	assert.NoError(t, err)
	assert.Equal(t, 0, l.locks.len())
}

func TestLedger_CancelWhileWaiting(t *testing.T) {
	repo := newMemRepo("1000")
	l := NewLedger(repo, time.Minute, nil)
	id := repo.portfolio.Account.ID

	release, err := l.locks.acquire(context.Background(), id, time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = l.ApplyBuy(ctx, input(id, "1", "1"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.trades)
}
