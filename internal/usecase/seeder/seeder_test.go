package seeder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

// MockWatchlistRepository is a mock implementation of WatchlistRepository
type MockWatchlistRepository struct {
	mock.Mock
}

func (m *MockWatchlistRepository) Add(ctx context.Context, e *domain.WatchlistEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockWatchlistRepository) Remove(ctx context.Context, accountID, entryID uuid.UUID) error {
	return m.Called(ctx, accountID, entryID).Error(0)
}

func (m *MockWatchlistRepository) List(ctx context.Context, accountID uuid.UUID) ([]*domain.WatchlistEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.WatchlistEntry), args.Error(1)
}

func TestSeed_DemoAccountMissing(t *testing.T) {
	ctx := context.Background()
	accounts, watch := new(MockAccountRepository), new(MockWatchlistRepository)
	s := NewAccountSeeder(accounts, watch, DefaultFile(DemoAccountName, decimal.NewFromInt(100000)))

	accounts.On("GetByName", ctx, DemoAccountName).Return(nil, domain.ErrNotFound)
	accounts.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.ID == DemoAccountID &&
			a.Name == DemoAccountName &&
			a.CashBalance.Equal(decimal.NewFromInt(100000))
	})).Return(nil)

	require.NoError(t, s.Seed(ctx))
	accounts.AssertExpectations(t)
	watch.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestSeed_AccountExists(t *testing.T) {
	ctx := context.Background()
	accounts, watch := new(MockAccountRepository), new(MockWatchlistRepository)
	s := NewAccountSeeder(accounts, watch, DefaultFile(DemoAccountName, decimal.NewFromInt(100000)))

	accounts.On("GetByName", ctx, DemoAccountName).Return(&domain.Account{ID: DemoAccountID}, nil)

	require.NoError(t, s.Seed(ctx))
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSeed_LookupError(t *testing.T) {
	ctx := context.Background()
	accounts, watch := new(MockAccountRepository), new(MockWatchlistRepository)
	s := NewAccountSeeder(accounts, watch, DefaultFile(DemoAccountName, decimal.NewFromInt(1)))

	accounts.On("GetByName", ctx, DemoAccountName).Return(nil, errors.New("connection reset"))
	assert.Error(t, s.Seed(ctx))
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSeed_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accounts:
  - name: growth
    initial_balance: "25000"
    watchlist:
      - symbol: nvda
        asset_class: stock
      - symbol: ETHUSD
        asset_class: crypto
`), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Accounts, 1)

	ctx := context.Background()
	accounts, watch := new(MockAccountRepository), new(MockWatchlistRepository)
	accounts.On("GetByName", ctx, "growth").Return(nil, domain.ErrNotFound)
	accounts.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.InitialBalance.Equal(decimal.NewFromInt(25000))
	})).Return(nil)
	watch.On("Add", ctx, mock.MatchedBy(func(e *domain.WatchlistEntry) bool { return e.Symbol == "NVDA" })).Return(nil)
	watch.On("Add", ctx, mock.MatchedBy(func(e *domain.WatchlistEntry) bool {
		return e.Symbol == "ETHUSD" && e.AssetClass == domain.AssetClassCrypto
	})).Return(domain.ErrAlreadyExists)

	require.NoError(t, NewAccountSeeder(accounts, watch, f).Seed(ctx))
	watch.AssertNumberOfCalls(t, "Add", 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
