package watchlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockWatchlistRepository is a mock implementation of WatchlistRepository for testing
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

type stubQuotes map[string]string

func (s stubQuotes) Quotes(_ context.Context, instruments []domain.Instrument) map[domain.Instrument]marketdata.QuoteResult {
	out := make(map[domain.Instrument]marketdata.QuoteResult)
	for _, inst := range instruments {
		if p, ok := s[inst.Symbol]; ok {
			out[inst] = marketdata.QuoteResult{Quote: domain.Quote{Symbol: inst.Symbol, CurrentPrice: decimal.RequireFromString(p)}}
		} else {
			out[inst] = marketdata.QuoteResult{Err: domain.ErrSymbolNotFound}
		}
	}
	return out
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	repo := new(MockWatchlistRepository)
	svc := NewWatchlistService(repo, stubQuotes{})
	accountID := uuid.New()

	repo.On("Add", ctx, mock.MatchedBy(func(e *domain.WatchlistEntry) bool {
		return e.Symbol == "NVDA" && e.AccountID == accountID && e.AssetClass == domain.AssetClassStock
	})).Return(nil).Once()

	entry, err := svc.Add(ctx, accountID, " nvda", domain.AssetClassStock)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", entry.Symbol)
	assert.NotEqual(t, uuid.Nil, entry.ID)

	repo.On("Add", ctx, mock.Anything).Return(domain.ErrAlreadyExists).Once()
	_, err = svc.Add(ctx, accountID, "NVDA", domain.AssetClassStock)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.Add(ctx, accountID, "", domain.AssetClassStock)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Add(ctx, accountID, "X", "fund")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	repo.AssertNumberOfCalls(t, "Add", 2)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := new(MockWatchlistRepository)
	svc := NewWatchlistService(repo, stubQuotes{})
	accountID, entryID := uuid.New(), uuid.New()

	repo.On("Remove", ctx, accountID, entryID).Return(domain.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, accountID, entryID), domain.ErrNotFound)
}

func TestList_QuoteFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	repo := new(MockWatchlistRepository)
	svc := NewWatchlistService(repo, stubQuotes{"ETHUSD": "3100.5"})
	accountID := uuid.New()

	repo.On("List", ctx, accountID).Return([]*domain.WatchlistEntry{
		{ID: uuid.New(), Symbol: "ETHUSD", AssetClass: domain.AssetClassCrypto},
		{ID: uuid.New(), Symbol: "GONE", AssetClass: domain.AssetClassStock},
	}, nil)

	items, err := svc.List(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Quote)
	assert.Equal(t, "3100.5", items[0].Quote.CurrentPrice.String())
	assert.Nil(t, items[1].Quote)
	assert.Equal(t, "GONE", items[1].Entry.Symbol)
}
