package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountRepository is a mock implementation of AccountRepository for testing
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

func TestOpen_DefaultsBalance(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := NewAccountService(repo)

	repo.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Name == "alice" && a.CashBalance.Equal(decimal.NewFromInt(100000)) && a.InitialBalance.Equal(a.CashBalance)
	})).Return(nil)

	a, err := svc.Open(ctx, OpenInput{Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Version)
	repo.AssertExpectations(t)
}

func TestOpen_Rejects(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountRepository)
	svc := NewAccountService(repo)

	_, err := svc.Open(ctx, OpenInput{Name: "x", InitialBalance: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Open(ctx, OpenInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	repo.On("Create", ctx, mock.Anything).Return(domain.ErrAlreadyExists)
	_, err = svc.Open(ctx, OpenInput{Name: "dup", InitialBalance: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}
