package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// AccountService opens and reads paper-trading accounts
type AccountService struct {
	AccountRepo domain.AccountRepository

	now func() time.Time
}

// NewAccountService creates a new AccountService instance
func NewAccountService(accountRepo domain.AccountRepository) *AccountService {
	return &AccountService{AccountRepo: accountRepo, now: time.Now}
}

// OpenInput describes a new account. A zero InitialBalance uses the default.
type OpenInput struct {
	Name           string
	InitialBalance decimal.Decimal
}

// Open creates an account funded with its initial balance
func (s *AccountService) Open(ctx context.Context, input OpenInput) (*domain.Account, error) {
	balance := input.InitialBalance
	if balance.IsZero() {
		balance = domain.DefaultInitialBalance
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("initial balance cannot be negative: %w", domain.ErrInvalidArgument)
	}

	a, err := domain.NewAccount(input.Name, balance, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.AccountRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns an account by ID
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.AccountRepo.GetByID(ctx, id)
}

// GetByName returns an account by its unique name
func (s *AccountService) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	return s.AccountRepo.GetByName(ctx, name)
}

// List returns every account
func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.AccountRepo.List(ctx)
}
