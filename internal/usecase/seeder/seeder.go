package seeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// DemoAccountID is the fixed ID of the default demo account, so clients can
// address it without a lookup
var DemoAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// DemoAccountName is the name the default account is seeded under
const DemoAccountName = "demo_trader"

// WatchItem is a watchlist symbol in a seed file
type WatchItem struct {
	Symbol     string `yaml:"symbol"`
	AssetClass string `yaml:"asset_class"`
}

// SeedAccount is an account to ensure at startup
type SeedAccount struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	InitialBalance string      `yaml:"initial_balance"`
	Watchlist      []WatchItem `yaml:"watchlist"`
}

// File is the YAML seed file layout
type File struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// LoadFile reads a seed file
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// DefaultFile seeds only the demo account
func DefaultFile(name string, initialBalance decimal.Decimal) *File {
	return &File{Accounts: []SeedAccount{{
		ID:             DemoAccountID.String(),
		Name:           name,
		InitialBalance: initialBalance.String(),
	}}}
}

// AccountSeeder ensures the configured accounts exist
type AccountSeeder struct {
	accounts  domain.AccountRepository
	watchlist domain.WatchlistRepository
	file      *File
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(accounts domain.AccountRepository, watchlist domain.WatchlistRepository, file *File) *AccountSeeder {
	return &AccountSeeder{accounts: accounts, watchlist: watchlist, file: file}
}

// Seed creates every missing account. Watchlists are only seeded for accounts
// created by this call, so a user's later removals survive restarts.
func (s *AccountSeeder) Seed(ctx context.Context) error {
	for _, sa := range s.file.Accounts {
		_, err := s.accounts.GetByName(ctx, sa.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		account, err := s.build(sa)
		if err != nil {
			return err
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}

		for _, w := range sa.Watchlist {
			class, err := domain.ParseAssetClass(w.AssetClass)
			if err != nil {
				return fmt.Errorf("seed watchlist %s: %w", w.Symbol, err)
			}
			entry := &domain.WatchlistEntry{
				ID:         uuid.New(),
				AccountID:  account.ID,
				Symbol:     domain.NormalizeSymbol(w.Symbol),
				AssetClass: class,
				AddedAt:    time.Now().UTC(),
			}
			if err := s.watchlist.Add(ctx, entry); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
		}
	}
	return nil
}

func (s *AccountSeeder) build(sa SeedAccount) (*domain.Account, error) {
	balance := domain.DefaultInitialBalance
	if sa.InitialBalance != "" {
		b, err := decimal.NewFromString(sa.InitialBalance)
		if err != nil {
			return nil, fmt.Errorf("seed account %s: initial balance: %w", sa.Name, err)
		}
		balance = b
	}

	account, err := domain.NewAccount(sa.Name, balance, time.Now())
	if err != nil {
		return nil, err
	}
	if sa.ID != "" {
		id, err := uuid.Parse(sa.ID)
		if err != nil {
			return nil, fmt.Errorf("seed account %s: id: %w", sa.Name, err)
		}
		account.ID = id
	}
	return account, nil
}
