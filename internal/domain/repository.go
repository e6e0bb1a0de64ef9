package domain

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// Create creates a new account. Fails with ErrAlreadyExists on a duplicate name.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by its ID (ErrNotFound if absent)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByName retrieves an account by its unique name (ErrNotFound if absent)
	GetByName(ctx context.Context, name string) (*Account, error)

	// List returns every account ordered by creation time
	List(ctx context.Context) ([]*Account, error)
}

// PortfolioRepository defines the ledger's view of storage
type PortfolioRepository interface {
	// GetPortfolio reads the account and its holdings in one consistent read
	GetPortfolio(ctx context.Context, accountID uuid.UUID) (*Portfolio, error)

	// ApplyTrade persists a LedgerMutation atomically: cash, holding and trade
	// commit together or not at all. Fails with ErrConcurrentModification if
	// the account version is no longer ExpectedVersion.
	ApplyTrade(ctx context.Context, m *LedgerMutation) error
}

// TradeRepository defines the interface for trade history reads
type TradeRepository interface {
	// List returns trades for an account, newest first
	List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Trade, error)

	// Count returns the total number of trades for an account
	Count(ctx context.Context, accountID uuid.UUID) (int, error)
}

// SnapshotRepository defines the interface for daily portfolio snapshots
type SnapshotRepository interface {
	// Upsert inserts or replaces the snapshot for (AccountID, Date)
	Upsert(ctx context.Context, snapshot *PortfolioSnapshot) error

	// GetOnOrBefore returns the latest snapshot dated on or before date
	// (ErrNotFound if none)
	GetOnOrBefore(ctx context.Context, accountID uuid.UUID, date string) (*PortfolioSnapshot, error)

	// List returns snapshots dated on or after from, oldest first.
	// An empty from returns the full history.
	List(ctx context.Context, accountID uuid.UUID, from string) ([]*PortfolioSnapshot, error)
}

// WatchlistRepository defines the interface for watchlist persistence operations
type WatchlistRepository interface {
	// Add creates an entry. Fails with ErrAlreadyExists if the symbol is already listed.
	Add(ctx context.Context, entry *WatchlistEntry) error

	// Remove deletes an entry owned by accountID (ErrNotFound if absent)
	Remove(ctx context.Context, accountID, entryID uuid.UUID) error

	// List returns the account's entries, newest first
	List(ctx context.Context, accountID uuid.UUID) ([]*WatchlistEntry, error)
}
