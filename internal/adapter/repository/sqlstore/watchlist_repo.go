package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// watchlistRepository implements domain.WatchlistRepository
type watchlistRepository struct {
	db *DB
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db *DB) domain.WatchlistRepository {
	return &watchlistRepository{db: db}
}

// Add inserts a watchlist entry
func (r *watchlistRepository) Add(ctx context.Context, e *domain.WatchlistEntry) error {
	query := r.db.rebind(`
		INSERT INTO watchlist (id, account_id, symbol, asset_class, added_at)
		VALUES ($1, $2, $3, $4, $5)
	`)

	_, err := r.db.ExecContext(ctx, query, e.ID, e.AccountID, e.Symbol, string(e.AssetClass), e.AddedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s already on watchlist: %w", e.Symbol, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert watchlist entry: %w", err)
	}
	return nil
}

// Remove deletes an entry. Entries of other accounts are reported as not found.
func (r *watchlistRepository) Remove(ctx context.Context, accountID, entryID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM watchlist WHERE id = $1 AND account_id = $2`), entryID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("watchlist entry %s: %w", entryID, domain.ErrNotFound)
	}
	return nil
}

// List returns the account's watchlist, newest first
func (r *watchlistRepository) List(ctx context.Context, accountID uuid.UUID) ([]*domain.WatchlistEntry, error) {
	query := r.db.rebind(`
		SELECT id, account_id, symbol, asset_class, added_at
		FROM watchlist
		WHERE account_id = $1
		ORDER BY added_at DESC, symbol
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []*domain.WatchlistEntry
	for rows.Next() {
		var (
			e           domain.WatchlistEntry
			class       string
			addedMillis int64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Symbol, &class, &addedMillis); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		e.AssetClass = domain.AssetClass(class)
		e.AddedAt = time.UnixMilli(addedMillis).UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return entries, nil
}
