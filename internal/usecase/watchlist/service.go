package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
)

// QuoteBatch prices many instruments at once
type QuoteBatch interface {
	Quotes(ctx context.Context, instruments []domain.Instrument) map[domain.Instrument]marketdata.QuoteResult
}

// Item is a watchlist entry with its live quote, when one is available
type Item struct {
	Entry *domain.WatchlistEntry
	Quote *domain.Quote
}

// WatchlistService manages the symbols an account follows
type WatchlistService struct {
	WatchlistRepo domain.WatchlistRepository
	Quotes        QuoteBatch

	now func() time.Time
}

// NewWatchlistService creates a new WatchlistService instance
func NewWatchlistService(repo domain.WatchlistRepository, quotes QuoteBatch) *WatchlistService {
	return &WatchlistService{WatchlistRepo: repo, Quotes: quotes, now: time.Now}
}

// Add follows a symbol. Fails with ErrAlreadyExists if it is already listed.
func (s *WatchlistService) Add(ctx context.Context, accountID uuid.UUID, symbol string, assetClass domain.AssetClass) (*domain.WatchlistEntry, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty: %w", domain.ErrInvalidArgument)
	}
	if !assetClass.Valid() {
		return nil, fmt.Errorf("asset class %q: %w", assetClass, domain.ErrInvalidArgument)
	}

	entry := &domain.WatchlistEntry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Symbol:     symbol,
		AssetClass: assetClass,
		AddedAt:    s.now().UTC(),
	}
	if err := s.WatchlistRepo.Add(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove unfollows an entry. Fails with ErrNotFound if the account has no such entry.
func (s *WatchlistService) Remove(ctx context.Context, accountID, entryID uuid.UUID) error {
	return s.WatchlistRepo.Remove(ctx, accountID, entryID)
}

// List returns the entries newest first, each with a live quote when available
func (s *WatchlistService) List(ctx context.Context, accountID uuid.UUID) ([]Item, error) {
	entries, err := s.WatchlistRepo.List(ctx, accountID)
	if err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(entries))
	for _, e := range entries {
		instruments = append(instruments, e.Instrument())
	}
	var quotes map[domain.Instrument]marketdata.QuoteResult
	if len(instruments) > 0 {
		quotes = s.Quotes.Quotes(ctx, instruments)
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		item := Item{Entry: e}
		if res, ok := quotes[e.Instrument()]; ok && res.Err == nil {
			q := res.Quote
			item.Quote = &q
		}
		items = append(items, item)
	}
	return items, nil
}
