package domain

import (
	"time"

	"github.com/google/uuid"
)

// WatchlistEntry is a symbol an account follows without holding it
type WatchlistEntry struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Symbol     string
	AssetClass AssetClass
	AddedAt    time.Time
}

// Instrument returns the symbol and asset class of the entry
func (w *WatchlistEntry) Instrument() Instrument {
	return Instrument{Symbol: w.Symbol, AssetClass: w.AssetClass}
}
