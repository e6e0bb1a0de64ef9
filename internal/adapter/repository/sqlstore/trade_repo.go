package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// tradeRepository implements domain.TradeRepository
type tradeRepository struct {
	db *DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// List returns a page of trades, newest first
func (r *tradeRepository) List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Trade, error) {
	query := r.db.rebind(`
		SELECT id, account_id, symbol, asset_class, action, quantity, price, fee, total_value, executed_at
		FROM trades
		WHERE account_id = $1
		ORDER BY executed_at DESC, id
		LIMIT $2 OFFSET $3
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var (
			t                     domain.Trade
			class, action         string
			qty, price, fee, tval string
			executedMillis        int64
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &class, &action,
			&qty, &price, &fee, &tval, &executedMillis); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.AssetClass = domain.AssetClass(class)
		t.Action = domain.TradeAction(action)
		if err := parseDecimals(
			[]*decimal.Decimal{&t.Quantity, &t.Price, &t.Fee, &t.TotalValue},
			[]string{qty, price, fee, tval},
			"quantity", "price", "fee", "total_value",
		); err != nil {
			return nil, err
		}
		t.ExecutedAt = time.UnixMilli(executedMillis).UTC()
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// Count returns the number of trades recorded for an account
func (r *tradeRepository) Count(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM trades WHERE account_id = $1`), accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}
