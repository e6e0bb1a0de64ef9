package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

// GetPortfolio reads the account and its holdings inside one read transaction
func (r *portfolioRepository) GetPortfolio(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	tx, err := r.db.BeginTx(ctx, r.db.readTxOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, r.db.rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = $1`), accountID)
	account, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account %s", accountID)
	}

	rows, err := tx.QueryContext(ctx, r.db.rebind(`
		SELECT account_id, symbol, asset_class, quantity, average_cost, updated_at
		FROM holdings
		WHERE account_id = $1
		ORDER BY symbol
	`), accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		var (
			h             domain.Holding
			class         string
			qty, avgCost  string
			updatedMillis int64
		)
		if err := rows.Scan(&h.AccountID, &h.Symbol, &class, &qty, &avgCost, &updatedMillis); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.AssetClass = domain.AssetClass(class)
		if err := parseDecimals(
			[]*decimal.Decimal{&h.Quantity, &h.AverageCost},
			[]string{qty, avgCost},
			"quantity", "average_cost",
		); err != nil {
			return nil, err
		}
		h.UpdatedAt = time.UnixMilli(updatedMillis).UTC()
		holdings = append(holdings, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.Portfolio{Account: account, Holdings: holdings}, nil
}

// ApplyTrade writes the cash balance, the holding and the trade record in a
// single transaction. The account row update is conditional on the expected
// version, so a mutation computed from a stale read never commits.
func (r *portfolioRepository) ApplyTrade(ctx context.Context, m *domain.LedgerMutation) error {
	if m.Trade == nil {
		return fmt.Errorf("ledger mutation has no trade: %w", domain.ErrInvalidArgument)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Update cash and bump the version
	res, err := tx.ExecContext(ctx, r.db.rebind(`
		UPDATE accounts
		SET cash_balance = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`), m.CashBalance.String(), m.AccountID, m.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM accounts WHERE id = $1`), m.AccountID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check account: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("account %s: %w", m.AccountID, domain.ErrNotFound)
		}
		return fmt.Errorf("account %s moved past version %d: %w",
			m.AccountID, m.ExpectedVersion, domain.ErrConcurrentModification)
	}

	// Upsert or close the position
	switch {
	case m.DeleteHolding:
		_, err = tx.ExecContext(ctx, r.db.rebind(`
			DELETE FROM holdings WHERE account_id = $1 AND symbol = $2
		`), m.AccountID, m.Trade.Symbol)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
	case m.Holding != nil:
		h := m.Holding
		_, err = tx.ExecContext(ctx, r.db.rebind(`
			INSERT INTO holdings (account_id, symbol, asset_class, quantity, average_cost, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (account_id, symbol) DO UPDATE SET
				quantity = excluded.quantity,
				average_cost = excluded.average_cost,
				updated_at = excluded.updated_at
		`),
			h.AccountID,
			h.Symbol,
			string(h.AssetClass),
			h.Quantity.String(),
			h.AverageCost.String(),
			h.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert holding: %w", err)
		}
	}

	// Record the trade
	t := m.Trade
	_, err = tx.ExecContext(ctx, r.db.rebind(`
		INSERT INTO trades (id, account_id, symbol, asset_class, action, quantity, price, fee, total_value, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`),
		t.ID,
		t.AccountID,
		t.Symbol,
		string(t.AssetClass),
		string(t.Action),
		t.Quantity.String(),
		t.Price.String(),
		t.Fee.String(),
		t.TotalValue.String(),
		t.ExecutedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
