package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

const snapshotColumns = `account_id, snapshot_date, total_value, cash_balance, holdings_value, taken_at`

// Upsert stores the snapshot, replacing any earlier one for the same day
func (r *snapshotRepository) Upsert(ctx context.Context, s *domain.PortfolioSnapshot) error {
	query := r.db.rebind(`
		INSERT INTO portfolio_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, snapshot_date) DO UPDATE SET
			total_value = excluded.total_value,
			cash_balance = excluded.cash_balance,
			holdings_value = excluded.holdings_value,
			taken_at = excluded.taken_at
	`)

	_, err := r.db.ExecContext(ctx, query,
		s.AccountID,
		s.Date,
		s.TotalValue.String(),
		s.CashBalance.String(),
		s.HoldingsValue.String(),
		s.TakenAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// GetOnOrBefore returns the most recent snapshot dated on or before date
func (r *snapshotRepository) GetOnOrBefore(ctx context.Context, accountID uuid.UUID, date string) (*domain.PortfolioSnapshot, error) {
	query := r.db.rebind(`
		SELECT ` + snapshotColumns + `
		FROM portfolio_snapshots
		WHERE account_id = $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`)

	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, accountID, date))
	if err != nil {
		return nil, notFound(err, "snapshot on or before %s", date)
	}
	return s, nil
}

// List returns snapshots from the given day onward, oldest first
func (r *snapshotRepository) List(ctx context.Context, accountID uuid.UUID, from string) ([]*domain.PortfolioSnapshot, error) {
	query := r.db.rebind(`
		SELECT ` + snapshotColumns + `
		FROM portfolio_snapshots
		WHERE account_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date
	`)

	rows, err := r.db.QueryContext(ctx, query, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.PortfolioSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func scanSnapshot(s scanner) (*domain.PortfolioSnapshot, error) {
	var (
		snap                 domain.PortfolioSnapshot
		total, cash, holding string
		takenMillis          int64
	)
	if err := s.Scan(&snap.AccountID, &snap.Date, &total, &cash, &holding, &takenMillis); err != nil {
		return nil, err
	}
	if err := parseDecimals(
		[]*decimal.Decimal{&snap.TotalValue, &snap.CashBalance, &snap.HoldingsValue},
		[]string{total, cash, holding},
		"total_value", "cash_balance", "holdings_value",
	); err != nil {
		return nil, err
	}
	snap.TakenAt = time.UnixMilli(takenMillis).UTC()
	return &snap, nil
}
