package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, name, cash_balance, initial_balance, version, created_at`

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := r.db.rebind(`
		INSERT INTO accounts (id, name, cash_balance, initial_balance, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.CashBalance.String(),
		a.InitialBalance.String(),
		a.Version,
		a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", a.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = $1`), id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account %s", id)
	}
	return a, nil
}

// GetByName retrieves an account by its unique name
func (r *accountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+accountColumns+` FROM accounts WHERE name = $1`), name)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account %q", name)
	}
	return a, nil
}

// List returns every account, oldest first
func (r *accountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*domain.Account, error) {
	var (
		a               domain.Account
		cash, initial   string
		createdAtMillis int64
	)
	if err := s.Scan(&a.ID, &a.Name, &cash, &initial, &a.Version, &createdAtMillis); err != nil {
		return nil, err
	}

	var err error
	if a.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("failed to parse cash_balance: %w", err)
	}
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("failed to parse initial_balance: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
	return &a, nil
}

// notFound turns sql.ErrNoRows into domain.ErrNotFound
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func parseDecimals(dst []*decimal.Decimal, src []string, names ...string) error {
	for i := range dst {
		d, err := decimal.NewFromString(src[i])
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", names[i], err)
		}
		*dst[i] = d
	}
	return nil
}
