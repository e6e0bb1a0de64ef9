package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/glebarez/go-sqlite" // SQLite driver (pure Go)
	"github.com/lib/pq"                // PostgreSQL driver
)

// Dialect selects the SQL flavour a DB speaks
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dialect Dialect
}

// NewDB opens and pings a database.
// For postgres dsn is "host=localhost port=5432 user=postgres password=postgres dbname=papertrade sslmode=disable";
// for sqlite it is a file path.
func NewDB(driver, dsn string) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch Dialect(driver) {
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
	case DialectSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// one writer at a time; the ledger already serializes per account
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, dialect: Dialect(driver)}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Dialect reports which SQL flavour the connection speaks
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// rebind rewrites $N placeholders to ?N for SQLite
func (db *DB) rebind(query string) string {
	if db.dialect != DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// readTxOptions gives GetPortfolio a single consistent snapshot
func (db *DB) readTxOptions() *sql.TxOptions {
	if db.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Migrate creates the schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema(db.dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
