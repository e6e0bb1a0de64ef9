package sqlstore

import "strings"

// schema returns the DDL for a dialect. Amounts are NUMERIC in postgres and
// TEXT in SQLite; both are exchanged as decimal strings.
func schema(d Dialect) []string {
	idType, numType := "UUID", "NUMERIC(28,8)"
	num := func(col string) string { return col }
	if d == DialectSQLite {
		idType, numType = "TEXT", "TEXT"
		num = func(col string) string { return "CAST(" + col + " AS REAL)" }
	}

	r := strings.NewReplacer(
		"{id}", idType,
		"{num}", numType,
		"{cash}", num("cash_balance"),
		"{initial}", num("initial_balance"),
		"{qty}", num("quantity"),
		"{cost}", num("average_cost"),
		"{price}", num("price"),
		"{fee}", num("fee"),
	)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id {id} PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			cash_balance {num} NOT NULL CHECK ({cash} >= 0),
			initial_balance {num} NOT NULL CHECK ({initial} >= 0),
			version BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			account_id {id} NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			asset_class TEXT NOT NULL CHECK (asset_class IN ('stock', 'etf', 'crypto')),
			quantity {num} NOT NULL CHECK ({qty} > 0),
			average_cost {num} NOT NULL CHECK ({cost} >= 0),
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (account_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id {id} PRIMARY KEY,
			account_id {id} NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			asset_class TEXT NOT NULL CHECK (asset_class IN ('stock', 'etf', 'crypto')),
			action TEXT NOT NULL CHECK (action IN ('buy', 'sell')),
			quantity {num} NOT NULL CHECK ({qty} > 0),
			price {num} NOT NULL CHECK ({price} > 0),
			fee {num} NOT NULL CHECK ({fee} >= 0),
			total_value {num} NOT NULL,
			executed_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS trades_account_executed_idx ON trades (account_id, executed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			account_id {id} NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			snapshot_date TEXT NOT NULL,
			total_value {num} NOT NULL,
			cash_balance {num} NOT NULL,
			holdings_value {num} NOT NULL,
			taken_at BIGINT NOT NULL,
			PRIMARY KEY (account_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			id {id} PRIMARY KEY,
			account_id {id} NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			asset_class TEXT NOT NULL CHECK (asset_class IN ('stock', 'etf', 'crypto')),
			added_at BIGINT NOT NULL,
			UNIQUE (account_id, symbol)
		)`,
	}

	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}
