//go:build integration

package sqlstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Run with: PAPERTRADE_TEST_PG_DSN="host=localhost ... sslmode=disable" go test -tags integration ./...
func TestPostgres_Repositories(t *testing.T) {
	dsn := os.Getenv("PAPERTRADE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PAPERTRADE_TEST_PG_DSN not set")
	}

	db, err := NewDB(string(DialectPostgres), dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE accounts CASCADE`)
	require.NoError(t, err)

	runRepositorySuite(t, db)
}
