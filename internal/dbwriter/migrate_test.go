package dbwriter

import (
	"database/sql"
	"os"
	"testing"

	"github.com/DATA-DOG/go-txdb"
	"github.com/stretchr/testify/require"
)

// TestMigrateDB applies the embedded migrations inside a rolled back
// transaction. It needs a reachable PostgreSQL in SHADOW_TEST_DSN.
func TestMigrateDB(t *testing.T) {
	dsn := os.Getenv("SHADOW_TEST_DSN")
	if dsn == "" {
		t.Skip("SHADOW_TEST_DSN not set")
	}
	txdb.Register("txdb_dbwriter", "postgres", dsn)

	db, err := sql.Open("txdb_dbwriter", t.Name())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateDB(db))
	require.NoError(t, MigrateDB(db), "a second run is a no-op")

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM simulated_orders`).Scan(&count))
	require.Zero(t, count)
}
