package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrationsCreatesSchema(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "app.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dbPath, migrations))
	// rerun is a no-op, not an error
	require.NoError(t, RunMigrations(dbPath, migrations))

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"accounts", "categories", "transactions", "budget_rules"} {
		var n int
		require.NoError(t, db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n))
		require.Equal(t, 1, n, "table %s", table)
	}
}

func TestRunMigrationsWithDBKeepsHandleOpen(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "app.db")
	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrationsWithDB(db, migrations))
	require.NoError(t, RunMigrationsWithDB(db, migrations))

	// the caller's handle must survive the migration run
	_, err = db.Exec(`INSERT INTO accounts(name, type) VALUES ('Checking', 'Checking')`)
	require.NoError(t, err)
}
