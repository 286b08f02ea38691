package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfenwick/pennyjar/internal/database"
	"github.com/mfenwick/pennyjar/internal/database/repository"
)

// testDB creates a migrated temporary database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustAccount(t *testing.T, db *sql.DB, name string, typ repository.AccountType, last4 string) int64 {
	t.Helper()
	id, err := repository.NewAccountRepo(db).Insert(context.Background(), repository.Account{
		Name: name, Type: typ, CardLast4: last4,
	})
	require.NoError(t, err)
	return id
}

func mustCategory(t *testing.T, db *sql.DB, typ repository.CategoryType, name string, parentID int64) repository.Category {
	t.Helper()
	cat, err := repository.NewCategoryRepo(db).GetOrCreate(context.Background(), typ, name, parentID)
	require.NoError(t, err)
	return cat
}

func mustTxn(t *testing.T, db *sql.DB, txn repository.Transaction) int64 {
	t.Helper()
	id, err := repository.NewTransactionRepo(db).Insert(context.Background(), txn)
	require.NoError(t, err)
	return id
}
