package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfenwick/pennyjar/internal/database"
	"github.com/mfenwick/pennyjar/internal/database/repository"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testImporter(t *testing.T, db *sql.DB) *ImportService {
	t.Helper()
	return &ImportService{
		Transactions: repository.NewTransactionRepo(db),
		Accounts:     repository.NewAccountRepo(db),
		Log:          zap.NewNop(),
	}
}

func mustAccount(t *testing.T, db *sql.DB, name string, typ repository.AccountType, last4 string) int64 {
	t.Helper()
	id, err := repository.NewAccountRepo(db).Insert(context.Background(), repository.Account{
		Name: name, Type: typ, CardLast4: last4,
	})
	require.NoError(t, err)
	return id
}
