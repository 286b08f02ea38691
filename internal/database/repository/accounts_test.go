package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

func TestAccountInsertAndGet(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewAccountRepo(db)

	id, err := repo.Insert(ctx, repository.Account{
		Name: "Chase Checking", Type: repository.AccountChecking,
	})
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Chase Checking", got.Name)
	require.Equal(t, repository.AccountChecking, got.Type)
	require.Empty(t, got.CardLast4)
}

func TestAccountInsertDuplicateName(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewAccountRepo(db)

	_, err := repo.Insert(ctx, repository.Account{Name: "Cash", Type: repository.AccountCash})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, repository.Account{Name: "Cash", Type: repository.AccountSavings})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestAccountValidation(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewAccountRepo(db)

	cases := []repository.Account{
		{Name: "   ", Type: repository.AccountCash},
		{Name: "Bad Type", Type: "Mattress"},
		{Name: "Short Card", Type: repository.AccountCreditCard, CardLast4: "123"},
		{Name: "Letters Card", Type: repository.AccountCreditCard, CardLast4: "12ab"},
	}
	for _, a := range cases {
		_, err := repo.Insert(ctx, a)
		require.ErrorIs(t, err, repository.ErrInvalidInput, "account %+v", a)
	}

	id, err := repo.Insert(ctx, repository.Account{
		Name: "Visa", Type: repository.AccountCreditCard, CardLast4: "4242",
	})
	require.NoError(t, err)
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "4242", got.CardLast4)
}

func TestAccountUpdate(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewAccountRepo(db)

	id := mustAccount(t, db, "Old Name", repository.AccountChecking, "")
	require.NoError(t, repo.Update(ctx, repository.Account{
		ID: id, Name: "New Name", Type: repository.AccountSavings,
	}))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "New Name", got.Name)
	require.Equal(t, repository.AccountSavings, got.Type)

	err = repo.Update(ctx, repository.Account{ID: 9999, Name: "Ghost", Type: repository.AccountCash})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountListOrderedByName(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	repo := repository.NewAccountRepo(db)

	mustAccount(t, db, "Zeta", repository.AccountSavings, "")
	mustAccount(t, db, "Alpha", repository.AccountChecking, "")
	mustAccount(t, db, "Mid", repository.AccountCash, "")

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	require.Equal(t, "Alpha", accounts[0].Name)
	require.Equal(t, "Mid", accounts[1].Name)
	require.Equal(t, "Zeta", accounts[2].Name)
}

func TestAccountDeleteRefusesWithoutCascade(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewAccountRepo(db)

	id := mustAccount(t, db, "Busy", repository.AccountChecking, "")
	mustTxn(t, db, repository.Transaction{
		AccountID: id, Type: repository.TxnExpense, AmountCents: 500, Date: "2024-01-05", Payee: "Shop",
	})

	err := repo.Delete(ctx, id, false)
	require.ErrorIs(t, err, repository.ErrHasTransactions)

	// still there, along with its transaction
	_, err = repo.Get(ctx, id)
	require.NoError(t, err)
}

func TestAccountDeleteCascadeUnlinksTransfers(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	accounts := repository.NewAccountRepo(db)
	txns := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Source", repository.AccountChecking, "")
	to := mustAccount(t, db, "Target", repository.AccountSavings, "")

	tid, err := txns.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 2500, Date: "2024-01-10",
	}, to)
	require.NoError(t, err)

	require.NoError(t, accounts.Delete(ctx, from, true))

	_, err = accounts.Get(ctx, from)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// the surviving leg must not point at the deleted one
	rows, err := txns.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Zero(t, rows[0].TransferID)
	require.NotEqual(t, tid, rows[0].ID) // surviving leg is the inflow side
}

func TestAccountDeleteMissing(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	err := repository.NewAccountRepo(db).Delete(context.Background(), 42, true)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
