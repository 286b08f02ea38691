package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

func TestTransactionInsertNormalizes(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	id, err := repo.Insert(ctx, repository.Transaction{
		AccountID: acct, Type: repository.TxnExpense, AmountCents: 1250,
		Date: "03/15/2024", ReflectionDate: "03/20/24", Payee: "Shop",
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "2024-03-15", got.Date)
	require.Equal(t, "2024-03-20", got.ReflectionDate)
	require.Equal(t, "2024-03-20", got.EffectiveDate())
}

func TestTransactionInsertValidation(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	cases := []repository.Transaction{
		{AccountID: 0, Type: repository.TxnExpense, AmountCents: 100, Date: "2024-01-01"},
		{AccountID: acct, Type: repository.TxnExpense, AmountCents: 0, Date: "2024-01-01"},
		{AccountID: acct, Type: repository.TxnExpense, AmountCents: -50, Date: "2024-01-01"},
		{AccountID: acct, Type: "Refund", AmountCents: 100, Date: "2024-01-01"},
		{AccountID: acct, Type: repository.TxnExpense, AmountCents: 100, Date: "02/30/2024"},
	}
	for _, txn := range cases {
		_, err := repo.Insert(ctx, txn)
		require.ErrorIs(t, err, repository.ErrInvalidInput, "txn %+v", txn)
	}

	_, err := repo.Insert(ctx, repository.Transaction{
		AccountID: 9999, Type: repository.TxnExpense, AmountCents: 100, Date: "2024-01-01",
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionUpdateRewrites(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	cat := mustCategory(t, db, repository.CatExpense, "Food", 0)
	id := mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnExpense, AmountCents: 500,
		Date: "2024-01-01", Payee: "Cafe",
	})

	require.NoError(t, repo.Update(ctx, repository.Transaction{
		ID: id, AccountID: acct, CategoryID: cat.ID, Type: repository.TxnExpense,
		AmountCents: 900, Date: "2024-01-02", Payee: "Cafe", Description: "lunch",
	}))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(900), got.AmountCents)
	require.Equal(t, cat.ID, got.CategoryID)
	require.Equal(t, "lunch", got.Description)

	err = repo.Update(ctx, repository.Transaction{
		ID: 9999, AccountID: acct, Type: repository.TxnExpense, AmountCents: 100, Date: "2024-01-01",
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionUpdateSyncsMirror(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 1000, Date: "2024-01-10",
	}, to)
	require.NoError(t, err)

	leg, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	leg.AmountCents = 2000
	leg.Date = "2024-01-12"
	require.NoError(t, repo.Update(ctx, leg))

	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2000), rows[0].AmountCents)
	require.Equal(t, "2024-01-12", rows[0].Date)
}

func TestTransactionUpdateHealsOrphanedLeg(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	id := mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnTransfer, AmountCents: 300,
		Date: "2024-01-01", TransferID: 9999,
	})

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.Zero(t, got.TransferID)
}

func TestTransactionUpdateUnlinksFormerSiblings(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 1500, Date: "2024-01-10",
	}, to)
	require.NoError(t, err)

	// recast the outflow leg as a plain expense
	require.NoError(t, repo.Update(ctx, repository.Transaction{
		ID: tid, AccountID: from, Type: repository.TxnExpense,
		AmountCents: 1500, Date: "2024-01-10", Payee: "Oops",
	}))

	got, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	require.Equal(t, repository.TxnExpense, got.Type)
	require.Zero(t, got.TransferID)

	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Zero(t, rows[0].TransferID)
}

func TestTransactionDeleteRemovesWholeTransferGroup(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 800, Date: "2024-01-10",
	}, to)
	require.NoError(t, err)

	// deleting the inflow leg takes the outflow leg with it
	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, repo.Delete(ctx, rows[0].ID))

	_, err = repo.Get(ctx, tid)
	require.ErrorIs(t, err, repository.ErrNotFound)
	rows, err = repo.ListForAccount(ctx, from)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestListForAccountOrderingAndDisplay(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	other := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	food := mustCategory(t, db, repository.CatExpense, "Food", 0)
	groceries := mustCategory(t, db, repository.CatExpense, "Groceries", food.ID)

	oldest := mustTxn(t, db, repository.Transaction{
		AccountID: acct, CategoryID: groceries.ID, Type: repository.TxnExpense,
		AmountCents: 4200, Date: "2024-01-05", Payee: "Market",
	})
	// posted early but reflected late; must sort by the reflection date
	reflected := mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnIncome, AmountCents: 100000,
		Date: "2024-01-01", ReflectionDate: "2024-01-20", Payee: "Employer",
	})
	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: acct, AmountCents: 5000, Date: "2024-01-10",
	}, other)
	require.NoError(t, err)

	rows, err := repo.ListForAccount(ctx, acct)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, reflected, rows[0].ID)
	require.Equal(t, tid, rows[1].ID)
	require.Equal(t, oldest, rows[2].ID)

	require.Equal(t, "Savings", rows[1].CategoryDisplay)
	require.Equal(t, "Food:Groceries", rows[2].CategoryDisplay)
	require.Empty(t, rows[0].CategoryDisplay)
}

func TestListForAccountDanglingTransferDisplay(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnTransfer, AmountCents: 100,
		Date: "2024-01-01", TransferID: 9999,
	})

	rows, err := repo.ListForAccount(ctx, acct)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "(transfer)", rows[0].CategoryDisplay)
}

func TestMostRecentCategoryForPayee(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	food := mustCategory(t, db, repository.CatExpense, "Food", 0)
	fuel := mustCategory(t, db, repository.CatExpense, "Fuel", 0)

	mustTxn(t, db, repository.Transaction{
		AccountID: acct, CategoryID: food.ID, Type: repository.TxnExpense,
		AmountCents: 100, Date: "2024-01-01", Payee: "Costco",
	})
	mustTxn(t, db, repository.Transaction{
		AccountID: acct, CategoryID: fuel.ID, Type: repository.TxnExpense,
		AmountCents: 200, Date: "2024-02-01", Payee: "Costco",
	})
	// uncategorized rows never win, no matter how recent
	mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnExpense,
		AmountCents: 300, Date: "2024-03-01", Payee: "Costco",
	})

	got, err := repo.MostRecentCategoryForPayee(ctx, acct, "Costco", repository.TxnExpense)
	require.NoError(t, err)
	require.Equal(t, fuel.ID, got)

	got, err = repo.MostRecentCategoryForPayee(ctx, acct, "Nobody", repository.TxnExpense)
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestApplyCategoryToUncategorizedByPayee(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	a := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	b := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	food := mustCategory(t, db, repository.CatExpense, "Food", 0)
	fuel := mustCategory(t, db, repository.CatExpense, "Fuel", 0)

	uncat1 := mustTxn(t, db, repository.Transaction{
		AccountID: a, Type: repository.TxnExpense, AmountCents: 100, Date: "2024-01-01", Payee: "Costco",
	})
	uncat2 := mustTxn(t, db, repository.Transaction{
		AccountID: b, Type: repository.TxnExpense, AmountCents: 200, Date: "2024-01-02", Payee: "Costco",
	})
	alreadySet := mustTxn(t, db, repository.Transaction{
		AccountID: a, CategoryID: fuel.ID, Type: repository.TxnExpense,
		AmountCents: 300, Date: "2024-01-03", Payee: "Costco",
	})
	otherPayee := mustTxn(t, db, repository.Transaction{
		AccountID: a, Type: repository.TxnExpense, AmountCents: 400, Date: "2024-01-04", Payee: "Target",
	})

	n, err := repo.ApplyCategoryToUncategorizedByPayee(ctx, "Costco", repository.TxnExpense, food.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	for _, id := range []int64{uncat1, uncat2} {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, food.ID, got.CategoryID)
	}
	got, err := repo.Get(ctx, alreadySet)
	require.NoError(t, err)
	require.Equal(t, fuel.ID, got.CategoryID)
	got, err = repo.Get(ctx, otherPayee)
	require.NoError(t, err)
	require.Zero(t, got.CategoryID)

	_, err = repo.ApplyCategoryToUncategorizedByPayee(ctx, "Costco", repository.TxnExpense, 0)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestDedupRows(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	mustTxn(t, db, repository.Transaction{
		AccountID: acct, Type: repository.TxnExpense, AmountCents: 999,
		Date: "2024-05-01", Payee: "Diner",
	})

	rows, err := repo.DedupRows(ctx, acct)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, repository.DedupRow{
		Date: "2024-05-01", AmountCents: 999, Type: repository.TxnExpense, Payee: "Diner",
	}, rows[0])
}
