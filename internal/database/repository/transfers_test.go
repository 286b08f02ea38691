package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

func TestInsertTransferCreatesPairedLegs(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")

	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 2500, Date: "03/15/2024", Description: "monthly sweep",
	}, to)
	require.NoError(t, err)

	outflow, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	require.Equal(t, from, outflow.AccountID)
	require.Equal(t, repository.TxnTransfer, outflow.Type)
	require.Equal(t, tid, outflow.TransferID)
	require.True(t, outflow.IsOutflowLeg())
	require.Equal(t, "2024-03-15", outflow.Date)
	require.Empty(t, outflow.Payee)
	require.Zero(t, outflow.CategoryID)

	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	inflow := rows[0].Transaction
	require.Equal(t, tid, inflow.TransferID)
	require.NotEqual(t, tid, inflow.ID)
	require.False(t, inflow.IsOutflowLeg())
	require.Equal(t, outflow.AmountCents, inflow.AmountCents)
	require.Equal(t, outflow.Date, inflow.Date)
	require.Equal(t, "monthly sweep", inflow.Description)
}

func TestInsertTransferRejectsSameAccount(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	acct := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	_, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: acct, AmountCents: 100, Date: "2024-01-01",
	}, acct)
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: acct, AmountCents: 100, Date: "2024-01-01",
	}, 0)
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestInsertTransferMissingAccountLeavesNothing(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	_, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 100, Date: "2024-01-01",
	}, 9999)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// the from leg must have rolled back with the failed to leg
	rows, err := repo.ListForAccount(ctx, from)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUpdateTransferMovesBothLegs(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")
	other := mustAccount(t, db, "Brokerage", repository.AccountInvestment, "")

	tid, err := repo.InsertTransfer(ctx, repository.Transaction{
		AccountID: from, AmountCents: 1000, Date: "2024-01-10",
	}, to)
	require.NoError(t, err)

	leg, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	leg.AmountCents = 3000
	leg.Date = "2024-02-01"
	require.NoError(t, repo.UpdateTransfer(ctx, leg, other))

	// the old destination lost its leg to the new one
	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = repo.ListForAccount(ctx, other)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3000), rows[0].AmountCents)
	require.Equal(t, "2024-02-01", rows[0].Date)
	require.Equal(t, tid, rows[0].TransferID)
}

func TestUpdateTransferRecreatesLostMirror(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")

	// a lone Transfer row with no mirror, as if half the pair was lost
	id := mustTxn(t, db, repository.Transaction{
		AccountID: from, Type: repository.TxnTransfer, AmountCents: 700, Date: "2024-01-05",
	})

	leg, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateTransfer(ctx, leg, to))

	// edited leg now keys the group on its own id
	leg, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, leg.TransferID)

	rows, err := repo.ListForAccount(ctx, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, id, rows[0].TransferID)
	require.Equal(t, int64(700), rows[0].AmountCents)
}

func TestUpdateTransferMissingLeg(t *testing.T) {
	t.Parallel()
	db := testDB(t)
	ctx := context.Background()
	repo := repository.NewTransactionRepo(db)

	from := mustAccount(t, db, "Checking", repository.AccountChecking, "")
	to := mustAccount(t, db, "Savings", repository.AccountSavings, "")

	err := repo.UpdateTransfer(ctx, repository.Transaction{
		ID: 9999, AccountID: from, AmountCents: 100, Date: "2024-01-01",
	}, to)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
