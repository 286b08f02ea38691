package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Transfers are stored as two rows sharing a transfer_id. The id of the
// "from" leg doubles as the group key: the leg whose own id equals the
// transfer id is the outflow side, the other leg the inflow side. That
// asymmetric marker replaces a sign column; balance queries recover the
// direction from id = transfer_id alone.

// InsertTransfer creates both legs of a transfer from t.AccountID to
// toAccountID in one atomic transaction: the from leg first, then the to
// leg keyed on the from leg's id, then the from leg back-patched to point
// at itself.
func (r *TransactionRepo) InsertTransfer(ctx context.Context, t Transaction, toAccountID int64) (int64, error) {
	if toAccountID <= 0 {
		return 0, fmt.Errorf("%w: destination account required", ErrInvalidInput)
	}
	if t.AccountID == toAccountID {
		return 0, fmt.Errorf("%w: transfer accounts must differ", ErrInvalidInput)
	}
	t.Type = TxnTransfer
	t.TransferID = 0
	t, err := prepareTransaction(t)
	if err != nil {
		return 0, err
	}

	var fromID int64
	err = withTx(r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(account_id, type, amount, date, reflection_date, payee, description)
		VALUES (?, 'Transfer', ?, ?, ?, '', ?)`,
			t.AccountID, t.AmountCents, t.Date, nullableText(t.ReflectionDate), t.Description)
		if err != nil {
			return transferInsertErr(err)
		}
		fromID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(account_id, type, amount, date, reflection_date, payee, description, transfer_id)
		VALUES (?, 'Transfer', ?, ?, ?, '', ?, ?)`,
			toAccountID, t.AmountCents, t.Date, nullableText(t.ReflectionDate), t.Description, fromID); err != nil {
			return transferInsertErr(err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET transfer_id = ? WHERE id = ?`, fromID, fromID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return fromID, nil
}

// UpdateTransfer rewrites an existing transfer leg and keeps its mirror in
// step. A leg whose transfer_id was lost falls back to its own id, and a
// missing mirror is recreated, so a previously broken pairing heals on the
// next edit.
func (r *TransactionRepo) UpdateTransfer(ctx context.Context, t Transaction, toAccountID int64) error {
	if toAccountID <= 0 {
		return fmt.Errorf("%w: destination account required", ErrInvalidInput)
	}
	if t.AccountID == toAccountID {
		return fmt.Errorf("%w: transfer accounts must differ", ErrInvalidInput)
	}
	t.Type = TxnTransfer
	tid := t.TransferID
	if tid <= 0 {
		tid = t.ID
	}
	t.TransferID = tid
	t, err := prepareTransaction(t)
	if err != nil {
		return err
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = NULL, type = 'Transfer', amount = ?, date = ?,
		    reflection_date = ?, payee = '', description = ?, transfer_id = ?
		WHERE id = ?`,
			t.AccountID, t.AmountCents, t.Date, nullableText(t.ReflectionDate),
			t.Description, tid, t.ID)
		if err != nil {
			return transferInsertErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
		}

		var mirrorID int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM transactions WHERE transfer_id = ? AND id != ? LIMIT 1`,
			tid, t.ID).Scan(&mirrorID)
		switch {
		case err == sql.ErrNoRows:
			// pairing was broken; recreate the mirror leg
			_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions(account_id, type, amount, date, reflection_date, payee, description, transfer_id)
			VALUES (?, 'Transfer', ?, ?, ?, '', ?, ?)`,
				toAccountID, t.AmountCents, t.Date, nullableText(t.ReflectionDate), t.Description, tid)
			return transferInsertErr(err)
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, `
		UPDATE transactions SET account_id = ?, amount = ?, date = ?, reflection_date = ?, description = ?
		WHERE id = ?`,
			toAccountID, t.AmountCents, t.Date, nullableText(t.ReflectionDate), t.Description, mirrorID)
		return transferInsertErr(err)
	})
}

func transferInsertErr(err error) error {
	if err == nil {
		return nil
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("transfer references missing account: %w", ErrNotFound)
	}
	return err
}
