package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// TransactionRepo handles transactions, including transfer-pair upkeep.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Insert creates a transaction and returns its id. Dates are normalized to
// YYYY-MM-DD; category ids <= 0 are stored as absent. Transfer rows always
// carry an empty category and payee.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) (int64, error) {
	t, err := prepareTransaction(t)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(account_id, category_id, type, amount, date, reflection_date, payee, description, transfer_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullableID(t.CategoryID), string(t.Type), t.AmountCents,
		t.Date, nullableText(t.ReflectionDate), t.Payee, t.Description, nullableID(t.TransferID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("transaction references missing row: %w", ErrNotFound)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites a transaction. A nonzero transfer id forces the row to be
// a Transfer with no category; a non-Transfer type forces the transfer id
// clear. Afterwards mirror legs are kept consistent: siblings are
// re-synchronized to the updated fields, an orphaned group is healed by
// clearing its last row's transfer id, and a cleared transfer id unlinks
// the former siblings too.
func (r *TransactionRepo) Update(ctx context.Context, t Transaction) error {
	t, err := prepareTransaction(t)
	if err != nil {
		return err
	}
	return withTx(r.db, func(tx *sql.Tx) error {
		var oldTID int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(transfer_id, 0) FROM transactions WHERE id = ?`, t.ID).Scan(&oldTID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, type = ?, amount = ?, date = ?,
		    reflection_date = ?, payee = ?, description = ?, transfer_id = ?
		WHERE id = ?`,
			t.AccountID, nullableID(t.CategoryID), string(t.Type), t.AmountCents,
			t.Date, nullableText(t.ReflectionDate), t.Payee, t.Description,
			nullableID(t.TransferID), t.ID); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("transaction references missing row: %w", ErrNotFound)
			}
			return err
		}

		if t.TransferID > 0 {
			var siblings int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM transactions WHERE transfer_id = ? AND id != ?`,
				t.TransferID, t.ID).Scan(&siblings); err != nil {
				return err
			}
			if siblings == 0 {
				// lone survivor of a broken pair; stop flagging it
				_, err := tx.ExecContext(ctx,
					`UPDATE transactions SET transfer_id = NULL WHERE id = ?`, t.ID)
				return err
			}
			_, err := tx.ExecContext(ctx, `
			UPDATE transactions SET amount = ?, date = ?, reflection_date = ?, payee = ?, description = ?
			WHERE transfer_id = ? AND id != ?`,
				t.AmountCents, t.Date, nullableText(t.ReflectionDate), t.Payee, t.Description,
				t.TransferID, t.ID)
			return err
		}
		if oldTID > 0 {
			// this row left the group; don't leave the mirrors dangling
			_, err := tx.ExecContext(ctx,
				`UPDATE transactions SET transfer_id = NULL WHERE transfer_id = ?`, oldTID)
			return err
		}
		return nil
	})
}

// Delete removes a transaction. For a transfer leg this releases the whole
// group: every row sharing the transfer id goes with it.
func (r *TransactionRepo) Delete(ctx context.Context, id int64) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		var tid int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(transfer_id, 0) FROM transactions WHERE id = ?`, id).Scan(&tid)
		if err == sql.ErrNoRows {
			return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if tid > 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE transfer_id = ?`, tid)
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		return err
	})
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, account_id, COALESCE(category_id, 0), type, amount, date,
	       COALESCE(reflection_date, ''), payee, description, COALESCE(transfer_id, 0)
	FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return t, err
}

// ListForAccount returns an account's transactions newest first (effective
// date, then id). The display category is "Parent:Child" for parented
// categories; for transfer legs it is the mirror account's name, or
// "(transfer)" when the mirror is gone.
func (r *TransactionRepo) ListForAccount(ctx context.Context, accountID int64) ([]TxnRow, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT t.id, t.account_id, COALESCE(t.category_id, 0), t.type, t.amount, t.date,
	       COALESCE(t.reflection_date, ''), t.payee, t.description, COALESCE(t.transfer_id, 0),
	       CASE
	         WHEN t.type = 'Transfer' THEN COALESCE(
	           (SELECT a.name FROM transactions m JOIN accounts a ON a.id = m.account_id
	            WHERE m.transfer_id = t.transfer_id AND m.id != t.id LIMIT 1),
	           '(transfer)')
	         ELSE COALESCE(
	           (SELECT COALESCE(p.name || ':', '') || c.name
	            FROM categories c LEFT JOIN categories p ON p.id = c.parent_id
	            WHERE c.id = t.category_id),
	           '')
	       END
	FROM transactions t
	WHERE t.account_id = ?
	ORDER BY COALESCE(t.reflection_date, t.date) DESC, t.id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TxnRow
	for rows.Next() {
		var tr TxnRow
		var typ, display string
		if err := rows.Scan(&tr.ID, &tr.AccountID, &tr.CategoryID, &typ, &tr.AmountCents,
			&tr.Date, &tr.ReflectionDate, &tr.Payee, &tr.Description, &tr.TransferID, &display); err != nil {
			return nil, err
		}
		tr.Type = TransactionType(typ)
		tr.CategoryDisplay = TruncateDisplay(display)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// MostRecentCategoryForPayee returns the category of the newest categorized
// non-transfer transaction matching (account, payee, type) exactly, or 0
// when there is no history to borrow from.
func (r *TransactionRepo) MostRecentCategoryForPayee(ctx context.Context, accountID int64, payee string, typ TransactionType) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT category_id FROM transactions
	WHERE account_id = ? AND payee = ? AND type = ? AND type != 'Transfer' AND category_id IS NOT NULL
	ORDER BY COALESCE(reflection_date, date) DESC, id DESC
	LIMIT 1`, accountID, payee, string(typ))
	var id int64
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// ApplyCategoryToUncategorizedByPayee bulk-assigns categoryID to every
// uncategorized transaction with an exact payee and type match, across all
// accounts, and returns how many rows changed. Used after the user
// categorizes one transaction to offer the same category to its history.
func (r *TransactionRepo) ApplyCategoryToUncategorizedByPayee(ctx context.Context, payee string, typ TransactionType, categoryID int64) (int64, error) {
	if categoryID <= 0 {
		return 0, fmt.Errorf("%w: category required", ErrInvalidInput)
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE transactions SET category_id = ?
	WHERE payee = ? AND type = ? AND category_id IS NULL`,
		categoryID, payee, string(typ))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
		}
		return 0, err
	}
	return res.RowsAffected()
}

// DedupRow is the exact-match key a statement row is compared against.
type DedupRow struct {
	Date        string
	AmountCents int64
	Type        TransactionType
	Payee       string
}

// DedupRows returns the match keys of an account's existing transactions,
// loaded once per account by the import engine.
func (r *TransactionRepo) DedupRows(ctx context.Context, accountID int64) ([]DedupRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, amount, type, payee FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DedupRow
	for rows.Next() {
		var d DedupRow
		var typ string
		if err := rows.Scan(&d.Date, &d.AmountCents, &typ, &d.Payee); err != nil {
			return nil, err
		}
		d.Type = TransactionType(typ)
		out = append(out, d)
	}
	return out, rows.Err()
}

// prepareTransaction validates and normalizes a record before any write.
func prepareTransaction(t Transaction) (Transaction, error) {
	if t.AccountID <= 0 {
		return Transaction{}, fmt.Errorf("%w: account required", ErrInvalidInput)
	}
	if t.AmountCents <= 0 {
		return Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if _, ok := ParseTransactionType(string(t.Type)); !ok {
		return Transaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, t.Type)
	}
	var err error
	if t.Date, err = NormalizeDate(t.Date); err != nil {
		return Transaction{}, err
	}
	if t.ReflectionDate, err = NormalizeOptionalDate(t.ReflectionDate); err != nil {
		return Transaction{}, err
	}
	if t.CategoryID < 0 {
		t.CategoryID = 0
	}
	if t.TransferID > 0 {
		t.Type = TxnTransfer
	} else if t.Type != TxnTransfer {
		t.TransferID = 0
	}
	if t.Type == TxnTransfer {
		t.CategoryID = 0
		t.Payee = ""
	}
	return t, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var typ string
	if err := row.Scan(&t.ID, &t.AccountID, &t.CategoryID, &typ, &t.AmountCents,
		&t.Date, &t.ReflectionDate, &t.Payee, &t.Description, &t.TransferID); err != nil {
		return Transaction{}, err
	}
	t.Type = TransactionType(typ)
	return t, nil
}
