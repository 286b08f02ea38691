package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Insert creates an account and returns its id. Duplicate names map to
// ErrConflict so the caller can prompt for another name.
func (r *AccountRepo) Insert(ctx context.Context, a Account) (int64, error) {
	if err := validateAccount(a); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts(name, type, card_last4) VALUES (?, ?, ?)`,
		a.Name, string(a.Type), nullableText(a.CardLast4))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("account %q: %w", a.Name, ErrConflict)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Update renames or retypes an existing account.
func (r *AccountRepo) Update(ctx context.Context, a Account) error {
	if err := validateAccount(a); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, card_last4 = ? WHERE id = ?`,
		a.Name, string(a.Type), nullableText(a.CardLast4), a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", a.Name, ErrConflict)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", a.ID, ErrNotFound)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, COALESCE(card_last4, '') FROM accounts WHERE id = ?`, id)
	var a Account
	var typ string
	if err := row.Scan(&a.ID, &a.Name, &typ, &a.CardLast4); err != nil {
		if err == sql.ErrNoRows {
			return Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
		}
		return Account{}, err
	}
	a.Type = AccountType(typ)
	return a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, COALESCE(card_last4, '') FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		var typ string
		if err := rows.Scan(&a.ID, &a.Name, &typ, &a.CardLast4); err != nil {
			return nil, err
		}
		a.Type = AccountType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an account. Without cascade it fails with
// ErrHasTransactions when the account still owns transactions; with cascade
// the transactions go first, then the account, in one transaction. Transfer
// groups that lose their mirror in the cascade are unlinked so surviving
// rows never point at a deleted leg.
func (r *AccountRepo) Delete(ctx context.Context, id int64, cascade bool) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			if !cascade {
				return fmt.Errorf("account %d: %w", id, ErrHasTransactions)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM transactions WHERE account_id = ?`, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
			UPDATE transactions SET transfer_id = NULL
			WHERE transfer_id IS NOT NULL
			  AND (SELECT COUNT(*) FROM transactions t2 WHERE t2.transfer_id = transactions.transfer_id) < 2`); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// vanished mid-operation; roll back the cascade too
			return fmt.Errorf("account %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func validateAccount(a Account) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name required", ErrInvalidInput)
	}
	if _, ok := ParseAccountType(string(a.Type)); !ok {
		return fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, a.Type)
	}
	if a.CardLast4 != "" {
		if len(a.CardLast4) != 4 || strings.Trim(a.CardLast4, "0123456789") != "" {
			return fmt.Errorf("%w: card_last4 must be 4 digits", ErrInvalidInput)
		}
	}
	return nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
