package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Budget utilization is reported in basis points of the limit.
const (
	// UtilizationNoRule is the sentinel for "no budget rule applies".
	UtilizationNoRule int64 = -1
	// TierNominalMaxBps is the top of the nominal band (100%).
	TierNominalMaxBps int64 = 10000
	// TierWarningMaxBps is the top of the warning band (125%).
	TierWarningMaxBps int64 = 12500
)

// BudgetRepo handles effective-dated budget rules: a rule set for month M
// applies to every month at or after M until a later rule supersedes it.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo {
	return &BudgetRepo{db: db}
}

// SetEffective upserts the rule keyed on exactly (category, month).
func (r *BudgetRepo) SetEffective(ctx context.Context, categoryID int64, month string, limitCents int64) error {
	month, err := NormalizeMonth(month)
	if err != nil {
		return err
	}
	if categoryID <= 0 {
		return fmt.Errorf("%w: category required", ErrInvalidInput)
	}
	if limitCents <= 0 {
		return fmt.Errorf("%w: budget limit must be positive", ErrInvalidInput)
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO budget_rules(category_id, month, limit_cents) VALUES (?, ?, ?)
	ON CONFLICT(category_id, month) DO UPDATE SET limit_cents = excluded.limit_cents`,
		categoryID, month, limitCents)
	if err != nil && isForeignKeyViolation(err) {
		return fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	return err
}

// Effective resolves the budget for a month: the most recent rule at or
// before it. ok is false when no rule has taken effect yet.
func (r *BudgetRepo) Effective(ctx context.Context, categoryID int64, month string) (limitCents int64, ok bool, err error) {
	month, err = NormalizeMonth(month)
	if err != nil {
		return 0, false, err
	}
	row := r.db.QueryRowContext(ctx, `
	SELECT limit_cents FROM budget_rules
	WHERE category_id = ? AND month <= ?
	ORDER BY month DESC LIMIT 1`, categoryID, month)
	if err := row.Scan(&limitCents); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return limitCents, true, nil
}

// DeleteRule removes the rule keyed on exactly (category, month); earlier
// rules become effective again for that month.
func (r *BudgetRepo) DeleteRule(ctx context.Context, categoryID int64, month string) error {
	month, err := NormalizeMonth(month)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_rules WHERE category_id = ? AND month = ?`, categoryID, month)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("budget rule %d/%s: %w", categoryID, month, ErrNotFound)
	}
	return nil
}

// ResolvedBudget is one category's effective limit for a month.
type ResolvedBudget struct {
	CategoryID int64
	LimitCents int64
}

// ListEffective resolves every category's budget for a month in one query.
// Categories without an effective rule are absent from the result.
func (r *BudgetRepo) ListEffective(ctx context.Context, month string) ([]ResolvedBudget, error) {
	month, err := NormalizeMonth(month)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT b.category_id, b.limit_cents FROM budget_rules b
	WHERE b.month = (SELECT MAX(b2.month) FROM budget_rules b2
	                 WHERE b2.category_id = b.category_id AND b2.month <= ?)
	ORDER BY b.category_id`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResolvedBudget
	for rows.Next() {
		var rb ResolvedBudget
		if err := rows.Scan(&rb.CategoryID, &rb.LimitCents); err != nil {
			return nil, err
		}
		out = append(out, rb)
	}
	return out, rows.Err()
}

// UtilizationBps converts spend against a limit into basis points
// (spent * 10000 / limit). A missing rule yields UtilizationNoRule.
func UtilizationBps(spentCents, limitCents int64) int64 {
	if limitCents <= 0 {
		return UtilizationNoRule
	}
	return spentCents * 10000 / limitCents
}
