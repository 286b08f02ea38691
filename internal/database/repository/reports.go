package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReportRepo is the read-only aggregation surface. Income adds, Expense
// subtracts, and a transfer leg subtracts exactly when it is the outflow
// leg (id = transfer_id).
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// A transfer leg that lost its group (transfer_id cleared by healing) has
// no recoverable direction; it counts as an inflow until the user relinks
// or recasts it. NULL never compares equal, so such rows take the ELSE arm.
const signedAmount = `
CASE type
  WHEN 'Income' THEN amount
  WHEN 'Expense' THEN -amount
  ELSE CASE WHEN id = transfer_id THEN -amount ELSE amount END
END`

const effectiveDate = `COALESCE(reflection_date, date)`

// AccountBalance returns the signed sum of everything in the account.
func (r *ReportRepo) AccountBalance(ctx context.Context, accountID int64) (int64, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM transactions WHERE account_id = ?`,
		accountID)
	var cents int64
	if err := row.Scan(&cents); err != nil {
		return 0, err
	}
	return cents, nil
}

// MonthToDateNet returns the signed sum over effective dates from the first
// of the current month through today, in the local calendar.
func (r *ReportRepo) MonthToDateNet(ctx context.Context, accountID int64, now time.Time, loc *time.Location) (int64, error) {
	start, end := monthToDateWindow(now, loc)
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM transactions
		 WHERE account_id = ? AND `+effectiveDate+` BETWEEN ? AND ?`,
		accountID, start, end)
	var cents int64
	if err := row.Scan(&cents); err != nil {
		return 0, err
	}
	return cents, nil
}

// MonthToDateIncome returns this month's income total for the account.
func (r *ReportRepo) MonthToDateIncome(ctx context.Context, accountID int64, now time.Time, loc *time.Location) (int64, error) {
	return r.monthToDateByType(ctx, accountID, TxnIncome, now, loc)
}

// MonthToDateExpense returns this month's expense total for the account.
func (r *ReportRepo) MonthToDateExpense(ctx context.Context, accountID int64, now time.Time, loc *time.Location) (int64, error) {
	return r.monthToDateByType(ctx, accountID, TxnExpense, now, loc)
}

func (r *ReportRepo) monthToDateByType(ctx context.Context, accountID int64, typ TransactionType, now time.Time, loc *time.Location) (int64, error) {
	start, end := monthToDateWindow(now, loc)
	row := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE account_id = ? AND type = ? AND `+effectiveDate+` BETWEEN ? AND ?`,
		accountID, string(typ), start, end)
	var cents int64
	if err := row.Scan(&cents); err != nil {
		return 0, err
	}
	return cents, nil
}

// BalancePoint is one day of a running-balance series.
type BalancePoint struct {
	Date         string
	BalanceCents int64
}

// BalanceSeries reconstructs the running balance for exactly lookbackDays
// consecutive calendar days ending today. The opening balance is computed
// once from everything strictly before the window; the series is then
// walked forward day by day adding each day's net delta, so the cost is
// O(days + rows in window), not a recompute per day.
func (r *ReportRepo) BalanceSeries(ctx context.Context, accountID int64, lookbackDays int, now time.Time, loc *time.Location) ([]BalancePoint, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("%w: lookback days must be positive", ErrInvalidInput)
	}
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(0, 0, -(lookbackDays - 1))
	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")

	var opening int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM transactions
		 WHERE account_id = ? AND `+effectiveDate+` < ?`,
		accountID, startStr).Scan(&opening); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+effectiveDate+` AS day, SUM(`+signedAmount+`) FROM transactions
		 WHERE account_id = ? AND `+effectiveDate+` BETWEEN ? AND ?
		 GROUP BY day ORDER BY day`,
		accountID, startStr, endStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deltas := make(map[string]int64, lookbackDays)
	for rows.Next() {
		var day string
		var net int64
		if err := rows.Scan(&day, &net); err != nil {
			return nil, err
		}
		deltas[day] = net
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make([]BalancePoint, 0, lookbackDays)
	running := opening
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		running += deltas[key]
		series = append(series, BalancePoint{Date: key, BalanceCents: running})
	}
	return series, nil
}

// CategorySpend is one category's expense total for a month.
type CategorySpend struct {
	CategoryID int64
	SpentCents int64
}

// SpentByCategoryForMonth totals expenses per category for a YYYY-MM month,
// by effective date. Uncategorized spend comes back under category id 0.
func (r *ReportRepo) SpentByCategoryForMonth(ctx context.Context, month string) ([]CategorySpend, error) {
	month, err := NormalizeMonth(month)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(category_id, 0), SUM(amount) FROM transactions
		 WHERE type = 'Expense' AND substr(`+effectiveDate+`, 1, 7) = ?
		 GROUP BY category_id ORDER BY SUM(amount) DESC`, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategorySpend
	for rows.Next() {
		var cs CategorySpend
		if err := rows.Scan(&cs.CategoryID, &cs.SpentCents); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func monthToDateWindow(now time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start.Format("2006-01-02"), local.Format("2006-01-02")
}
