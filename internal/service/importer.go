package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

// ImportService writes normalized statement rows into the ledger,
// deduplicating against what is already there.
type ImportService struct {
	Transactions *repository.TransactionRepo
	Accounts     *repository.AccountRepo
	Log          *zap.Logger
}

// ImportResult counts the outcome of one statement. Skipped covers both
// dedup hits and (for credit cards) rows whose card matched no account.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ledgerCache holds one account's existing match keys with a consumed
// bitmap: each existing row can absorb at most one incoming duplicate, so a
// batch of N identical rows dedups against at most N identical existing
// rows.
type ledgerCache struct {
	rows     []repository.DedupRow
	consumed []bool
}

func (c *ledgerCache) matchAndConsume(row ImportRow) bool {
	for i, existing := range c.rows {
		if c.consumed[i] {
			continue
		}
		if existing.Date == row.Date && existing.AmountCents == row.AmountCents &&
			existing.Type == row.Type && existing.Payee == row.Payee {
			c.consumed[i] = true
			return true
		}
	}
	return false
}

// Import dispatches on the statement kind. Credit-card rows route
// themselves by card last-4; bank rows all land in accountID.
func (s *ImportService) Import(ctx context.Context, kind StatementKind, accountID int64, rows []ImportRow) (ImportResult, error) {
	if kind == CreditCardStatement {
		return s.ImportCreditCard(ctx, rows)
	}
	return s.ImportBankStatement(ctx, accountID, rows)
}

// ImportCreditCard imports a credit-card statement. Each row is matched to
// the first CreditCard account carrying its last-4 (in account listing
// order); rows with no match are skipped. A database error aborts the rest
// of the batch; rows committed before it stay committed.
func (s *ImportService) ImportCreditCard(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	var res ImportResult
	batchLog := s.Log.With(
		zap.String("batch", uuid.NewString()),
		zap.String("kind", string(CreditCardStatement)))

	accounts, err := s.Accounts.List(ctx)
	if err != nil {
		batchLog.Error("list accounts", zap.Error(err))
		return res, err
	}
	byLast4 := make(map[string]repository.Account)
	for _, a := range accounts {
		if a.Type != repository.AccountCreditCard || a.CardLast4 == "" {
			continue
		}
		if prev, dup := byLast4[a.CardLast4]; dup {
			// ambiguous routing; first listed account keeps winning
			batchLog.Warn("duplicate card last-4",
				zap.String("last4", a.CardLast4),
				zap.String("kept", prev.Name),
				zap.String("ignored", a.Name))
			continue
		}
		byLast4[a.CardLast4] = a
	}

	caches := make(map[int64]*ledgerCache)
	var unmatched, duplicates int
	for _, row := range rows {
		acct, ok := byLast4[row.CardLast4]
		if !ok {
			unmatched++
			res.Skipped++
			continue
		}
		cache, err := s.cacheFor(ctx, caches, acct.ID)
		if err != nil {
			batchLog.Error("load existing rows", zap.Int64("account", acct.ID), zap.Error(err))
			return res, err
		}
		if cache.matchAndConsume(row) {
			duplicates++
			res.Skipped++
			continue
		}
		if err := s.insertRow(ctx, acct.ID, row); err != nil {
			batchLog.Error("insert row", zap.Int64("account", acct.ID), zap.Error(err))
			return res, err
		}
		res.Imported++
	}
	batchLog.Info("import complete",
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", duplicates),
		zap.Int("unmatched_card", unmatched))
	return res, nil
}

// ImportBankStatement imports a checking/savings statement into one
// account, with the same dedup rules as the credit-card path.
func (s *ImportService) ImportBankStatement(ctx context.Context, accountID int64, rows []ImportRow) (ImportResult, error) {
	var res ImportResult
	batchLog := s.Log.With(
		zap.String("batch", uuid.NewString()),
		zap.String("kind", string(CheckingSavingsStatement)),
		zap.Int64("account", accountID))

	if _, err := s.Accounts.Get(ctx, accountID); err != nil {
		return res, fmt.Errorf("import target: %w", err)
	}
	existing, err := s.Transactions.DedupRows(ctx, accountID)
	if err != nil {
		batchLog.Error("load existing rows", zap.Error(err))
		return res, err
	}
	cache := &ledgerCache{rows: existing, consumed: make([]bool, len(existing))}

	var duplicates int
	for _, row := range rows {
		if cache.matchAndConsume(row) {
			duplicates++
			res.Skipped++
			continue
		}
		if err := s.insertRow(ctx, accountID, row); err != nil {
			batchLog.Error("insert row", zap.Error(err))
			return res, err
		}
		res.Imported++
	}
	batchLog.Info("import complete",
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", duplicates))
	return res, nil
}

// cacheFor lazily loads an account's existing rows, once per distinct
// destination account in the batch.
func (s *ImportService) cacheFor(ctx context.Context, caches map[int64]*ledgerCache, accountID int64) (*ledgerCache, error) {
	if c, ok := caches[accountID]; ok {
		return c, nil
	}
	existing, err := s.Transactions.DedupRows(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c := &ledgerCache{rows: existing, consumed: make([]bool, len(existing))}
	caches[accountID] = c
	return c, nil
}

// insertRow writes one statement row, borrowing the category of the most
// recent transaction with the same payee and type when one exists.
func (s *ImportService) insertRow(ctx context.Context, accountID int64, row ImportRow) error {
	categoryID, err := s.Transactions.MostRecentCategoryForPayee(ctx, accountID, row.Payee, row.Type)
	if err != nil {
		return err
	}
	_, err = s.Transactions.Insert(ctx, repository.Transaction{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Type:        row.Type,
		AmountCents: row.AmountCents,
		Date:        row.Date,
		Payee:       row.Payee,
		Description: row.Description,
	})
	return err
}
