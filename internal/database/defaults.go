package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

// SeedDefaults ensures a baseline taxonomy exists for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	existing, err := catRepo.List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	expense := []string{
		"Food > Groceries",
		"Food > Restaurants",
		"Transport",
		"Housing > Rent",
		"Housing > Utilities",
		"Shopping",
		"Subscriptions",
		"Health",
		"Entertainment",
	}
	income := []string{
		"Salary",
		"Interest",
	}
	if err := seedPaths(ctx, catRepo, repository.CatExpense, expense); err != nil {
		return err
	}
	return seedPaths(ctx, catRepo, repository.CatIncome, income)
}

func seedPaths(ctx context.Context, catRepo *repository.CategoryRepo, ctype repository.CategoryType, paths []string) error {
	for _, path := range paths {
		var parentID int64
		for _, raw := range strings.Split(path, ">") {
			name := strings.TrimSpace(raw)
			cat, err := catRepo.GetOrCreate(ctx, ctype, name, parentID)
			if err != nil {
				return err
			}
			parentID = cat.ID
		}
	}
	return nil
}
