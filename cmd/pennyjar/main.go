package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/mfenwick/pennyjar/internal/config"
	"github.com/mfenwick/pennyjar/internal/database"
	"github.com/mfenwick/pennyjar/internal/database/repository"
	"github.com/mfenwick/pennyjar/internal/logging"
	"github.com/mfenwick/pennyjar/internal/service"
	"github.com/mfenwick/pennyjar/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Path)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrationsWithDB(db, "internal/database/migrations"); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	if err := database.SeedDefaults(ctx, db); err != nil {
		logger.Fatal("seed defaults", zap.Error(err))
	}

	// repositories
	txRepo := repository.NewTransactionRepo(db)
	acctRepo := repository.NewAccountRepo(db)
	catRepo := repository.NewCategoryRepo(db)
	budgetRepo := repository.NewBudgetRepo(db)
	reportRepo := repository.NewReportRepo(db)

	// services
	importer := &service.ImportService{Transactions: txRepo, Accounts: acctRepo, Log: logger}
	maintenance := &service.MaintenanceService{DB: db}

	loc, err := time.LoadLocation(cfg.Location())
	if err != nil {
		logger.Warn("using local timezone", zap.Error(err))
		loc = time.Local
	}

	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Repos{Transactions: txRepo, Accounts: acctRepo, Categories: catRepo, Budgets: budgetRepo, Reports: reportRepo},
		tui.Services{Import: importer, Maintenance: maintenance},
		loc,
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
