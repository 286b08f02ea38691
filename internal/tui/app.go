package tui

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfenwick/pennyjar/internal/config"
	"github.com/mfenwick/pennyjar/internal/database/repository"
	"github.com/mfenwick/pennyjar/internal/service"
)

// App ties together views. All state lives here and is passed by reference
// through the event loop; the core engines hold no UI state.
type App struct {
	ctx      context.Context
	cfg      config.Config
	repos    Repos
	services Services
	loc      *time.Location

	view   viewState
	status string
	width  int
	height int

	accounts   []accountItem
	acctCursor int

	txns     []repository.TxnRow
	txCursor int
	txSort   sortSpec

	budgets      []budgetItem
	budgetCursor int

	series []repository.BalancePoint

	mode        inputMode
	form        *form
	inputBuffer string
	importPath  string
	lastImport  *service.ImportResult
}

type Repos struct {
	Transactions *repository.TransactionRepo
	Accounts     *repository.AccountRepo
	Categories   *repository.CategoryRepo
	Budgets      *repository.BudgetRepo
	Reports      *repository.ReportRepo
}

type Services struct {
	Import      *service.ImportService
	Maintenance *service.MaintenanceService
}

type viewState string

const (
	viewAccounts     viewState = "accounts"
	viewTransactions viewState = "transactions"
	viewBudgets      viewState = "budgets"
	viewImport       viewState = "import"
	viewSettings     viewState = "settings"
)

var viewOrder = []viewState{viewAccounts, viewTransactions, viewBudgets, viewImport, viewSettings}

type inputMode string

const (
	modeNone         inputMode = ""
	modeImportPath   inputMode = "importPath"
	modeConfirmReset inputMode = "confirmReset"
	modeForm         inputMode = "form"
)

type accountItem struct {
	Account      repository.Account
	BalanceCents int64
	MTDNetCents  int64
}

type budgetItem struct {
	CategoryID int64
	Display    string
	LimitCents int64
	SpentCents int64
	Bps        int64
}

// sortSpec captures the transaction sort configuration; the comparator
// closes over it so sorting stays reentrant.
type sortSpec struct {
	column string // "date" or "amount"
	desc   bool
}

func comparatorFor(spec sortSpec) func(a, b repository.TxnRow) bool {
	return func(a, b repository.TxnRow) bool {
		var less bool
		switch spec.column {
		case "amount":
			if a.AmountCents != b.AmountCents {
				less = a.AmountCents < b.AmountCents
			} else {
				less = a.ID < b.ID
			}
		default:
			if a.EffectiveDate() != b.EffectiveDate() {
				less = a.EffectiveDate() < b.EffectiveDate()
			} else {
				less = a.ID < b.ID
			}
		}
		if spec.desc {
			return !less
		}
		return less
	}
}

func New(ctx context.Context, cfg config.Config, repos Repos, services Services, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		ctx:      ctx,
		cfg:      cfg,
		repos:    repos,
		services: services,
		loc:      loc,
		view:     viewAccounts,
		txSort:   sortSpec{column: "date", desc: true},
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadAccounts()
}

// ---- messages ----

type errMsg struct{ err error }
type statusMsg string
type accountsMsg []accountItem
type txnsMsg []repository.TxnRow
type budgetsMsg []budgetItem
type seriesMsg []repository.BalancePoint
type importDoneMsg service.ImportResult

// ---- commands ----

func (a *App) loadAccounts() tea.Cmd {
	return func() tea.Msg {
		accounts, err := a.repos.Accounts.List(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		now := time.Now()
		items := make([]accountItem, 0, len(accounts))
		for _, acct := range accounts {
			bal, err := a.repos.Reports.AccountBalance(a.ctx, acct.ID)
			if err != nil {
				return errMsg{err}
			}
			mtd, err := a.repos.Reports.MonthToDateNet(a.ctx, acct.ID, now, a.loc)
			if err != nil {
				return errMsg{err}
			}
			items = append(items, accountItem{Account: acct, BalanceCents: bal, MTDNetCents: mtd})
		}
		return accountsMsg(items)
	}
}

func (a *App) loadTransactions() tea.Cmd {
	acct, ok := a.selectedAccount()
	if !ok {
		return func() tea.Msg { return txnsMsg(nil) }
	}
	return func() tea.Msg {
		txns, err := a.repos.Transactions.ListForAccount(a.ctx, acct.ID)
		if err != nil {
			return errMsg{err}
		}
		return txnsMsg(txns)
	}
}

func (a *App) loadBudgets() tea.Cmd {
	return func() tea.Msg {
		month := a.currentMonth()
		resolved, err := a.repos.Budgets.ListEffective(a.ctx, month)
		if err != nil {
			return errMsg{err}
		}
		spend, err := a.repos.Reports.SpentByCategoryForMonth(a.ctx, month)
		if err != nil {
			return errMsg{err}
		}
		spentBy := make(map[int64]int64, len(spend))
		for _, cs := range spend {
			spentBy[cs.CategoryID] = cs.SpentCents
		}
		items := make([]budgetItem, 0, len(resolved))
		for _, rb := range resolved {
			display, err := a.repos.Categories.DisplayName(a.ctx, rb.CategoryID)
			if err != nil {
				display = fmt.Sprintf("#%d", rb.CategoryID)
			}
			spent := spentBy[rb.CategoryID]
			items = append(items, budgetItem{
				CategoryID: rb.CategoryID,
				Display:    display,
				LimitCents: rb.LimitCents,
				SpentCents: spent,
				Bps:        repository.UtilizationBps(spent, rb.LimitCents),
			})
		}
		return budgetsMsg(items)
	}
}

func (a *App) loadSeries() tea.Cmd {
	acct, ok := a.selectedAccount()
	if !ok {
		return func() tea.Msg { return seriesMsg(nil) }
	}
	days := a.cfg.UI.LookbackDays
	if days <= 0 {
		days = 30
	}
	return func() tea.Msg {
		series, err := a.repos.Reports.BalanceSeries(a.ctx, acct.ID, days, time.Now(), a.loc)
		if err != nil {
			return errMsg{err}
		}
		return seriesMsg(series)
	}
}

func (a *App) runImport(path string) tea.Cmd {
	acct, hasAcct := a.selectedAccount()
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return errMsg{err}
		}
		defer f.Close()
		reader := csv.NewReader(f)
		reader.TrimLeadingSpace = true
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return errMsg{err}
		}
		kind, rows, err := service.ParseStatement(records)
		if err != nil {
			return errMsg{err}
		}
		var accountID int64
		if kind == service.CheckingSavingsStatement {
			if !hasAcct {
				return errMsg{errors.New("select an account before importing a bank statement")}
			}
			accountID = acct.ID
		}
		res, err := a.services.Import.Import(a.ctx, kind, accountID, rows)
		if err != nil {
			return errMsg{fmt.Errorf("import aborted after %d rows: %w", res.Imported, err)}
		}
		return importDoneMsg(res)
	}
}

func (a *App) deleteSelectedTxn() tea.Cmd {
	if a.txCursor >= len(a.txns) {
		return nil
	}
	id := a.txns[a.txCursor].ID
	return func() tea.Msg {
		if err := a.repos.Transactions.Delete(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return statusMsg("deleted (transfer legs travel together)")
	}
}

func (a *App) resetAll() tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Maintenance.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("all data wiped")
	}
}

// ---- update ----

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		return a, nil
	case errMsg:
		a.status = errorStyle.Render(renderErr(m.err))
		return a, nil
	case statusMsg:
		a.status = statusStyle.Render(string(m))
		return a, tea.Batch(a.loadAccounts(), a.loadTransactions(), a.loadBudgets())
	case accountsMsg:
		a.accounts = m
		if a.acctCursor >= len(a.accounts) && len(a.accounts) > 0 {
			a.acctCursor = len(a.accounts) - 1
		}
		return a, nil
	case txnsMsg:
		a.txns = m
		a.sortTxns()
		if a.txCursor >= len(a.txns) && len(a.txns) > 0 {
			a.txCursor = len(a.txns) - 1
		}
		return a, nil
	case budgetsMsg:
		a.budgets = m
		if a.budgetCursor >= len(a.budgets) && len(a.budgets) > 0 {
			a.budgetCursor = len(a.budgets) - 1
		}
		return a, nil
	case seriesMsg:
		a.series = m
		return a, nil
	case importDoneMsg:
		a.lastImport = (*service.ImportResult)(&m)
		a.status = statusStyle.Render(fmt.Sprintf("imported %d, skipped %d", m.Imported, m.Skipped))
		return a, tea.Batch(a.loadAccounts(), a.loadTransactions())
	case tea.KeyMsg:
		return a.handleKey(m)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.mode == modeImportPath {
		return a.handleImportInput(m)
	}
	if a.mode == modeForm {
		return a.handleFormInput(m)
	}
	if a.mode == modeConfirmReset {
		a.mode = modeNone
		if m.String() == "Y" {
			return a, a.resetAll()
		}
		a.status = dimStyle.Render("reset cancelled")
		return a, nil
	}

	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "tab":
		a.view = nextView(a.view)
		return a, a.refreshFor(a.view)
	case "1", "a":
		a.view = viewAccounts
		return a, a.loadAccounts()
	case "2", "t":
		a.view = viewTransactions
		return a, a.loadTransactions()
	case "3", "b":
		a.view = viewBudgets
		return a, a.loadBudgets()
	case "4", "i":
		a.view = viewImport
		return a, nil
	case "5":
		a.view = viewSettings
		return a, nil
	case "s":
		if a.view == viewTransactions {
			// flip sort column; a closure over the new spec does the work
			if a.txSort.column == "date" {
				a.txSort.column = "amount"
			} else {
				a.txSort.column = "date"
			}
			a.sortTxns()
			return a, nil
		}
		a.view = viewSettings
		return a, nil
	case "g":
		a.view = viewAccounts
		return a, a.loadSeries()
	}

	switch a.view {
	case viewAccounts:
		switch m.String() {
		case "j", "down":
			if a.acctCursor < len(a.accounts)-1 {
				a.acctCursor++
			}
		case "k", "up":
			if a.acctCursor > 0 {
				a.acctCursor--
			}
		case "enter":
			a.view = viewTransactions
			return a, a.loadTransactions()
		case "n":
			a.startForm(formNewAccount)
		case "r":
			return a, a.loadAccounts()
		}
	case viewTransactions:
		switch m.String() {
		case "j", "down":
			if a.txCursor < len(a.txns)-1 {
				a.txCursor++
			}
		case "k", "up":
			if a.txCursor > 0 {
				a.txCursor--
			}
		case "o":
			a.txSort.desc = !a.txSort.desc
			a.sortTxns()
		case "c":
			a.startForm(formCategorize)
		case "p":
			a.startForm(formEditPayee)
		case "m":
			a.startForm(formTransfer)
		case "d":
			return a, a.deleteSelectedTxn()
		case "r":
			return a, a.loadTransactions()
		}
	case viewBudgets:
		switch m.String() {
		case "j", "down":
			if a.budgetCursor < len(a.budgets)-1 {
				a.budgetCursor++
			}
		case "k", "up":
			if a.budgetCursor > 0 {
				a.budgetCursor--
			}
		case "n":
			a.startForm(formBudget)
		case "d":
			return a, a.deleteSelectedBudgetRule()
		case "r":
			return a, a.loadBudgets()
		}
	case viewImport:
		if m.String() == "enter" {
			a.mode = modeImportPath
			a.inputBuffer = a.importPath
		}
	case viewSettings:
		if m.String() == "X" {
			a.mode = modeConfirmReset
			a.status = warnStyle.Render("wipe ALL data? press Y to confirm")
		}
	}
	return a, nil
}

func (a *App) handleImportInput(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEnter:
		a.mode = modeNone
		a.importPath = strings.TrimSpace(a.inputBuffer)
		if a.importPath == "" {
			return a, nil
		}
		a.status = dimStyle.Render("importing " + a.importPath)
		return a, a.runImport(a.importPath)
	case tea.KeyEsc:
		a.mode = modeNone
		return a, nil
	case tea.KeyBackspace:
		if len(a.inputBuffer) > 0 {
			a.inputBuffer = a.inputBuffer[:len(a.inputBuffer)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		a.inputBuffer += string(m.Runes)
	}
	return a, nil
}

func (a *App) sortTxns() {
	less := comparatorFor(a.txSort)
	sort.SliceStable(a.txns, func(i, j int) bool { return less(a.txns[i], a.txns[j]) })
}

func (a *App) refreshFor(v viewState) tea.Cmd {
	switch v {
	case viewAccounts:
		return a.loadAccounts()
	case viewTransactions:
		return a.loadTransactions()
	case viewBudgets:
		return a.loadBudgets()
	}
	return nil
}

func (a *App) currentMonth() string {
	return time.Now().In(a.loc).Format("2006-01")
}

func (a *App) selectedAccount() (repository.Account, bool) {
	if a.acctCursor < 0 || a.acctCursor >= len(a.accounts) {
		return repository.Account{}, false
	}
	return a.accounts[a.acctCursor].Account, true
}

func nextView(v viewState) viewState {
	for i, candidate := range viewOrder {
		if candidate == v {
			return viewOrder[(i+1)%len(viewOrder)]
		}
	}
	return viewOrder[0]
}

func renderErr(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not found: " + err.Error()
	case errors.Is(err, repository.ErrConflict):
		return "name taken: " + err.Error()
	case errors.Is(err, repository.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, repository.ErrHasTransactions):
		return "account still has transactions (use cascade)"
	case errors.Is(err, repository.ErrHasChildren):
		return "category has children; delete them first"
	default:
		return "database error: " + err.Error()
	}
}

// ---- view ----

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("pennyjar"))
	b.WriteString("  ")
	for _, v := range viewOrder {
		style := tabStyle
		if v == a.view {
			style = activeTab
		}
		b.WriteString(style.Render(string(v)))
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	switch a.view {
	case viewAccounts:
		b.WriteString(a.viewAccounts())
	case viewTransactions:
		b.WriteString(a.viewTransactions())
	case viewBudgets:
		b.WriteString(a.viewBudgets())
	case viewImport:
		b.WriteString(a.viewImport())
	case viewSettings:
		b.WriteString(a.viewSettings())
	}

	b.WriteString("\n")
	if a.mode == modeForm && a.form != nil {
		b.WriteString(a.form.prompt())
		b.WriteString(a.inputBuffer)
		b.WriteString("▌\n")
		if hints := a.payeeHints(); len(hints) > 0 {
			b.WriteString(dimStyle.Render("did you mean: " + strings.Join(hints, ", ")))
			b.WriteString("\n")
		}
	}
	if a.status != "" {
		b.WriteString(a.status)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("tab: next view  j/k: move  n: new  r: refresh  q: quit"))
	return b.String()
}

func (a *App) viewAccounts() string {
	if len(a.accounts) == 0 {
		return dimStyle.Render("no accounts yet")
	}
	var b strings.Builder
	for i, item := range a.accounts {
		line := fmt.Sprintf("%-24s %-13s %12s  mtd %12s",
			item.Account.Name, item.Account.Type,
			a.money(item.BalanceCents), a.money(item.MTDNetCents))
		if i == a.acctCursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(a.series) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("balance %s → %s: %s → %s",
			a.series[0].Date, a.series[len(a.series)-1].Date,
			a.money(a.series[0].BalanceCents), a.money(a.series[len(a.series)-1].BalanceCents))))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewTransactions() string {
	acct, ok := a.selectedAccount()
	if !ok {
		return dimStyle.Render("select an account first")
	}
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s — sorted by %s  (s: column, o: order, c: categorize, p: payee, m: transfer, d: delete)", acct.Name, a.txSort.column)))
	b.WriteString("\n")
	if len(a.txns) == 0 {
		b.WriteString(dimStyle.Render("no transactions"))
		return b.String()
	}
	for i, t := range a.txns {
		amountStyle := expenseStyle
		switch t.Type {
		case repository.TxnIncome:
			amountStyle = incomeStyle
		case repository.TxnTransfer:
			amountStyle = transferStyle
		}
		line := fmt.Sprintf("%s  %s %-28s %-32s",
			t.EffectiveDate(),
			amountStyle.Render(fmt.Sprintf("%12s", a.money(signedCents(t)))),
			truncate(t.Payee, 28),
			t.CategoryDisplay)
		if i == a.txCursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewBudgets() string {
	if len(a.budgets) == 0 {
		return dimStyle.Render("no budget rules in effect this month")
	}
	var b strings.Builder
	for i, item := range a.budgets {
		var tier lipgloss.Style
		switch {
		case item.Bps <= repository.TierNominalMaxBps:
			tier = nominalStyle
		case item.Bps <= repository.TierWarningMaxBps:
			tier = warnStyle
		default:
			tier = overStyle
		}
		line := fmt.Sprintf("%-32s %12s / %-12s %s",
			item.Display, a.money(item.SpentCents), a.money(item.LimitCents),
			tier.Render(fmt.Sprintf("%d.%02d%%", item.Bps/100, item.Bps%100)))
		if i == a.budgetCursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("n: set rule  d: drop rule for this month"))
	return b.String()
}

func (a *App) viewImport() string {
	var b strings.Builder
	if a.mode == modeImportPath {
		b.WriteString("csv path: ")
		b.WriteString(a.inputBuffer)
		b.WriteString("▌\n")
	} else {
		b.WriteString(dimStyle.Render("enter: choose a csv statement to import"))
		b.WriteString("\n")
	}
	if a.lastImport != nil {
		b.WriteString(fmt.Sprintf("last import: %d imported, %d skipped\n",
			a.lastImport.Imported, a.lastImport.Skipped))
	}
	b.WriteString(dimStyle.Render("card statements route by card last-4; bank statements land in the selected account"))
	return b.String()
}

func (a *App) viewSettings() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("database: %s\n", a.cfg.Database.Path))
	b.WriteString(fmt.Sprintf("timezone: %s\n", a.loc.String()))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render("X: wipe all data"))
	return b.String()
}

func (a *App) money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, a.cfg.UI.CurrencySymbol, cents/100, cents%100)
}

func signedCents(t repository.TxnRow) int64 {
	switch {
	case t.Type == repository.TxnExpense, t.IsOutflowLeg():
		return -t.AmountCents
	default:
		return t.AmountCents
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
