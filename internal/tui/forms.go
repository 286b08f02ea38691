package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfenwick/pennyjar/internal/database"
	"github.com/mfenwick/pennyjar/internal/database/repository"
	"github.com/mfenwick/pennyjar/internal/service"
)

// Multi-step prompt forms. Each form is a sequence of text prompts; enter
// advances, esc cancels, and the final enter submits the collected values.

type formKind string

const (
	formNewAccount formKind = "newAccount"
	formTransfer   formKind = "transfer"
	formCategorize formKind = "categorize"
	formEditPayee  formKind = "editPayee"
	formBudget     formKind = "budget"
)

type form struct {
	kind    formKind
	prompts []string
	values  []string
	target  repository.TxnRow // selected transaction, when the form edits one
}

func (f *form) prompt() string {
	return f.prompts[len(f.values)]
}

func (f *form) done() bool {
	return len(f.values) == len(f.prompts)
}

func (a *App) startForm(kind formKind) {
	var prompts []string
	var target repository.TxnRow
	switch kind {
	case formNewAccount:
		prompts = []string{
			"account name: ",
			fmt.Sprintf("type (%s): ", joinAccountTypes()),
			"card last-4 (blank for none): ",
		}
	case formTransfer:
		prompts = []string{"to account name: ", "amount: ", "date (blank for today): "}
	case formCategorize:
		if a.txCursor >= len(a.txns) {
			return
		}
		target = a.txns[a.txCursor]
		if target.Type == repository.TxnTransfer {
			a.status = dimStyle.Render("transfers carry no category")
			return
		}
		prompts = []string{"category (Parent > Child): "}
	case formEditPayee:
		if a.txCursor >= len(a.txns) {
			return
		}
		target = a.txns[a.txCursor]
		if target.Type == repository.TxnTransfer {
			a.status = dimStyle.Render("transfers carry no payee")
			return
		}
		prompts = []string{"payee: "}
	case formBudget:
		prompts = []string{"category (Parent > Child): ", "month (YYYY-MM): ", "monthly limit: "}
	}
	a.mode = modeForm
	a.form = &form{kind: kind, prompts: prompts, target: target}
	a.inputBuffer = ""
}

func (a *App) handleFormInput(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.mode = modeNone
		a.form = nil
		a.status = dimStyle.Render("cancelled")
		return a, nil
	case tea.KeyBackspace:
		if len(a.inputBuffer) > 0 {
			runes := []rune(a.inputBuffer)
			a.inputBuffer = string(runes[:len(runes)-1])
		}
		return a, nil
	case tea.KeyRunes, tea.KeySpace:
		a.inputBuffer += string(m.Runes)
		return a, nil
	case tea.KeyEnter:
		a.form.values = append(a.form.values, strings.TrimSpace(a.inputBuffer))
		a.inputBuffer = ""
		if !a.form.done() {
			return a, nil
		}
		f := a.form
		a.form = nil
		a.mode = modeNone
		return a, a.submitForm(f)
	}
	return a, nil
}

func (a *App) submitForm(f *form) tea.Cmd {
	switch f.kind {
	case formNewAccount:
		return a.submitNewAccount(f.values[0], f.values[1], f.values[2])
	case formTransfer:
		return a.submitTransfer(f.values[0], f.values[1], f.values[2])
	case formCategorize:
		return a.submitCategorize(f.target, f.values[0])
	case formEditPayee:
		return a.submitEditPayee(f.target, f.values[0])
	case formBudget:
		return a.submitBudget(f.values[0], f.values[1], f.values[2])
	}
	return nil
}

func (a *App) submitNewAccount(name, typ, last4 string) tea.Cmd {
	return func() tea.Msg {
		acctType, ok := repository.ParseAccountType(typ)
		if !ok {
			return errMsg{fmt.Errorf("%w: account type must be one of %s", repository.ErrInvalidInput, joinAccountTypes())}
		}
		_, err := a.repos.Accounts.Insert(a.ctx, repository.Account{
			Name: name, Type: acctType, CardLast4: last4,
		})
		if err != nil {
			return errMsg{err}
		}
		return statusMsg("account created: " + name)
	}
}

func (a *App) submitTransfer(toName, amount, date string) tea.Cmd {
	from, ok := a.selectedAccount()
	if !ok {
		return func() tea.Msg { return errMsg{fmt.Errorf("select a source account first")} }
	}
	return func() tea.Msg {
		to, err := a.accountByName(toName)
		if err != nil {
			return errMsg{err}
		}
		cents, err := service.ParseCents(amount)
		if err != nil {
			return errMsg{err}
		}
		if cents < 0 {
			cents = -cents
		}
		if date == "" {
			date = database.Today(a.loc)
		}
		_, err = a.repos.Transactions.InsertTransfer(a.ctx, repository.Transaction{
			AccountID: from.ID, AmountCents: cents, Date: date,
		}, to.ID)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("transferred %s to %s", a.money(cents), to.Name))
	}
}

// submitCategorize sets the selected transaction's category and then offers
// the same category to every uncategorized transaction with the same payee.
func (a *App) submitCategorize(t repository.TxnRow, path string) tea.Cmd {
	return func() tea.Msg {
		cat, err := a.categoryForPath(t.Type, path)
		if err != nil {
			return errMsg{err}
		}
		txn := t.Transaction
		txn.CategoryID = cat.ID
		if err := a.repos.Transactions.Update(a.ctx, txn); err != nil {
			return errMsg{err}
		}
		applied, err := a.repos.Transactions.ApplyCategoryToUncategorizedByPayee(a.ctx, t.Payee, t.Type, cat.ID)
		if err != nil {
			return errMsg{err}
		}
		if applied > 0 {
			return statusMsg(fmt.Sprintf("categorized, plus %d more %q transactions", applied, t.Payee))
		}
		return statusMsg("categorized")
	}
}

func (a *App) submitEditPayee(t repository.TxnRow, payee string) tea.Cmd {
	return func() tea.Msg {
		txn := t.Transaction
		txn.Payee = payee
		if err := a.repos.Transactions.Update(a.ctx, txn); err != nil {
			return errMsg{err}
		}
		return statusMsg("payee updated")
	}
}

func (a *App) submitBudget(path, month, limit string) tea.Cmd {
	return func() tea.Msg {
		cat, err := a.categoryForPath(repository.TxnExpense, path)
		if err != nil {
			return errMsg{err}
		}
		cents, err := service.ParseCents(limit)
		if err != nil {
			return errMsg{err}
		}
		if err := a.repos.Budgets.SetEffective(a.ctx, cat.ID, month, cents); err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("budget set: %s from %s", a.money(cents), month))
	}
}

func (a *App) deleteSelectedBudgetRule() tea.Cmd {
	if a.budgetCursor >= len(a.budgets) {
		return nil
	}
	item := a.budgets[a.budgetCursor]
	month := a.currentMonth()
	return func() tea.Msg {
		err := a.repos.Budgets.DeleteRule(a.ctx, item.CategoryID, month)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg("budget rule removed for " + month)
	}
}

// categoryForPath resolves "Parent > Child" (or a bare name) to a category
// of the type matching the transaction, creating missing levels.
func (a *App) categoryForPath(txnType repository.TransactionType, path string) (repository.Category, error) {
	ctype := repository.CatExpense
	if txnType == repository.TxnIncome {
		ctype = repository.CatIncome
	}
	var cat repository.Category
	var parentID int64
	for _, raw := range strings.Split(path, ">") {
		name := strings.TrimSpace(raw)
		c, err := a.repos.Categories.GetOrCreate(a.ctx, ctype, name, parentID)
		if err != nil {
			return repository.Category{}, err
		}
		cat = c
		parentID = c.ID
	}
	return cat, nil
}

func (a *App) accountByName(name string) (repository.Account, error) {
	accounts, err := a.repos.Accounts.List(a.ctx)
	if err != nil {
		return repository.Account{}, err
	}
	for _, acct := range accounts {
		if strings.EqualFold(acct.Name, name) {
			return acct, nil
		}
	}
	return repository.Account{}, fmt.Errorf("account %q: %w", name, repository.ErrNotFound)
}

// payeeHints ranks known payees near the current input while the payee form
// is open; empty outside that form.
func (a *App) payeeHints() []string {
	if a.form == nil || a.form.kind != formEditPayee || a.inputBuffer == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(a.txns))
	known := make([]string, 0, len(a.txns))
	for _, t := range a.txns {
		if t.Payee == "" {
			continue
		}
		if _, dup := seen[t.Payee]; dup {
			continue
		}
		seen[t.Payee] = struct{}{}
		known = append(known, t.Payee)
	}
	return service.SuggestPayees(a.inputBuffer, known, 3)
}

func joinAccountTypes() string {
	names := make([]string, len(repository.AccountTypes))
	for i, t := range repository.AccountTypes {
		names[i] = string(t)
	}
	return strings.Join(names, "/")
}
