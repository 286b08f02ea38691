package repository

// AccountType classifies an account.
type AccountType string

const (
	AccountCash          AccountType = "Cash"
	AccountChecking      AccountType = "Checking"
	AccountSavings       AccountType = "Savings"
	AccountCreditCard    AccountType = "CreditCard"
	AccountPhysicalAsset AccountType = "PhysicalAsset"
	AccountInvestment    AccountType = "Investment"
)

// AccountTypes lists every valid account type in display order.
var AccountTypes = []AccountType{
	AccountCash,
	AccountChecking,
	AccountSavings,
	AccountCreditCard,
	AccountPhysicalAsset,
	AccountInvestment,
}

// ParseAccountType maps a stored string back to its type.
func ParseAccountType(s string) (AccountType, bool) {
	for _, t := range AccountTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// TransactionType classifies a transaction.
type TransactionType string

const (
	TxnExpense  TransactionType = "Expense"
	TxnIncome   TransactionType = "Income"
	TxnTransfer TransactionType = "Transfer"
)

// TransactionTypes lists every valid transaction type.
var TransactionTypes = []TransactionType{TxnExpense, TxnIncome, TxnTransfer}

// ParseTransactionType maps a stored string back to its type.
func ParseTransactionType(s string) (TransactionType, bool) {
	for _, t := range TransactionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// CategoryType classifies a category.
type CategoryType string

const (
	CatExpense CategoryType = "Expense"
	CatIncome  CategoryType = "Income"
)

// CategoryTypes lists every valid category type.
var CategoryTypes = []CategoryType{CatExpense, CatIncome}

// ParseCategoryType maps a stored string back to its type.
func ParseCategoryType(s string) (CategoryType, bool) {
	for _, t := range CategoryTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Account represents an account row. CardLast4 is only meaningful for
// CreditCard accounts.
type Account struct {
	ID        int64
	Name      string
	Type      AccountType
	CardLast4 string
}

// Category represents a category row. ParentID <= 0 means top level. The
// hierarchy is exactly one level deep and a parent always shares the
// child's type.
type Category struct {
	ID       int64
	Name     string
	Type     CategoryType
	ParentID int64
}

// Transaction represents a transaction row. Amounts are stored as
// non-negative magnitudes; the sign is carried by Type. CategoryID and
// TransferID <= 0 mean absent. Dates are canonical YYYY-MM-DD strings.
type Transaction struct {
	ID             int64
	AccountID      int64
	CategoryID     int64
	Type           TransactionType
	AmountCents    int64
	Date           string
	ReflectionDate string
	Payee          string
	Description    string
	TransferID     int64
}

// EffectiveDate is the date used for ordering and window membership:
// ReflectionDate when set, else Date.
func (t Transaction) EffectiveDate() string {
	if t.ReflectionDate != "" {
		return t.ReflectionDate
	}
	return t.Date
}

// IsOutflowLeg reports whether a transfer leg subtracts from its account:
// the leg whose own id equals the shared transfer id.
func (t Transaction) IsOutflowLeg() bool {
	return t.Type == TxnTransfer && t.TransferID > 0 && t.ID == t.TransferID
}

// TxnRow is a transaction joined with its display category: "Parent:Child"
// for parented categories, the mirror account's name for transfer legs.
type TxnRow struct {
	Transaction
	CategoryDisplay string
}

// BudgetRule is a budget limit effective from Month (YYYY-MM) onward until
// superseded by a later rule.
type BudgetRule struct {
	ID         int64
	CategoryID int64
	Month      string
	LimitCents int64
}
