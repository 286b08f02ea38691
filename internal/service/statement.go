package service

import (
	"fmt"
	"strings"

	"github.com/mfenwick/pennyjar/internal/database/repository"
)

// StatementKind classifies a parsed CSV statement.
type StatementKind string

const (
	// CreditCardStatement has a card-identifying column; rows are routed
	// to accounts by card last-4.
	CreditCardStatement StatementKind = "credit_card"
	// CheckingSavingsStatement targets a single caller-chosen account.
	CheckingSavingsStatement StatementKind = "checking_savings"
)

// ImportRow is one normalized statement line: the amount resolved to a
// magnitude plus type, dates canonical.
type ImportRow struct {
	Date        string
	AmountCents int64
	Type        repository.TransactionType
	Payee       string
	Description string
	CardLast4   string
}

// Header vocabulary. Matching is case-insensitive on trimmed names; the
// card column is the only substring match (any header containing "card").
var (
	dateHeaders     = []string{"date", "transaction date"}
	amountHeaders   = []string{"amount", "transaction amount"}
	typeHeaders     = []string{"type", "transaction type"}
	payeeHeaders    = []string{"description", "memo", "payee", "merchant"}
	longDescHeaders = []string{"transaction description"}
)

type columnIndexes struct {
	date     int
	card     int
	debit    int
	credit   int
	amount   int
	typ      int
	payee    int
	longDesc int
}

func mapHeader(header []string) columnIndexes {
	cols := columnIndexes{date: -1, card: -1, debit: -1, credit: -1, amount: -1, typ: -1, payee: -1, longDesc: -1}
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case matchesAny(name, longDescHeaders):
			setIfUnset(&cols.longDesc, i)
		case matchesAny(name, dateHeaders):
			setIfUnset(&cols.date, i)
		case matchesAny(name, amountHeaders):
			setIfUnset(&cols.amount, i)
		case matchesAny(name, typeHeaders):
			setIfUnset(&cols.typ, i)
		case matchesAny(name, payeeHeaders):
			setIfUnset(&cols.payee, i)
		case name == "debit":
			setIfUnset(&cols.debit, i)
		case name == "credit":
			setIfUnset(&cols.credit, i)
		case strings.Contains(name, "card"):
			setIfUnset(&cols.card, i)
		}
	}
	return cols
}

// ClassifyStatement decides the statement kind from its header row: a
// card-identifying column makes it a credit-card statement.
func ClassifyStatement(header []string) StatementKind {
	if mapHeader(header).card >= 0 {
		return CreditCardStatement
	}
	return CheckingSavingsStatement
}

// ParseStatement turns tokenized CSV records (header first) into normalized
// import rows. Rows that cannot be parsed abort the whole statement; a
// statement either normalizes completely or not at all.
func ParseStatement(records [][]string) (StatementKind, []ImportRow, error) {
	if len(records) == 0 {
		return "", nil, fmt.Errorf("%w: empty statement", repository.ErrInvalidInput)
	}
	cols := mapHeader(records[0])
	kind := CheckingSavingsStatement
	if cols.card >= 0 {
		kind = CreditCardStatement
	}
	if cols.date < 0 {
		return "", nil, fmt.Errorf("%w: statement has no date column", repository.ErrInvalidInput)
	}
	if cols.amount < 0 && cols.debit < 0 && cols.credit < 0 {
		return "", nil, fmt.Errorf("%w: statement has no amount column", repository.ErrInvalidInput)
	}

	rows := make([]ImportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(kind, cols, rec)
		if err != nil {
			return "", nil, fmt.Errorf("statement line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return kind, rows, nil
}

func parseRecord(kind StatementKind, cols columnIndexes, rec []string) (ImportRow, error) {
	date, err := repository.NormalizeDate(field(rec, cols.date))
	if err != nil {
		return ImportRow{}, err
	}
	row := ImportRow{
		Date:        date,
		Payee:       strings.TrimSpace(field(rec, cols.payee)),
		Description: strings.TrimSpace(field(rec, cols.longDesc)),
	}
	if cols.card >= 0 {
		row.CardLast4 = last4Digits(field(rec, cols.card))
	}

	var cents int64
	switch {
	case cols.debit >= 0 && strings.TrimSpace(field(rec, cols.debit)) != "":
		magnitude, err := ParseCents(field(rec, cols.debit))
		if err != nil {
			return ImportRow{}, err
		}
		cents = -abs64(magnitude)
	case cols.credit >= 0 && strings.TrimSpace(field(rec, cols.credit)) != "":
		magnitude, err := ParseCents(field(rec, cols.credit))
		if err != nil {
			return ImportRow{}, err
		}
		cents = abs64(magnitude)
	case cols.amount >= 0:
		cents, err = ParseCents(field(rec, cols.amount))
		if err != nil {
			return ImportRow{}, err
		}
	default:
		return ImportRow{}, fmt.Errorf("%w: no amount value", repository.ErrInvalidInput)
	}

	row.Type = resolveRowType(kind, field(rec, cols.typ), cents)
	row.AmountCents = abs64(cents)
	if row.AmountCents == 0 {
		return ImportRow{}, fmt.Errorf("%w: zero amount", repository.ErrInvalidInput)
	}
	return row, nil
}

// resolveRowType decides Income vs Expense. An explicit type column always
// wins over the numeric sign; the sign is only consulted when the statement
// has no recognizable type value. Credit-card statements read a positive
// amount as a charge, bank statements as a deposit.
func resolveRowType(kind StatementKind, explicit string, cents int64) repository.TransactionType {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "income", "credit", "deposit":
		return repository.TxnIncome
	case "expense", "debit", "withdrawal", "purchase":
		return repository.TxnExpense
	}
	if kind == CreditCardStatement {
		if cents >= 0 {
			return repository.TxnExpense
		}
		return repository.TxnIncome
	}
	if cents >= 0 {
		return repository.TxnIncome
	}
	return repository.TxnExpense
}

// ParseCents parses a currency string into exact signed cents. Dollar
// signs, thousands separators, surrounding whitespace, parenthesized
// negatives and a leading minus are accepted. At most two fractional
// digits; a single digit is padded with a trailing zero. No floats, so no
// rounding ambiguity.
func ParseCents(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty amount", repository.ErrInvalidInput)
	}
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimSpace(raw)

	intPart := raw
	fracPart := ""
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		intPart, fracPart = raw[:dot], raw[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("%w: malformed amount %q", repository.ErrInvalidInput, s)
	}
	if intPart == "" {
		intPart = "0"
	}
	switch len(fracPart) {
	case 0:
		fracPart = "00"
	case 1:
		fracPart += "0"
	case 2:
	default:
		return 0, fmt.Errorf("%w: more than two fractional digits in %q", repository.ErrInvalidInput, s)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, fmt.Errorf("%w: malformed amount %q", repository.ErrInvalidInput, s)
	}
	if trimmed := strings.TrimLeft(intPart, "0"); trimmed != "" {
		intPart = trimmed
	} else {
		intPart = "0"
	}
	// 18 significant digits keep the walk below int64 range
	if len(intPart)+len(fracPart) > 18 {
		return 0, fmt.Errorf("%w: amount %q out of range", repository.ErrInvalidInput, s)
	}

	var cents int64
	for _, c := range intPart + fracPart {
		cents = cents*10 + int64(c-'0')
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

func matchesAny(name string, vocab []string) bool {
	for _, v := range vocab {
		if name == v {
			return true
		}
	}
	return false
}

func setIfUnset(dst *int, i int) {
	if *dst < 0 {
		*dst = i
	}
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func last4Digits(s string) string {
	var digits []rune
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
