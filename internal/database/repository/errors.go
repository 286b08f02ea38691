package repository

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Error taxonomy surfaced to callers. The UI distinguishes these with
// errors.Is; anything else is a storage error.
var (
	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("already exists")
	// ErrInvalidInput means the record was rejected before any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrHasTransactions blocks non-cascading deletes of accounts that
	// still own transactions.
	ErrHasTransactions = errors.New("account has transactions")
	// ErrHasChildren blocks deletion of a parent category.
	ErrHasChildren = errors.New("category has children")
)

// isUniqueViolation reports whether err is a sqlite uniqueness failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a sqlite FK failure.
func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
