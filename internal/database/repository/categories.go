package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Max rune count for display names; longer names are truncated for lists.
const maxDisplayLen = 32

// CategoryRepo handles categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// GetOrCreate finds or creates a category by its (type, name, parent) key.
// A second process racing to create the same row is tolerated: a uniqueness
// violation on insert falls back to re-querying instead of failing.
func (r *CategoryRepo) GetOrCreate(ctx context.Context, ctype CategoryType, name string, parentID int64) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: category name required", ErrInvalidInput)
	}
	if _, ok := ParseCategoryType(string(ctype)); !ok {
		return Category{}, fmt.Errorf("%w: unknown category type %q", ErrInvalidInput, ctype)
	}
	if parentID > 0 {
		parent, err := r.Get(ctx, parentID)
		if err != nil {
			return Category{}, err
		}
		if parent.Type != ctype {
			return Category{}, fmt.Errorf("%w: parent category type %s does not match %s", ErrInvalidInput, parent.Type, ctype)
		}
		if parent.ParentID > 0 {
			return Category{}, fmt.Errorf("%w: category hierarchy is one level deep", ErrInvalidInput)
		}
	} else {
		parentID = 0
	}

	if c, err := r.find(ctx, ctype, name, parentID); err == nil {
		return c, nil
	} else if err != sql.ErrNoRows {
		return Category{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories(name, type, parent_id) VALUES (?, ?, ?)`,
		name, string(ctype), nullableID(parentID))
	if err != nil {
		if isUniqueViolation(err) {
			// lost the race; the row exists now
			return r.findStrict(ctx, ctype, name, parentID)
		}
		return Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Category{}, err
	}
	return Category{ID: id, Name: name, Type: ctype, ParentID: parentID}, nil
}

func (r *CategoryRepo) find(ctx context.Context, ctype CategoryType, name string, parentID int64) (Category, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, name, type, COALESCE(parent_id, 0) FROM categories
	WHERE type = ? AND name = ? AND COALESCE(parent_id, 0) = ?`,
		string(ctype), name, parentID)
	return scanCategory(row)
}

func (r *CategoryRepo) findStrict(ctx context.Context, ctype CategoryType, name string, parentID int64) (Category, error) {
	c, err := r.find(ctx, ctype, name, parentID)
	if err == sql.ErrNoRows {
		return Category{}, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return c, err
}

func (r *CategoryRepo) Get(ctx context.Context, id int64) (Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, COALESCE(parent_id, 0) FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return c, err
}

// List returns all categories ordered by type then display name.
func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT c.id, c.name, c.type, COALESCE(c.parent_id, 0)
	FROM categories c
	LEFT JOIN categories p ON p.id = c.parent_id
	ORDER BY c.type, COALESCE(p.name || ':', '') || c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DisplayName returns "Parent:Child" for parented categories.
func (r *CategoryRepo) DisplayName(ctx context.Context, id int64) (string, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT COALESCE(p.name || ':', '') || c.name
	FROM categories c LEFT JOIN categories p ON p.id = c.parent_id
	WHERE c.id = ?`, id)
	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return "", err
	}
	return TruncateDisplay(name), nil
}

// Delete removes a category. Parents with children are rejected
// unconditionally. Linked transactions are reassigned to replacementID
// first (<= 0 means uncategorized), atomically with the delete.
func (r *CategoryRepo) Delete(ctx context.Context, id int64, replacementID int64) error {
	if replacementID == id {
		return fmt.Errorf("%w: replacement category equals deleted category", ErrInvalidInput)
	}
	return withTx(r.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		var children int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id).Scan(&children); err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("category %d: %w", id, ErrHasChildren)
		}
		if replacementID > 0 {
			var n int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM categories WHERE id = ?`, replacementID).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("replacement category %d: %w", replacementID, ErrNotFound)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category_id = ? WHERE category_id = ?`,
			nullableID(replacementID), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		return err
	})
}

// TruncateDisplay bounds a name to the list column width.
func TruncateDisplay(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDisplayLen {
		return s
	}
	return string(runes[:maxDisplayLen-1]) + "…"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (Category, error) {
	var c Category
	var typ string
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.ParentID); err != nil {
		return Category{}, err
	}
	c.Type = CategoryType(typ)
	return c, nil
}

func nullableID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
