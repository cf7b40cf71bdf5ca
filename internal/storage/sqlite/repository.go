// Package sqlite implements storage.Store on an embedded SQLite database
// using the pure-Go modernc driver. Schema lives in embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Repository struct {
	db *sql.DB
}

var _ storage.Store = (*Repository)(nil)

// NewRepository opens (creating if needed) the database at dbPath, enables
// foreign key enforcement, and applies pending migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isForeignKeyErr(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func (r *Repository) CreateUser(ctx context.Context, name, email string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email) VALUES (?, ?)`, name, email)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user id: %w", err)
	}
	return id, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = ? ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	c := core.Category{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.CreatedAt)
	if err != nil {
		if isForeignKeyErr(err) {
			return core.Category{}, fmt.Errorf("create category: %w", core.ErrForeignKeyViolation)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) RenameCategory(ctx context.Context, userID int64, id, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return requireRow(res, "rename category")
}

func (r *Repository) DeleteCategory(ctx context.Context, userID int64, id string) error {
	// Expenses referencing the category fall back to NULL via the schema's
	// ON DELETE SET NULL.
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "delete category")
}

func (r *Repository) GetCategoryName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM categories WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get category name: %w", err)
	}
	return name, nil
}

func (r *Repository) EnsureStarterCategories(ctx context.Context, userID int64) error {
	existing, err := r.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c.Name)] = true
	}

	for _, name := range core.StarterCategories() {
		if have[strings.ToLower(name)] {
			continue
		}
		if _, err := r.CreateCategory(ctx, userID, name); err != nil {
			return fmt.Errorf("seed starter category %q: %w", name, err)
		}
	}
	return nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, e.Merchant, e.Date, nullable(e.CategoryID), e.Notes, e.CreatedAt)
	if err != nil {
		if isForeignKeyErr(err) {
			return core.Expense{}, fmt.Errorf("create expense: %w", core.ErrForeignKeyViolation)
		}
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"merchant", e.Merchant,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, userID int64, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID int64, limit, offset int) (storage.ExpensePage, error) {
	var page storage.ExpensePage

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE user_id = ?`, userID).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at
		 FROM expenses WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return page, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, e)
	}
	return page, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e     core.Expense
		catID sql.NullString
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.Merchant, &e.Date, &catID, &e.Notes, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	if catID.Valid {
		e.CategoryID = &catID.String
	}
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, userID int64, id string, patch core.ExpensePatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents)
	}
	if patch.Merchant != nil {
		sets = append(sets, "merchant = ?")
		args = append(args, *patch.Merchant)
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *patch.Date)
	}
	if patch.ClearCategory {
		sets = append(sets, "category_id = NULL")
	} else if patch.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *patch.CategoryID)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...)
	if err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("update expense: %w", core.ErrForeignKeyViolation)
		}
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, "update expense")
}

func (r *Repository) DeleteExpense(ctx context.Context, userID int64, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, "delete expense")
}

// BulkInsertExpenses writes the whole batch inside one transaction so a
// concurrent reader sees either all rows or none of them.
func (r *Repository) BulkInsertExpenses(ctx context.Context, rows []core.Expense) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range rows {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.UserID, e.Title, e.Amount.Cents, e.Merchant, e.Date, nullable(e.CategoryID), e.Notes, e.CreatedAt); err != nil {
			if isForeignKeyErr(err) {
				return 0, fmt.Errorf("bulk insert expense: %w", core.ErrForeignKeyViolation)
			}
			return 0, fmt.Errorf("bulk insert expense: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", err)
	}

	slog.InfoContext(ctx, "Bulk insert committed",
		"user_id", rows[0].UserID,
		"count", len(rows))

	return len(rows), nil
}

func (r *Repository) CountExpenses(ctx context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	query := `SELECT COUNT(*) FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, dr.From, dr.To)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *Repository) SumExpenses(ctx context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, dr.From, dr.To)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (r *Repository) GroupSumByCategory(ctx context.Context, userID int64, dr *storage.DateRange) ([]storage.CategorySum, error) {
	query := `SELECT category_id, COALESCE(SUM(amount_cents), 0) AS total
		 FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, dr.From, dr.To)
	}
	query += ` GROUP BY category_id ORDER BY total DESC, category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group sum by category: %w", err)
	}
	defer rows.Close()

	var sums []storage.CategorySum
	for rows.Next() {
		var (
			catID sql.NullString
			cs    storage.CategorySum
		)
		if err := rows.Scan(&catID, &cs.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		if catID.Valid {
			cs.CategoryID = &catID.String
		}
		sums = append(sums, cs)
	}
	return sums, rows.Err()
}

func (r *Repository) UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_summaries (user_id, year, month, total_cents, expense_count, top_category_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, year, month) DO UPDATE SET
		   total_cents = excluded.total_cents,
		   expense_count = excluded.expense_count,
		   top_category_id = excluded.top_category_id,
		   updated_at = excluded.updated_at`,
		s.UserID, s.Year, s.Month, s.Total.Cents, s.ExpenseCount, nullable(s.TopCategoryID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	return nil
}

func (r *Repository) GetMonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	var (
		s     core.MonthlySummary
		catID sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, year, month, total_cents, expense_count, top_category_id, updated_at
		 FROM monthly_summaries WHERE user_id = ? AND year = ? AND month = ?`,
		userID, year, month).
		Scan(&s.UserID, &s.Year, &s.Month, &s.Total.Cents, &s.ExpenseCount, &catID, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlySummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("get monthly summary: %w", err)
	}
	if catID.Valid {
		s.TopCategoryID = &catID.String
	}
	return s, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
