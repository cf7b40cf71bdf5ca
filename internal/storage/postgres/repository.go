// Package postgres implements storage.Store on PostgreSQL through a pgx
// connection pool. Selected with DATA_BACKEND=postgres; schema lives in
// embedded migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

// foreignKeyViolation is the PostgreSQL SQLSTATE for a violated foreign key
// constraint.
const foreignKeyViolation = "23503"

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(ctx context.Context, connStr string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(connStr); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func isForeignKeyErr(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func (r *Repository) CreateUser(ctx context.Context, name, email string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`,
		name, email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY name ASC`,
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
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
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
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2 AND user_id = $3`, name, id, userID)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, userID int64, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) GetCategoryName(ctx context.Context, id string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM categories WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := r.pool.Exec(ctx,
		`INSERT INTO expenses (id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, e.Merchant, e.Date, e.CategoryID, e.Notes, e.CreatedAt)
	if err != nil {
		if isForeignKeyErr(err) {
			return core.Expense{}, fmt.Errorf("create expense: %w", core.ErrForeignKeyViolation)
		}
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (r *Repository) GetExpense(ctx context.Context, userID int64, id string) (core.Expense, error) {
	var e core.Expense
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at
		 FROM expenses WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.Merchant, &e.Date, &e.CategoryID, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID int64, limit, offset int) (storage.ExpensePage, error) {
	var page storage.ExpensePage

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM expenses WHERE user_id = $1`, userID).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count expenses: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at
		 FROM expenses WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return page, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.Merchant, &e.Date, &e.CategoryID, &e.Notes, &e.CreatedAt); err != nil {
			return page, fmt.Errorf("scan expense: %w", err)
		}
		page.Items = append(page.Items, e)
	}
	return page, rows.Err()
}

func (r *Repository) UpdateExpense(ctx context.Context, userID int64, id string, patch core.ExpensePatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Amount != nil {
		add("amount_cents", patch.Amount.Cents)
	}
	if patch.Merchant != nil {
		add("merchant", *patch.Merchant)
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.ClearCategory {
		sets = append(sets, "category_id = NULL")
	} else if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE expenses SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("update expense: %w", core.ErrForeignKeyViolation)
		}
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID int64, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// BulkInsertExpenses queues every insert into one pgx batch and sends it
// inside a single transaction.
func (r *Repository) BulkInsertExpenses(ctx context.Context, rows []core.Expense) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, e := range rows {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		batch.Queue(
			`INSERT INTO expenses (id, user_id, title, amount_cents, merchant, date, category_id, notes, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.UserID, e.Title, e.Amount.Cents, e.Merchant, e.Date, e.CategoryID, e.Notes, e.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isForeignKeyErr(err) {
				return 0, fmt.Errorf("bulk insert expense: %w", core.ErrForeignKeyViolation)
			}
			return 0, fmt.Errorf("bulk insert expense: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close bulk insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", err)
	}
	return len(rows), nil
}

func (r *Repository) CountExpenses(ctx context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	query := `SELECT COUNT(*) FROM expenses WHERE user_id = $1`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, dr.From, dr.To)
	}
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *Repository) SumExpenses(ctx context.Context, userID int64, dr *storage.DateRange) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = $1`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, dr.From, dr.To)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (r *Repository) GroupSumByCategory(ctx context.Context, userID int64, dr *storage.DateRange) ([]storage.CategorySum, error) {
	query := `SELECT category_id, COALESCE(SUM(amount_cents), 0) AS total
		 FROM expenses WHERE user_id = $1`
	args := []any{userID}
	if dr != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, dr.From, dr.To)
	}
	query += ` GROUP BY category_id ORDER BY total DESC, category_id ASC NULLS FIRST`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group sum by category: %w", err)
	}
	defer rows.Close()

	var sums []storage.CategorySum
	for rows.Next() {
		var cs storage.CategorySum
		if err := rows.Scan(&cs.CategoryID, &cs.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, cs)
	}
	return sums, rows.Err()
}

func (r *Repository) UpsertMonthlySummary(ctx context.Context, s core.MonthlySummary) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO monthly_summaries (user_id, year, month, total_cents, expense_count, top_category_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, year, month) DO UPDATE SET
		   total_cents = EXCLUDED.total_cents,
		   expense_count = EXCLUDED.expense_count,
		   top_category_id = EXCLUDED.top_category_id,
		   updated_at = EXCLUDED.updated_at`,
		s.UserID, s.Year, s.Month, s.Total.Cents, s.ExpenseCount, s.TopCategoryID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert monthly summary: %w", err)
	}
	return nil
}

func (r *Repository) GetMonthlySummary(ctx context.Context, userID int64, year, month int) (core.MonthlySummary, error) {
	var s core.MonthlySummary
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, year, month, total_cents, expense_count, top_category_id, updated_at
		 FROM monthly_summaries WHERE user_id = $1 AND year = $2 AND month = $3`,
		userID, year, month).
		Scan(&s.UserID, &s.Year, &s.Month, &s.Total.Cents, &s.ExpenseCount, &s.TopCategoryID, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MonthlySummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("get monthly summary: %w", err)
	}
	return s, nil
}
