// Package sqlite provides a SQLite-backed implementation of the storage.ExpenseStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlitedriver "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.ExpenseStore
var _ storage.ExpenseStore = (*Store)(nil)

// Store implements storage.ExpenseStore using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedIfEmpty inserts the given expenses when the database holds none.
// It reports whether seeding happened.
func (s *Store) SeedIfEmpty(ctx context.Context, seed []models.Expense) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count expenses: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	for _, e := range seed {
		if _, err := s.AddExpense(ctx, e); err != nil {
			return false, fmt.Errorf("failed to seed expense %s: %w", e.ID, err)
		}
	}
	return len(seed) > 0, nil
}

// GetExpenses returns all expenses in insertion order.
func (s *Store) GetExpenses(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, amount, date, group_id, paid_by_id, paid_by_name, created_at, updated_at
		 FROM expenses ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	index := make(map[string]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splitRows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, amount FROM expense_splits ORDER BY expense_id, position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var split models.Split
		if err := splitRows.Scan(&expenseID, &split.UserID, &split.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].Splits = append(expenses[i].Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return expenses, nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *Store) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	return s.getExpense(ctx, s.db, id)
}

// AddExpense persists a new expense and its splits.
func (s *Store) AddExpense(ctx context.Context, expense models.Expense) (models.Expense, error) {
	e := expense.Clone()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = s.timestamp()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, date, group_id, paid_by_id, paid_by_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount, e.Date, e.GroupID, e.PaidBy.ID, e.PaidBy.Name, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Expense{}, fmt.Errorf("%w: %s", storage.ErrDuplicateID, e.ID)
		}
		return models.Expense{}, fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertSplits(ctx, tx, e.ID, e.Splits); err != nil {
		return models.Expense{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Expense{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return e, nil
}

// DeleteExpense removes an expense; its splits cascade.
// Deleting a missing ID succeeds without doing anything.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// UpdateExpense applies patch to an existing expense.
func (s *Store) UpdateExpense(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getExpense(ctx, tx, id)
	if err != nil {
		return models.Expense{}, err
	}

	updated := patch.Apply(current)
	updated.UpdatedAt = s.timestamp()

	_, err = tx.ExecContext(ctx,
		"UPDATE expenses SET description = ?, amount = ?, updated_at = ? WHERE id = ?",
		updated.Description, updated.Amount, updated.UpdatedAt, id,
	)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to update expense: %w", err)
	}

	if patch.Splits != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", id); err != nil {
			return models.Expense{}, fmt.Errorf("failed to clear splits: %w", err)
		}
		if err := insertSplits(ctx, tx, id, updated.Splits); err != nil {
			return models.Expense{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Expense{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) getExpense(ctx context.Context, q queryer, id string) (models.Expense, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, description, amount, date, group_id, paid_by_id, paid_by_name, created_at, updated_at
		 FROM expenses WHERE id = ?`,
		id,
	)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return models.Expense{}, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT user_id, amount FROM expense_splits WHERE expense_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.UserID, &split.Amount); err != nil {
			return models.Expense{}, fmt.Errorf("failed to scan split: %w", err)
		}
		e.Splits = append(e.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return models.Expense{}, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(
		&e.ID,
		&e.Description,
		&e.Amount,
		&e.Date,
		&e.GroupID,
		&e.PaidBy.ID,
		&e.PaidBy.Name,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}
	return e, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, expenseID string, splits []models.Split) error {
	for i, split := range splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, position, user_id, amount) VALUES (?, ?, ?, ?)",
			expenseID, i, split.UserID, split.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
