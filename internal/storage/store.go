// Package storage provides abstractions for expense storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when an expense ID does not exist.
	ErrNotFound = errors.New("expense not found")

	// ErrDuplicateID is returned when adding an expense whose ID is already taken.
	ErrDuplicateID = errors.New("expense id already exists")
)

// ExpenseStore defines the expense collection operations.
// This abstraction allows swapping backends (memory, SQLite)
// without changing the service layer.
//
// Expenses crossing this boundary are values: implementations never hand out
// memory they keep using, and never keep memory handed to them.
type ExpenseStore interface {
	// GetExpenses returns a snapshot of all expenses in insertion order.
	GetExpenses(ctx context.Context) ([]models.Expense, error)

	// GetExpense returns a single expense, or ErrNotFound.
	GetExpense(ctx context.Context, id string) (models.Expense, error)

	// AddExpense stores a new expense and returns the stored value.
	// An empty ID is replaced with a generated one; a taken ID fails with ErrDuplicateID.
	AddExpense(ctx context.Context, expense models.Expense) (models.Expense, error)

	// DeleteExpense removes the expense with the given ID.
	// Deleting an unknown ID is a no-op, not an error.
	DeleteExpense(ctx context.Context, id string) error

	// UpdateExpense applies patch to the expense and returns the result,
	// or ErrNotFound.
	UpdateExpense(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error)

	// Close releases any resources held by the store.
	Close() error
}
