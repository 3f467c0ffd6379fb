// Package memory provides an in-process implementation of storage.ExpenseStore.
// State lives for the lifetime of the Store value and is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.ExpenseStore
var _ storage.ExpenseStore = (*Store)(nil)

// Store keeps expenses in a slice, preserving insertion order.
type Store struct {
	mu    sync.Mutex
	items []models.Expense
	now   func() time.Time
}

// New creates a store holding copies of the seed expenses.
// Seed entries with duplicate IDs are rejected.
func New(seed []models.Expense) (*Store, error) {
	s := &Store{now: time.Now}
	for _, e := range seed {
		if s.indexOf(e.ID) >= 0 {
			return nil, fmt.Errorf("seed expense %s: %w", e.ID, storage.ErrDuplicateID)
		}
		s.items = append(s.items, e.Clone())
	}
	return s, nil
}

// GetExpenses returns copies of all expenses.
func (s *Store) GetExpenses(_ context.Context) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Expense, len(s.items))
	for i, e := range s.items {
		out[i] = e.Clone()
	}
	return out, nil
}

// GetExpense returns a copy of one expense.
func (s *Store) GetExpense(_ context.Context, id string) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Expense{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return s.items[i].Clone(), nil
}

// AddExpense appends the expense.
func (s *Store) AddExpense(_ context.Context, expense models.Expense) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := expense.Clone()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if s.indexOf(e.ID) >= 0 {
		return models.Expense{}, fmt.Errorf("%w: %s", storage.ErrDuplicateID, e.ID)
	}
	if e.CreatedAt == "" {
		e.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	s.items = append(s.items, e)
	return e.Clone(), nil
}

// DeleteExpense removes the expense if present.
func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return nil
}

// UpdateExpense applies the patch in place.
func (s *Store) UpdateExpense(_ context.Context, id string, patch models.ExpensePatch) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Expense{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	updated := patch.Apply(s.items[i])
	updated.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	s.items[i] = updated
	return updated.Clone(), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// indexOf returns the position of the expense with id, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
