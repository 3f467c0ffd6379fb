// Package storagetest holds behaviour tests shared by every
// storage.ExpenseStore implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Factory builds a fresh store holding the given seed expenses.
type Factory func(t *testing.T, seed []models.Expense) storage.ExpenseStore

// Seed returns the expenses every test starts from.
func Seed() []models.Expense {
	return []models.Expense{
		{
			ID:          "e1",
			Description: "Dinner",
			Amount:      120,
			Date:        "2024-05-01T19:30:00Z",
			GroupID:     "g1",
			PaidBy:      models.User{ID: "2", Name: "Jane Roe"},
			Splits: []models.Split{
				{UserID: "1", Amount: 60},
				{UserID: "2", Amount: 80},
			},
		},
		{
			ID:          "e2",
			Description: "Taxi",
			Amount:      30,
			Date:        "2024-05-02T08:00:00Z",
			GroupID:     "g1",
			PaidBy:      models.User{ID: "1", Name: "John Doe"},
			Splits: []models.Split{
				{UserID: "1", Amount: 15},
				{UserID: "2", Amount: 15},
			},
		},
	}
}

// Run exercises the ExpenseStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("GetExpenses returns seed in order", func(t *testing.T) {
		store := newStore(t, Seed())
		got, err := store.GetExpenses(ctx)
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
			t.Fatalf("unexpected expenses: %+v", got)
		}
		e1 := got[0]
		if e1.Description != "Dinner" || e1.Amount != 120 || e1.GroupID != "g1" ||
			e1.PaidBy.ID != "2" || e1.PaidBy.Name != "Jane Roe" || e1.Date != "2024-05-01T19:30:00Z" {
			t.Errorf("e1 fields not preserved: %+v", e1)
		}
		if len(e1.Splits) != 2 || e1.Splits[0] != (models.Split{UserID: "1", Amount: 60}) ||
			e1.Splits[1] != (models.Split{UserID: "2", Amount: 80}) {
			t.Errorf("e1 splits not preserved: %+v", e1.Splits)
		}
	})

	t.Run("GetExpenses returns a snapshot", func(t *testing.T) {
		store := newStore(t, Seed())
		got, _ := store.GetExpenses(ctx)
		got[0].Description = "mutated"
		got[0].Splits[0].Amount = 999

		again, _ := store.GetExpenses(ctx)
		if len(again) != 2 {
			t.Fatalf("store lost entries after caller mutation: %d", len(again))
		}
		if again[0].Description != "Dinner" || again[0].Splits[0].Amount != 60 {
			t.Errorf("caller mutation leaked into store: %+v", again[0])
		}
	})

	t.Run("AddExpense then GetExpenses contains it once", func(t *testing.T) {
		store := newStore(t, Seed())
		added, err := store.AddExpense(ctx, models.Expense{
			ID:          "e3",
			Description: "Hotel",
			Amount:      200,
			Date:        "2024-05-03T12:00:00Z",
			GroupID:     "g1",
			PaidBy:      models.User{ID: "1", Name: "John Doe"},
			Splits:      []models.Split{{UserID: "1", Amount: 100}, {UserID: "2", Amount: 100}},
		})
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if added.ID != "e3" {
			t.Errorf("ID = %q, want e3", added.ID)
		}
		if added.CreatedAt == "" {
			t.Error("expected CreatedAt to be set")
		}

		all, _ := store.GetExpenses(ctx)
		if n := count(all, "e3"); n != 1 {
			t.Errorf("found e3 %d times, want 1", n)
		}
		if all[len(all)-1].ID != "e3" {
			t.Errorf("new expense should be appended last, got %q", all[len(all)-1].ID)
		}
	})

	t.Run("AddExpense rejects duplicate ID", func(t *testing.T) {
		store := newStore(t, Seed())
		_, err := store.AddExpense(ctx, models.Expense{ID: "e1", Description: "dup", Amount: 1})
		if !errors.Is(err, storage.ErrDuplicateID) {
			t.Fatalf("error = %v, want ErrDuplicateID", err)
		}
		all, _ := store.GetExpenses(ctx)
		if n := count(all, "e1"); n != 1 {
			t.Errorf("found e1 %d times, want 1", n)
		}
		if len(all) != 2 {
			t.Errorf("got %d expenses, want 2", len(all))
		}
	})

	t.Run("AddExpense generates missing ID", func(t *testing.T) {
		store := newStore(t, Seed())
		added, err := store.AddExpense(ctx, models.Expense{
			Description: "Snacks",
			Amount:      9,
			PaidBy:      models.User{ID: "1", Name: "John Doe"},
		})
		if err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if added.ID == "" {
			t.Fatal("expected ID to be generated")
		}
		got, err := store.GetExpense(ctx, added.ID)
		if err != nil || got.Description != "Snacks" {
			t.Errorf("GetExpense(%s) = %+v, %v", added.ID, got, err)
		}
	})

	t.Run("AddExpense does not keep caller memory", func(t *testing.T) {
		store := newStore(t, nil)
		in := models.Expense{ID: "x", Amount: 10, Splits: []models.Split{{UserID: "1", Amount: 10}}}
		if _, err := store.AddExpense(ctx, in); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		in.Splits[0].Amount = 0
		got, _ := store.GetExpense(ctx, "x")
		if got.Splits[0].Amount != 10 {
			t.Errorf("store aliased caller splits: %+v", got.Splits)
		}
	})

	t.Run("DeleteExpense removes entry", func(t *testing.T) {
		store := newStore(t, Seed())
		if err := store.DeleteExpense(ctx, "e1"); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		all, _ := store.GetExpenses(ctx)
		if n := count(all, "e1"); n != 0 {
			t.Errorf("e1 still present after delete")
		}
		if len(all) != 1 || all[0].ID != "e2" {
			t.Errorf("unexpected remaining expenses: %+v", all)
		}
		if _, err := store.GetExpense(ctx, "e1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetExpense after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteExpense of unknown ID is a no-op", func(t *testing.T) {
		store := newStore(t, Seed())
		if err := store.DeleteExpense(ctx, "missing"); err != nil {
			t.Fatalf("DeleteExpense(missing) = %v, want nil", err)
		}
		all, _ := store.GetExpenses(ctx)
		if len(all) != 2 {
			t.Errorf("got %d expenses, want 2", len(all))
		}
	})

	t.Run("UpdateExpense changes only patched fields", func(t *testing.T) {
		store := newStore(t, Seed())
		desc, amount := "X", 10.0
		updated, err := store.UpdateExpense(ctx, "e1", models.ExpensePatch{Description: &desc, Amount: &amount})
		if err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		if updated.Description != "X" || updated.Amount != 10 {
			t.Errorf("returned expense not updated: %+v", updated)
		}
		if updated.UpdatedAt == "" {
			t.Error("expected UpdatedAt to be set")
		}

		all, _ := store.GetExpenses(ctx)
		got := all[0]
		if got.ID != "e1" || got.Description != "X" || got.Amount != 10 {
			t.Errorf("stored expense not updated: %+v", got)
		}
		want := Seed()[0]
		if got.Date != want.Date || got.GroupID != want.GroupID || got.PaidBy != want.PaidBy {
			t.Errorf("unpatched fields changed: %+v", got)
		}
		if len(got.Splits) != 2 || got.Splits[0] != want.Splits[0] || got.Splits[1] != want.Splits[1] {
			t.Errorf("splits changed: %+v", got.Splits)
		}
		if all[1].Description != "Taxi" {
			t.Errorf("other expense changed: %+v", all[1])
		}
	})

	t.Run("UpdateExpense replaces splits", func(t *testing.T) {
		store := newStore(t, Seed())
		amount := 90.0
		splits := []models.Split{{UserID: "1", Amount: 45}, {UserID: "2", Amount: 45}}
		if _, err := store.UpdateExpense(ctx, "e1", models.ExpensePatch{Amount: &amount, Splits: splits}); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		got, _ := store.GetExpense(ctx, "e1")
		if got.Amount != 90 || len(got.Splits) != 2 || got.Splits[0].Amount != 45 || got.Splits[1].Amount != 45 {
			t.Errorf("unexpected expense: %+v", got)
		}
	})

	t.Run("UpdateExpense of unknown ID fails", func(t *testing.T) {
		store := newStore(t, Seed())
		desc := "X"
		_, err := store.UpdateExpense(ctx, "missing", models.ExpensePatch{Description: &desc})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
		all, _ := store.GetExpenses(ctx)
		if len(all) != 2 || count(all, "missing") != 0 {
			t.Errorf("failed update changed the collection: %+v", all)
		}
	})
}

func count(expenses []models.Expense, id string) int {
	n := 0
	for _, e := range expenses {
		if e.ID == id {
			n++
		}
	}
	return n
}
