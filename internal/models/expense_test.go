package models

import (
	"testing"
	"time"
)

func TestExpenseCloneDoesNotAlias(t *testing.T) {
	orig := Expense{ID: "e1", Amount: 10, Splits: []Split{{UserID: "1", Amount: 10}}}
	cp := orig.Clone()
	cp.Splits[0].Amount = 99

	if orig.Splits[0].Amount != 10 {
		t.Errorf("clone aliased splits: original amount = %v, want 10", orig.Splits[0].Amount)
	}
}

func TestExpensePatchApply(t *testing.T) {
	orig := Expense{
		ID:          "e1",
		Description: "Dinner",
		Amount:      120,
		GroupID:     "g1",
		PaidBy:      User{ID: "2", Name: "Jane"},
		Splits:      []Split{{UserID: "1", Amount: 60}, {UserID: "2", Amount: 60}},
	}

	desc := "X"
	amount := 10.0

	tests := []struct {
		name  string
		patch ExpensePatch
		check func(t *testing.T, got Expense)
	}{
		{
			name:  "empty patch keeps everything",
			patch: ExpensePatch{},
			check: func(t *testing.T, got Expense) {
				if got.Description != "Dinner" || got.Amount != 120 || len(got.Splits) != 2 {
					t.Errorf("unexpected expense: %+v", got)
				}
			},
		},
		{
			name:  "description and amount only",
			patch: ExpensePatch{Description: &desc, Amount: &amount},
			check: func(t *testing.T, got Expense) {
				if got.Description != "X" || got.Amount != 10 {
					t.Errorf("patch not applied: %+v", got)
				}
				if got.GroupID != "g1" || got.PaidBy.ID != "2" || len(got.Splits) != 2 {
					t.Errorf("unrelated fields changed: %+v", got)
				}
			},
		},
		{
			name:  "splits replaced",
			patch: ExpensePatch{Splits: []Split{{UserID: "1", Amount: 120}}},
			check: func(t *testing.T, got Expense) {
				if len(got.Splits) != 1 || got.Splits[0].Amount != 120 {
					t.Errorf("splits not replaced: %+v", got.Splits)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.patch.Apply(orig)
			tt.check(t, got)
			if orig.Description != "Dinner" || orig.Amount != 120 || len(orig.Splits) != 2 {
				t.Errorf("Apply mutated the original: %+v", orig)
			}
		})
	}

	if !(ExpensePatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (ExpensePatch{Amount: &amount}).Empty() {
		t.Error("patch with amount should not be empty")
	}
}

func TestGroupMember(t *testing.T) {
	groups := SeedGroups()
	g, ok := FindGroup(groups, "g1")
	if !ok {
		t.Fatal("seed group g1 not found")
	}
	if m, ok := g.Member("1"); !ok || m.Name != "John Doe" {
		t.Errorf("Member(1) = %+v, %v", m, ok)
	}
	if _, ok := g.Member("2"); ok {
		t.Error("Member(2) should be absent")
	}
	if _, ok := FindGroup(groups, "missing"); ok {
		t.Error("FindGroup(missing) should fail")
	}

	var nilGroup *Group
	if _, ok := nilGroup.Member("1"); ok {
		t.Error("nil group should have no members")
	}
}

func TestSeedExpensesAreFresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := SeedExpenses(now)
	b := SeedExpenses(now)
	a[0].Splits[0].Amount = 1

	if b[0].Splits[0].Amount != 60 {
		t.Errorf("seed collections share memory")
	}
	if a[0].Date != "2024-05-01T12:00:00Z" {
		t.Errorf("Date = %q", a[0].Date)
	}
	if got := b[0].SplitTotal(); got != 120 {
		t.Errorf("SplitTotal = %v, want 120", got)
	}
}
