package models

import "time"

// CurrentUser is the signed-in user of the seed data set.
var CurrentUser = User{ID: "1", Name: "John Doe"}

// SeedUsers returns the known users of the seed data set.
func SeedUsers() []User {
	return []User{CurrentUser}
}

// SeedGroups returns the fixed group collection used for lookups.
// Each call returns fresh values.
func SeedGroups() []Group {
	return []Group{
		{
			ID:      "g1",
			Name:    "Trip",
			Emoji:   "🏝️",
			Members: []User{CurrentUser},
		},
	}
}

// SeedExpenses returns the initial expense collection, dated at now.
// Each call returns fresh values so separate stores never share state.
func SeedExpenses(now time.Time) []Expense {
	return []Expense{
		{
			ID:          "e1",
			Description: "Dinner",
			Amount:      120,
			Date:        now.UTC().Format(time.RFC3339),
			GroupID:     "g1",
			PaidBy:      CurrentUser,
			Splits: []Split{
				{UserID: "1", Amount: 60},
				{UserID: "2", Amount: 60},
			},
		},
	}
}
