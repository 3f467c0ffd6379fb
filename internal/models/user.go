package models

// User represents a person taking part in shared expenses.
// Identity is the ID; a user never changes once created.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`
}
