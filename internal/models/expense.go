package models

// Split represents one participant's owed share of an expense.
type Split struct {
	// UserID is the participant this share belongs to.
	UserID string `json:"user_id"`

	// Amount is the participant's share of the expense total.
	Amount float64 `json:"amount"`
}

// Expense represents a single payment event shared among participants.
type Expense struct {
	// ID is the unique identifier for the expense.
	ID string `json:"id"`

	// Description is the human-readable label (e.g., "Dinner").
	Description string `json:"description"`

	// Amount is the total paid by PaidBy.
	Amount float64 `json:"amount"`

	// Date is when the expense happened, as an ISO-8601 string.
	Date string `json:"date"`

	// GroupID references the group this expense belongs to.
	GroupID string `json:"group_id"`

	// PaidBy is the user who fronted the amount.
	PaidBy User `json:"paid_by"`

	// Splits are the participants' shares. Their sum is expected to equal Amount.
	Splits []Split `json:"splits"`

	// CreatedAt and UpdatedAt are optional ISO-8601 timestamps.
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Clone returns a copy of the expense that shares no memory with e.
func (e Expense) Clone() Expense {
	if e.Splits != nil {
		e.Splits = append([]Split(nil), e.Splits...)
	}
	return e
}

// Share returns the split recorded for the given user.
func (e Expense) Share(userID string) (Split, bool) {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s, true
		}
	}
	return Split{}, false
}

// Participants returns the user IDs of the splits in order.
func (e Expense) Participants() []string {
	ids := make([]string, len(e.Splits))
	for i, s := range e.Splits {
		ids[i] = s.UserID
	}
	return ids
}

// SplitTotal returns the sum of all split amounts.
func (e Expense) SplitTotal() float64 {
	var total float64
	for _, s := range e.Splits {
		total += s.Amount
	}
	return total
}

// ExpensePatch names the fields an update may change.
// A nil field is left untouched.
type ExpensePatch struct {
	Description *string
	Amount      *float64
	Splits      []Split
}

// Empty reports whether the patch changes nothing.
func (p ExpensePatch) Empty() bool {
	return p.Description == nil && p.Amount == nil && p.Splits == nil
}

// Apply returns a copy of e with the patch applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	out := e.Clone()
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Splits != nil {
		out.Splits = append([]Split(nil), p.Splits...)
	}
	return out
}
