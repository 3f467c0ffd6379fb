package api

// User is a member of the ledger.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Split is one participant's share as submitted by a client.
type Split struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

// Expense is the writable form of an expense.
type Expense struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	GroupID     string  `json:"group_id"`
	PaidBy      User    `json:"paid_by"`
	Splits      []Split `json:"splits"`
}

// Balance is an expense seen from the viewer's side.
// Role is one of "payer", "participant" or "uninvolved".
type Balance struct {
	Role         string   `json:"role"`
	OwedToViewer *float64 `json:"owed_to_viewer,omitempty"`
	ViewerOwes   *float64 `json:"viewer_owes,omitempty"`
}

// SplitLine is a split with the participant's display name resolved.
type SplitLine struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Warning flags an expense whose splits do not add up to its amount.
type Warning struct {
	Message    string  `json:"message"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"`
}

// ExpenseView is everything a client needs to render one expense.
type ExpenseView struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Amount      float64     `json:"amount"`
	Date        string      `json:"date"`
	DisplayDate string      `json:"display_date"`
	GroupID     string      `json:"group_id"`
	GroupName   string      `json:"group_name"`
	GroupEmoji  string      `json:"group_emoji"`
	PaidBy      User        `json:"paid_by"`
	Balance     Balance     `json:"balance"`
	Splits      []SplitLine `json:"splits"`
	Warning     *Warning    `json:"warning,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
	UpdatedAt   string      `json:"updated_at,omitempty"`
}

// Group is a named set of members.
type Group struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Emoji   string `json:"emoji,omitempty"`
	Members []User `json:"members"`
}

// MemberBalance summarizes one member's position in a group.
type MemberBalance struct {
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	NetBalance float64 `json:"net_balance"`
	TotalPaid  float64 `json:"total_paid"`
	TotalOwed  float64 `json:"total_owed"`
}

// Debt is a simplified payment that would settle part of a group.
type Debt struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []ExpenseView `json:"expenses"`
	Total    int           `json:"total"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense ExpenseView `json:"expense"`
}

type AddExpenseRequest struct {
	Expense Expense `json:"expense"`
}

type AddExpenseResponse struct {
	Expense ExpenseView `json:"expense"`
}

// UpdateExpenseRequest changes only the fields that are set.
// When SplitMode is set the splits are re-derived over the current
// participants from SplitInputs ("equal" needs no inputs).
type UpdateExpenseRequest struct {
	ExpenseID   string             `json:"expense_id"`
	Description *string            `json:"description,omitempty"`
	Amount      *float64           `json:"amount,omitempty"`
	SplitMode   string             `json:"split_mode,omitempty"`
	SplitInputs map[string]float64 `json:"split_inputs,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense ExpenseView `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	MemberBalances []MemberBalance `json:"member_balances"`
	Debts          []Debt          `json:"debts"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type SignupResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct{}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	User User `json:"user"`
}
