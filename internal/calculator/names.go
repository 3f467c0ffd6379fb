package calculator

import "github.com/mmynk/splitledger/internal/models"

const (
	// YouLabel names the viewer in split listings.
	YouLabel = "You"
	// UnknownLabel is shown for users that cannot be resolved.
	UnknownLabel = "Unknown"
)

// ResolveMemberName returns the display name for a split's user.
//
// Resolution order is viewer, then payer, then group membership. The payer's
// name wins even when the payer is missing from the group's members.
// A nil group resolves non-viewer, non-payer users to UnknownLabel.
func ResolveMemberName(userID, viewerID string, expense models.Expense, group *models.Group) string {
	switch {
	case userID == viewerID:
		return YouLabel
	case userID == expense.PaidBy.ID:
		return expense.PaidBy.Name
	}
	if m, ok := group.Member(userID); ok {
		return m.Name
	}
	return UnknownLabel
}
