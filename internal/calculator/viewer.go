package calculator

import "github.com/mmynk/splitledger/internal/models"

// Role describes how a viewer relates to an expense.
type Role string

const (
	RolePayer       Role = "payer"
	RoleParticipant Role = "participant"
	RoleUninvolved  Role = "uninvolved"
)

// Balance is an expense's balance from one viewer's point of view.
// At most one of OwedToViewer and ViewerOwes is set.
type Balance struct {
	Role Role

	// OwedToViewer is what the other participants owe the payer.
	// Only set for RolePayer, and only when strictly positive.
	OwedToViewer *float64

	// ViewerOwes is the viewer's own share. Only set for RoleParticipant.
	ViewerOwes *float64
}

// ViewerBalance computes the balance of expense as seen by viewerID.
//
// For the payer the amount owed is derived indirectly:
//
//	owed = expense.Amount - payerShare
//
// where payerShare is 0 when the payer has no split. This equals the sum of
// the other participants' shares only while the splits add up to the total.
func ViewerBalance(expense models.Expense, viewerID string) Balance {
	isPayer := expense.PaidBy.ID == viewerID
	share, hasShare := expense.Share(viewerID)

	if isPayer {
		payerShare := 0.0
		if hasShare {
			payerShare = share.Amount
		}
		owed := dec(expense.Amount).Sub(dec(payerShare))
		b := Balance{Role: RolePayer}
		if owed.IsPositive() {
			v := owed.InexactFloat64()
			b.OwedToViewer = &v
		}
		return b
	}

	if hasShare {
		v := share.Amount
		return Balance{Role: RoleParticipant, ViewerOwes: &v}
	}

	return Balance{Role: RoleUninvolved}
}
