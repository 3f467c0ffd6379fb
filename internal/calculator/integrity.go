package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrSplitMismatch matches any *SplitMismatch via errors.Is.
var ErrSplitMismatch = errors.New("splits do not add up to expense amount")

// SplitMismatch reports an expense whose splits drift from its total.
type SplitMismatch struct {
	ExpenseID  string
	Expected   float64 // expense amount
	Actual     float64 // sum of splits
	Difference float64 // Expected - Actual
}

func (m *SplitMismatch) Error() string {
	return fmt.Sprintf("expense %s: splits sum to %.2f, amount is %.2f", m.ExpenseID, m.Actual, m.Expected)
}

func (m *SplitMismatch) Is(target error) bool {
	return target == ErrSplitMismatch
}

// CheckSplits compares the sum of the expense's splits with its amount to the
// cent. It returns nil when they agree.
func CheckSplits(expense models.Expense) *SplitMismatch {
	sum := dec(0)
	for _, s := range expense.Splits {
		sum = sum.Add(dec(s.Amount))
	}
	expected := cents(expense.Amount)
	actual := sum.Round(centPlaces)
	if expected.Equal(actual) {
		return nil
	}
	return &SplitMismatch{
		ExpenseID:  expense.ID,
		Expected:   expected.InexactFloat64(),
		Actual:     actual.InexactFloat64(),
		Difference: expected.Sub(actual).InexactFloat64(),
	}
}
