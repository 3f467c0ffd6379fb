package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID     string
	NetBalance float64 // Positive = owed money, Negative = owes money
	TotalPaid  float64 // Total amount paid across all expenses
	TotalOwed  float64 // Total of this member's shares
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

type tally struct {
	paid decimal.Decimal
	owed decimal.Decimal
}

// CalculateGroupBalances aggregates expenses into per-member balances and a
// simplified list of debts.
//
// Algorithm:
//   - For each expense: the payer contributed +amount, each split user owes its share
//   - Aggregate: net_balance = total_paid - total_owed
//   - Debts: greedy matching of the largest debtor with the largest creditor
//
// Results are ordered by user ID (balances) and by debtor then creditor (debts).
func CalculateGroupBalances(expenses []models.Expense) ([]MemberBalance, []DebtEdge) {
	tallies := make(map[string]*tally)
	get := func(id string) *tally {
		t, ok := tallies[id]
		if !ok {
			t = &tally{paid: decimal.Zero, owed: decimal.Zero}
			tallies[id] = t
		}
		return t
	}

	for _, e := range expenses {
		// Expenses without a payer cannot move money.
		if e.PaidBy.ID == "" {
			continue
		}
		payer := get(e.PaidBy.ID)
		payer.paid = payer.paid.Add(dec(e.Amount))
		for _, s := range e.Splits {
			p := get(s.UserID)
			p.owed = p.owed.Add(dec(s.Amount))
		}
	}

	ids := make([]string, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type party struct {
		id     string
		amount decimal.Decimal
	}
	var creditors, debtors []party

	balances := make([]MemberBalance, 0, len(ids))
	for _, id := range ids {
		t := tallies[id]
		net := t.paid.Sub(t.owed).Round(centPlaces)
		balances = append(balances, MemberBalance{
			UserID:     id,
			NetBalance: net.InexactFloat64(),
			TotalPaid:  t.paid.Round(centPlaces).InexactFloat64(),
			TotalOwed:  t.owed.Round(centPlaces).InexactFloat64(),
		})
		switch net.Sign() {
		case 1:
			creditors = append(creditors, party{id, net})
		case -1:
			debtors = append(debtors, party{id, net.Neg()})
		}
	}

	byAmount := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.SliceStable(creditors, byAmount(creditors))
	sort.SliceStable(debtors, byAmount(debtors))

	// Sub-cent leftovers are floating point noise, not debts.
	epsilon := decimal.New(1, -centPlaces)

	var debts []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.GreaterThanOrEqual(epsilon) {
			debts = append(debts, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount.InexactFloat64(),
			})
		}
		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.LessThan(epsilon) {
			i++
		}
		if creditors[j].amount.LessThan(epsilon) {
			j++
		}
	}

	sort.SliceStable(debts, func(a, b int) bool {
		if debts[a].From != debts[b].From {
			return debts[a].From < debts[b].From
		}
		return debts[a].To < debts[b].To
	})

	return balances, debts
}
