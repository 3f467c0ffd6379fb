package service

import (
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

// DefaultDateLayout renders dates as month/day/year without padding.
const DefaultDateLayout = "1/2/2006"

var dateInputLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// displayDate formats an ISO-8601 date with layout. Dates that do not parse
// are shown as stored.
func displayDate(raw, layout string) string {
	for _, in := range dateInputLayouts {
		if t, err := time.Parse(in, raw); err == nil {
			return t.Format(layout)
		}
	}
	return raw
}

// buildView derives the rendered form of an expense for one viewer.
func buildView(e models.Expense, groups []models.Group, viewerID, layout string) api.ExpenseView {
	group, _ := models.FindGroup(groups, e.GroupID)

	view := api.ExpenseView{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		DisplayDate: displayDate(e.Date, layout),
		GroupID:     e.GroupID,
		PaidBy:      api.User{ID: e.PaidBy.ID, Name: e.PaidBy.Name},
		Balance:     toAPIBalance(calculator.ViewerBalance(e, viewerID)),
		Splits:      make([]api.SplitLine, len(e.Splits)),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if group != nil {
		view.GroupName = group.Name
		view.GroupEmoji = group.Emoji
	}
	for i, s := range e.Splits {
		view.Splits[i] = api.SplitLine{
			UserID: s.UserID,
			Name:   calculator.ResolveMemberName(s.UserID, viewerID, e, group),
			Amount: s.Amount,
		}
	}
	if m := calculator.CheckSplits(e); m != nil {
		view.Warning = &api.Warning{
			Message:    m.Error(),
			Expected:   m.Expected,
			Actual:     m.Actual,
			Difference: m.Difference,
		}
	}
	return view
}

func toAPIBalance(b calculator.Balance) api.Balance {
	return api.Balance{
		Role:         string(b.Role),
		OwedToViewer: b.OwedToViewer,
		ViewerOwes:   b.ViewerOwes,
	}
}

func fromAPIExpense(e api.Expense) models.Expense {
	out := models.Expense{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		GroupID:     e.GroupID,
		PaidBy:      models.User{ID: e.PaidBy.ID, Name: e.PaidBy.Name},
	}
	if e.Splits != nil {
		out.Splits = make([]models.Split, len(e.Splits))
		for i, s := range e.Splits {
			out.Splits[i] = models.Split{UserID: s.UserID, Amount: s.Amount}
		}
	}
	return out
}

func toAPIGroup(g models.Group) api.Group {
	members := make([]api.User, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.User{ID: m.ID, Name: m.Name}
	}
	return api.Group{ID: g.ID, Name: g.Name, Emoji: g.Emoji, Members: members}
}
