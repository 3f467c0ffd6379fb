package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// ExpenseOptions configures an ExpenseService. Zero values get defaults.
type ExpenseOptions struct {
	// DefaultViewerID is used when the request carries no session.
	DefaultViewerID string

	// DateLayout formats ExpenseView.DisplayDate.
	DateLayout string

	// StrictSplits rejects writes whose splits do not sum to the amount.
	StrictSplits bool

	// Cache is shared with the GroupService; every mutation invalidates it.
	Cache     *cache.Versioned
	Publisher events.Publisher
}

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store  storage.ExpenseStore
	groups []models.Group
	opts   ExpenseOptions

	// updateMu makes UpdateExpense's read, split check and write one step,
	// so derived shares and strict checks see the row they overwrite.
	updateMu sync.Mutex
}

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService over store. groups is the
// lookup table used to resolve names and emojis.
func NewExpenseService(store storage.ExpenseStore, groups []models.Group, opts ExpenseOptions) *ExpenseService {
	if opts.DefaultViewerID == "" {
		opts.DefaultViewerID = models.CurrentUser.ID
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewVersioned(nil)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewLogPublisher(slog.Default())
	}
	return &ExpenseService{store: store, groups: groups, opts: opts}
}

func (s *ExpenseService) viewer(ctx context.Context) string {
	if id := middleware.GetViewerID(ctx); id != "" {
		return id
	}
	return s.opts.DefaultViewerID
}

func (s *ExpenseService) view(ctx context.Context, e models.Expense) api.ExpenseView {
	return buildView(e, s.groups, s.viewer(ctx), s.opts.DateLayout)
}

// ListExpenses returns every expense rendered for the viewer.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	expenses, err := s.store.GetExpenses(ctx)
	if err != nil {
		slog.Error("ListExpenses failed", "error", err)
		return nil, toConnectError(err)
	}

	views := make([]api.ExpenseView, len(expenses))
	for i, e := range expenses {
		views[i] = s.view(ctx, e)
		if views[i].Warning != nil {
			slog.Warn("Expense splits do not add up",
				"expense_id", e.ID,
				"difference", views[i].Warning.Difference,
			)
		}
	}

	slog.Debug("ListExpenses successful", "count", len(views))
	return connect.NewResponse(&api.ListExpensesResponse{
		Expenses: views,
		Total:    len(views),
	}), nil
}

// GetExpense returns one expense rendered for the viewer.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	if req.Msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expense_id is required"))
	}

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		slog.Error("GetExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: s.view(ctx, expense)}), nil
}

// AddExpense stores a new expense.
func (s *ExpenseService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	expense := fromAPIExpense(req.Msg.Expense)
	slog.Info("AddExpense request received",
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"splits_count", len(expense.Splits),
	)

	if err := validateExpense(expense); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.checkSplits(expense); err != nil {
		return nil, toConnectError(err)
	}

	saved, err := s.store.AddExpense(ctx, expense)
	if err != nil {
		slog.Error("AddExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense added", "expense_id", saved.ID, "group_id", saved.GroupID)
	s.changed(ctx, events.ExpenseCreated, saved.ID, saved.GroupID)

	return connect.NewResponse(&api.AddExpenseResponse{Expense: s.view(ctx, saved)}), nil
}

// UpdateExpense applies the set fields of the request to an existing expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	msg := req.Msg
	slog.Info("UpdateExpense request received", "expense_id", msg.ExpenseID, "split_mode", msg.SplitMode)

	if msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expense_id is required"))
	}
	if msg.Amount != nil && *msg.Amount < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("amount must not be negative"))
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	current, err := s.store.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	patch := models.ExpensePatch{Description: msg.Description, Amount: msg.Amount}
	if msg.SplitMode != "" {
		splits, err := deriveSplits(current, msg)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		patch.Splits = splits
	}
	if patch.Empty() {
		return connect.NewResponse(&api.UpdateExpenseResponse{Expense: s.view(ctx, current)}), nil
	}
	if err := s.checkSplits(patch.Apply(current)); err != nil {
		return nil, toConnectError(err)
	}

	updated, err := s.store.UpdateExpense(ctx, msg.ExpenseID, patch)
	if err != nil {
		slog.Error("UpdateExpense failed", "expense_id", msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense updated", "expense_id", updated.ID)
	s.changed(ctx, events.ExpenseUpdated, updated.ID, updated.GroupID)

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: s.view(ctx, updated)}), nil
}

// DeleteExpense removes an expense. Deleting an unknown id succeeds.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	id := req.Msg.ExpenseID
	slog.Info("DeleteExpense request received", "expense_id", id)

	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expense_id is required"))
	}

	existing, err := s.store.GetExpense(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		slog.Debug("DeleteExpense: nothing to delete", "expense_id", id)
		return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
	case err != nil:
		slog.Error("DeleteExpense failed", "expense_id", id, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", id, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense deleted", "expense_id", id)
	s.changed(ctx, events.ExpenseDeleted, id, existing.GroupID)

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// checkSplits enforces split integrity when strict mode is on and logs
// the drift otherwise.
func (s *ExpenseService) checkSplits(e models.Expense) error {
	m := calculator.CheckSplits(e)
	if m == nil {
		return nil
	}
	if s.opts.StrictSplits {
		return m
	}
	slog.Warn("Accepting expense with inconsistent splits",
		"expense_id", e.ID,
		"expected", m.Expected,
		"actual", m.Actual,
	)
	return nil
}

// changed drops cached balances for the group and announces the change.
// Neither step can fail the request.
func (s *ExpenseService) changed(ctx context.Context, t events.Type, expenseID, groupID string) {
	if groupID != "" {
		if err := s.opts.Cache.Invalidate(ctx, groupID); err != nil {
			slog.Warn("Failed to invalidate balance cache", "group_id", groupID, "error", err)
		}
	}
	event := events.New(t, expenseID, groupID, s.viewer(ctx))
	if err := s.opts.Publisher.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish event", "type", t, "expense_id", expenseID, "error", err)
	}
}

func validateExpense(e models.Expense) error {
	if e.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	if e.PaidBy.ID == "" {
		return errors.New("paid_by.id is required")
	}
	seen := make(map[string]bool, len(e.Splits))
	for _, sp := range e.Splits {
		if sp.UserID == "" {
			return errors.New("split user_id is required")
		}
		if sp.Amount < 0 {
			return fmt.Errorf("split for %s must not be negative", sp.UserID)
		}
		if seen[sp.UserID] {
			return fmt.Errorf("duplicate split for %s", sp.UserID)
		}
		seen[sp.UserID] = true
	}
	return nil
}

// deriveSplits recomputes the shares of current's participants for the
// requested mode, using the new amount when the request changes it.
func deriveSplits(current models.Expense, msg *api.UpdateExpenseRequest) ([]models.Split, error) {
	mode, err := calculator.ParseSplitMode(msg.SplitMode)
	if err != nil {
		return nil, err
	}
	amount := current.Amount
	if msg.Amount != nil {
		amount = *msg.Amount
	}
	participants := current.Participants()
	for id := range msg.SplitInputs {
		if _, ok := current.Share(id); !ok {
			return nil, fmt.Errorf("split input for %s who is not a participant", id)
		}
	}
	return calculator.DeriveSplits(mode, amount, participants, msg.SplitInputs)
}
