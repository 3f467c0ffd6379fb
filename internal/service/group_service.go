package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	store  storage.ExpenseStore
	groups []models.Group
	cache  *cache.Versioned
}

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService. balanceCache must be the one
// the ExpenseService invalidates; nil disables caching.
func NewGroupService(store storage.ExpenseStore, groups []models.Group, balanceCache *cache.Versioned) *GroupService {
	if balanceCache == nil {
		balanceCache = cache.NewVersioned(nil)
	}
	return &GroupService{store: store, groups: groups, cache: balanceCache}
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	groups := make([]api.Group, len(s.groups))
	for i, g := range s.groups {
		groups[i] = toAPIGroup(g)
	}
	return connect.NewResponse(&api.ListGroupsResponse{Groups: groups}), nil
}

// GetGroupBalances calculates net balances and simplified debts for a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	group, ok := models.FindGroup(s.groups, groupID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("group %q not found", groupID))
	}

	// The version and the cache are read before the store so a write that
	// lands in between is never cached under the older version.
	version := s.cache.Version(groupID)
	cached, hit, err := s.cache.Get(ctx, groupID)
	if err != nil {
		slog.Warn("Balance cache read failed", "group_id", groupID, "error", err)
	}

	expenses, err := s.store.GetExpenses(ctx)
	if err != nil {
		slog.Error("GetGroupBalances failed to list expenses", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}
	var inGroup []models.Expense
	for _, e := range expenses {
		if e.GroupID == groupID {
			inGroup = append(inGroup, e)
		}
	}

	balances := cached
	if hit {
		slog.Debug("Balance cache hit", "group_id", groupID)
	} else {
		balances = s.compute(ctx, groupID, version, inGroup)
	}

	resp := &api.GetGroupBalancesResponse{
		MemberBalances: make([]api.MemberBalance, len(balances.Members)),
		Debts:          make([]api.Debt, len(balances.Debts)),
	}
	for i, b := range balances.Members {
		resp.MemberBalances[i] = api.MemberBalance{
			UserID:     b.UserID,
			Name:       memberName(b.UserID, group, inGroup),
			NetBalance: b.NetBalance,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
		}
	}
	for i, d := range balances.Debts {
		resp.Debts[i] = api.Debt{From: d.From, To: d.To, Amount: d.Amount}
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"expenses_count", len(inGroup),
		"debts_count", len(resp.Debts),
	)
	return connect.NewResponse(resp), nil
}

// compute calculates balances and caches them unless the group changed
// since version was taken. Cache failures only cost a recomputation later.
func (s *GroupService) compute(ctx context.Context, groupID string, version uint64, expenses []models.Expense) cache.GroupBalances {
	members, debts := calculator.CalculateGroupBalances(expenses)
	out := cache.GroupBalances{Members: members, Debts: debts}

	stored, err := s.cache.SetIfCurrent(ctx, groupID, version, out)
	switch {
	case err != nil:
		slog.Warn("Balance cache write failed", "group_id", groupID, "error", err)
	case !stored:
		slog.Debug("Skipped caching balances of a changed group", "group_id", groupID)
	}
	return out
}

// memberName prefers the group roster, then a payer record, then the
// unknown label.
func memberName(userID string, group *models.Group, expenses []models.Expense) string {
	if m, ok := group.Member(userID); ok {
		return m.Name
	}
	for _, e := range expenses {
		if e.PaidBy.ID == userID && e.PaidBy.Name != "" {
			return e.PaidBy.Name
		}
	}
	return calculator.UnknownLabel
}
