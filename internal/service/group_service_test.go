package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/storagetest"
	"github.com/mmynk/splitledger/pkg/api"
)

func balanceFor(t *testing.T, balances []api.MemberBalance, userID string) api.MemberBalance {
	t.Helper()
	for _, b := range balances {
		if b.UserID == userID {
			return b
		}
	}
	t.Fatalf("no balance for user %s in %+v", userID, balances)
	return api.MemberBalance{}
}

func TestListGroups(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.groups.ListGroups(context.Background(), connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(resp.Msg.Groups))
	}
	g := resp.Msg.Groups[0]
	if g.ID != "g1" || g.Name != "Trip" || len(g.Members) != 1 || g.Members[0].Name != "John Doe" {
		t.Errorf("unexpected group: %+v", g)
	}
}

func TestGetGroupBalances(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.groups.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	// e1: user 2 paid 120, shares 60/80. e2: user 1 paid 30, shares 15/15.
	u1 := balanceFor(t, resp.Msg.MemberBalances, "1")
	if !approxEqual(u1.TotalPaid, 30) || !approxEqual(u1.TotalOwed, 75) || !approxEqual(u1.NetBalance, -45) {
		t.Errorf("user 1 balance = %+v", u1)
	}
	if u1.Name != "John Doe" {
		t.Errorf("user 1 name = %q", u1.Name)
	}

	u2 := balanceFor(t, resp.Msg.MemberBalances, "2")
	if !approxEqual(u2.NetBalance, 25) {
		t.Errorf("user 2 net = %v, want 25", u2.NetBalance)
	}
	// Not in the roster, named from the payer record.
	if u2.Name != "Jane Roe" {
		t.Errorf("user 2 name = %q, want Jane Roe", u2.Name)
	}

	if len(resp.Msg.Debts) != 1 {
		t.Fatalf("expected 1 debt, got %+v", resp.Msg.Debts)
	}
	d := resp.Msg.Debts[0]
	if d.From != "1" || d.To != "2" || !approxEqual(d.Amount, 25) {
		t.Errorf("debt = %+v, want 1 -> 2 25", d)
	}
}

func TestGetGroupBalancesEmptyGroup(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.groups.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g2"}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(resp.Msg.MemberBalances) != 0 || len(resp.Msg.Debts) != 0 {
		t.Errorf("expected empty balances, got %+v", resp.Msg)
	}
}

func TestGetGroupBalancesUnknownGroup(t *testing.T) {
	env := setupTestServer(t, false)

	_, err := env.groups.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "nope"}))
	checkCode(t, err, connect.CodeNotFound)
}

func TestGroupBalancesRefreshAfterMutation(t *testing.T) {
	env := setupTestServer(t, false)
	ctx := context.Background()
	req := func() *connect.Request[api.GetGroupBalancesRequest] {
		return connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"})
	}

	// Prime the cache.
	if _, err := env.groups.GetGroupBalances(ctx, req()); err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	_, err := env.expenses.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		Expense: api.Expense{
			ID:      "e3",
			Amount:  100,
			GroupID: "g1",
			PaidBy:  api.User{ID: "1", Name: "John Doe"},
			Splits:  []api.Split{{UserID: "1", Amount: 50}, {UserID: "2", Amount: 50}},
		},
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	resp, err := env.groups.GetGroupBalances(ctx, req())
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if u1 := balanceFor(t, resp.Msg.MemberBalances, "1"); !approxEqual(u1.NetBalance, 5) {
		t.Errorf("user 1 net after add = %v, want 5", u1.NetBalance)
	}

	if _, err := env.expenses.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: "e1"})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	resp, err = env.groups.GetGroupBalances(ctx, req())
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	// Left: e2 and e3, both paid by user 1.
	if u1 := balanceFor(t, resp.Msg.MemberBalances, "1"); !approxEqual(u1.NetBalance, 65) {
		t.Errorf("user 1 net after delete = %v, want 65", u1.NetBalance)
	}
}

// hookedStore runs afterList once, right after a GetExpenses snapshot is
// taken, and afterGet once after the first GetExpense.
type hookedStore struct {
	storage.ExpenseStore
	listOnce  sync.Once
	getOnce   sync.Once
	afterList func()
	afterGet  func()
}

func (h *hookedStore) GetExpenses(ctx context.Context) ([]models.Expense, error) {
	expenses, err := h.ExpenseStore.GetExpenses(ctx)
	if h.afterList != nil {
		h.listOnce.Do(h.afterList)
	}
	return expenses, err
}

func (h *hookedStore) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	expense, err := h.ExpenseStore.GetExpense(ctx, id)
	if h.afterGet != nil {
		h.getOnce.Do(h.afterGet)
	}
	return expense, err
}

func TestGroupBalancesIgnoreWriteDuringRead(t *testing.T) {
	ctx := context.Background()

	mem, err := memory.New(storagetest.Seed())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store := &hookedStore{ExpenseStore: mem}
	balanceCache := cache.NewVersioned(cache.NewMemoryCache(16, time.Minute))
	groups := testGroups()

	expenseSvc := NewExpenseService(store, groups, ExpenseOptions{
		Cache:     balanceCache,
		Publisher: &events.Recorder{},
	})
	groupSvc := NewGroupService(store, groups, balanceCache)

	// A write lands between the balance read and the cache fill.
	store.afterList = func() {
		_, err := expenseSvc.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
			Expense: api.Expense{
				ID:      "e3",
				Amount:  1000,
				GroupID: "g1",
				PaidBy:  api.User{ID: "1", Name: "John Doe"},
				Splits:  []api.Split{{UserID: "2", Amount: 1000}},
			},
		}))
		if err != nil {
			t.Errorf("AddExpense failed: %v", err)
		}
	}

	req := func() *connect.Request[api.GetGroupBalancesRequest] {
		return connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"})
	}

	// This response may reflect the older snapshot, but must not be cached.
	if _, err := groupSvc.GetGroupBalances(ctx, req()); err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}

	resp, err := groupSvc.GetGroupBalances(ctx, req())
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	// User 1 moves from -45 to +955 with e3.
	if u1 := balanceFor(t, resp.Msg.MemberBalances, "1"); !approxEqual(u1.NetBalance, 955) {
		t.Errorf("user 1 net = %v, want 955", u1.NetBalance)
	}
	if len(resp.Msg.Debts) != 1 {
		t.Fatalf("expected 1 debt, got %+v", resp.Msg.Debts)
	}
	if d := resp.Msg.Debts[0]; d.From != "2" || d.To != "1" || !approxEqual(d.Amount, 955) {
		t.Errorf("debt = %+v, want 2 -> 1 955", d)
	}
}
