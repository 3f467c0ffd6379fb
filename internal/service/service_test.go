package service

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/storagetest"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

const testSecret = "test-secret"

type testEnv struct {
	expenses *apiconnect.ExpenseServiceClient
	groups   *apiconnect.GroupServiceClient
	sessions *apiconnect.SessionServiceClient
	jwt      *auth.JWTManager
	events   *events.Recorder
}

func testGroups() []models.Group {
	return []models.Group{
		{ID: "g1", Name: "Trip", Emoji: "🏝️", Members: []models.User{models.CurrentUser}},
		{ID: "g2", Name: "Flat", Members: []models.User{models.CurrentUser}},
	}
}

// setupTestServer serves all three services over httptest with the seed
// expenses from storagetest.
func setupTestServer(t *testing.T, strict bool) *testEnv {
	t.Helper()

	store, err := memory.New(storagetest.Seed())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	recorder := &events.Recorder{}
	balanceCache := cache.NewVersioned(cache.NewMemoryCache(16, time.Minute))
	groups := testGroups()

	expenseSvc := NewExpenseService(store, groups, ExpenseOptions{
		DefaultViewerID: "1",
		StrictSplits:    strict,
		Cache:           balanceCache,
		Publisher:       recorder,
	})
	groupSvc := NewGroupService(store, groups, balanceCache)
	sessionSvc := NewSessionService(auth.NewMockAuthenticator(models.CurrentUser), jwtManager, models.CurrentUser)

	interceptors := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewExpenseServiceHandler(expenseSvc, interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(groupSvc, interceptors))
	mux.Handle(apiconnect.NewSessionServiceHandler(sessionSvc, interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		expenses: apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		groups:   apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		sessions: apiconnect.NewSessionServiceClient(http.DefaultClient, server.URL),
		jwt:      jwtManager,
		events:   recorder,
	}
}

func (e *testEnv) tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.jwt.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return token
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func findView(views []api.ExpenseView, id string) (api.ExpenseView, bool) {
	for _, v := range views {
		if v.ID == id {
			return v, true
		}
	}
	return api.ExpenseView{}, false
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func checkCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}

func strPtr(s string) *string      { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestListExpensesForDefaultViewer(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.expenses.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if resp.Msg.Total != 2 || len(resp.Msg.Expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", resp.Msg.Total)
	}

	e1, _ := findView(resp.Msg.Expenses, "e1")
	if e1.Balance.Role != "participant" {
		t.Errorf("e1 role = %q, want participant", e1.Balance.Role)
	}
	if e1.Balance.ViewerOwes == nil || !approxEqual(*e1.Balance.ViewerOwes, 60) {
		t.Errorf("e1 viewer owes = %v, want 60", e1.Balance.ViewerOwes)
	}
	if e1.Balance.OwedToViewer != nil {
		t.Errorf("e1 owed to viewer = %v, want nil", *e1.Balance.OwedToViewer)
	}
	if e1.GroupName != "Trip" || e1.GroupEmoji != "🏝️" {
		t.Errorf("e1 group = %q %q", e1.GroupName, e1.GroupEmoji)
	}
	if e1.DisplayDate != "5/1/2024" {
		t.Errorf("e1 display date = %q, want 5/1/2024", e1.DisplayDate)
	}

	// Split user 2 is not a group member but is the payer.
	names := map[string]string{}
	for _, s := range e1.Splits {
		names[s.UserID] = s.Name
	}
	if names["1"] != "You" || names["2"] != "Jane Roe" {
		t.Errorf("split names = %v", names)
	}

	// e1 splits sum to 140 against an amount of 120.
	if e1.Warning == nil {
		t.Fatal("expected split warning on e1")
	}
	if !approxEqual(e1.Warning.Difference, -20) {
		t.Errorf("warning difference = %v, want -20", e1.Warning.Difference)
	}

	e2, _ := findView(resp.Msg.Expenses, "e2")
	if e2.Balance.Role != "payer" || e2.Balance.OwedToViewer == nil || !approxEqual(*e2.Balance.OwedToViewer, 15) {
		t.Errorf("e2 balance = %+v, want payer owed 15", e2.Balance)
	}
	if e2.Warning != nil {
		t.Errorf("unexpected warning on e2: %+v", e2.Warning)
	}
}

func TestViewerFromToken(t *testing.T) {
	env := setupTestServer(t, false)
	token := env.tokenFor(t, models.User{ID: "2", Name: "Jane Roe"})

	resp, err := env.expenses.GetExpense(context.Background(), withToken(&api.GetExpenseRequest{ExpenseID: "e1"}, token))
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}

	b := resp.Msg.Expense.Balance
	if b.Role != "payer" {
		t.Fatalf("role = %q, want payer", b.Role)
	}
	if b.OwedToViewer == nil || !approxEqual(*b.OwedToViewer, 40) {
		t.Errorf("owed to viewer = %v, want 40", b.OwedToViewer)
	}
	if b.ViewerOwes != nil {
		t.Errorf("viewer owes = %v, want nil", *b.ViewerOwes)
	}
}

func TestInvalidTokenFallsBackToDefaultViewer(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.expenses.GetExpense(context.Background(), withToken(&api.GetExpenseRequest{ExpenseID: "e1"}, "garbage"))
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if resp.Msg.Expense.Balance.Role != "participant" {
		t.Errorf("role = %q, want participant", resp.Msg.Expense.Balance.Role)
	}
}

func TestGetExpenseErrors(t *testing.T) {
	env := setupTestServer(t, false)
	ctx := context.Background()

	_, err := env.expenses.GetExpense(ctx, connect.NewRequest(&api.GetExpenseRequest{ExpenseID: "missing"}))
	checkCode(t, err, connect.CodeNotFound)

	_, err = env.expenses.GetExpense(ctx, connect.NewRequest(&api.GetExpenseRequest{}))
	checkCode(t, err, connect.CodeInvalidArgument)
}

func TestAddExpense(t *testing.T) {
	env := setupTestServer(t, false)
	ctx := context.Background()

	input := api.Expense{
		ID:          "e3",
		Description: "Museum",
		Amount:      40,
		Date:        "2024-05-03",
		GroupID:     "g1",
		PaidBy:      api.User{ID: "1", Name: "John Doe"},
		Splits:      []api.Split{{UserID: "1", Amount: 20}, {UserID: "2", Amount: 20}},
	}

	resp, err := env.expenses.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{Expense: input}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if resp.Msg.Expense.ID != "e3" || resp.Msg.Expense.DisplayDate != "5/3/2024" {
		t.Errorf("unexpected view: %+v", resp.Msg.Expense)
	}
	if resp.Msg.Expense.CreatedAt == "" {
		t.Error("expected CreatedAt to be stamped")
	}

	_, err = env.expenses.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{Expense: input}))
	checkCode(t, err, connect.CodeAlreadyExists)

	list, err := env.expenses.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	count := 0
	for _, v := range list.Msg.Expenses {
		if v.ID == "e3" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected e3 exactly once, found %d", count)
	}

	got := env.events.Events()
	if len(got) != 1 || got[0].Type != events.ExpenseCreated || got[0].ExpenseID != "e3" || got[0].GroupID != "g1" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestAddExpenseAssignsID(t *testing.T) {
	env := setupTestServer(t, false)

	resp, err := env.expenses.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{
		Expense: api.Expense{
			Description: "Snacks",
			Amount:      10,
			PaidBy:      api.User{ID: "1"},
			Splits:      []api.Split{{UserID: "1", Amount: 10}},
		},
	}))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if resp.Msg.Expense.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	// No group: name and emoji stay blank.
	if resp.Msg.Expense.GroupName != "" || resp.Msg.Expense.GroupEmoji != "" {
		t.Errorf("unexpected group on view: %+v", resp.Msg.Expense)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		expense api.Expense
	}{
		{
			name:    "negative amount",
			expense: api.Expense{Amount: -1, PaidBy: api.User{ID: "1"}},
		},
		{
			name:    "missing payer",
			expense: api.Expense{Amount: 10},
		},
		{
			name: "negative split",
			expense: api.Expense{
				Amount: 10,
				PaidBy: api.User{ID: "1"},
				Splits: []api.Split{{UserID: "1", Amount: -5}},
			},
		},
		{
			name: "duplicate split user",
			expense: api.Expense{
				Amount: 10,
				PaidBy: api.User{ID: "1"},
				Splits: []api.Split{{UserID: "1", Amount: 5}, {UserID: "1", Amount: 5}},
			},
		},
	}

	env := setupTestServer(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.AddExpense(context.Background(), connect.NewRequest(&api.AddExpenseRequest{Expense: tt.expense}))
			checkCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestStrictSplits(t *testing.T) {
	env := setupTestServer(t, true)
	ctx := context.Background()

	_, err := env.expenses.AddExpense(ctx, connect.NewRequest(&api.AddExpenseRequest{
		Expense: api.Expense{
			ID:     "bad",
			Amount: 100,
			PaidBy: api.User{ID: "1"},
			Splits: []api.Split{{UserID: "1", Amount: 30}, {UserID: "2", Amount: 30}},
		},
	}))
	checkCode(t, err, connect.CodeInvalidArgument)

	// Changing only the amount would leave e2's splits behind.
	_, err = env.expenses.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseID: "e2",
		Amount:    floatPtr(50),
	}))
	checkCode(t, err, connect.CodeInvalidArgument)

	// Re-deriving the shares keeps the expense consistent.
	resp, err := env.expenses.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseID: "e2",
		Amount:    floatPtr(50),
		SplitMode: "equal",
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if resp.Msg.Expense.Warning != nil {
		t.Errorf("unexpected warning: %+v", resp.Msg.Expense.Warning)
	}
}

func TestUpdateExpenseChangesOnlyPatchedFields(t *testing.T) {
	env := setupTestServer(t, false)
	ctx := context.Background()

	resp, err := env.expenses.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseID:   "e2",
		Description: strPtr("X"),
		Amount:      floatPtr(10),
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	got := resp.Msg.Expense
	if got.Description != "X" || got.Amount != 10 {
		t.Errorf("patched fields = %q %v, want X 10", got.Description, got.Amount)
	}
	if got.Date != "2024-05-02T08:00:00Z" || got.GroupID != "g1" || got.PaidBy.ID != "1" {
		t.Errorf("unpatched fields changed: %+v", got)
	}
	if len(got.Splits) != 2 || got.Splits[0].Amount != 15 || got.Splits[1].Amount != 15 {
		t.Errorf("splits changed: %+v", got.Splits)
	}
	// Shares stay authoritative, so the drift is reported rather than fixed.
	if got.Warning == nil {
		t.Error("expected split warning after amount-only edit")
	}
	if got.UpdatedAt == "" {
		t.Error("expected UpdatedAt to be stamped")
	}

	evs := env.events.Events()
	if len(evs) != 1 || evs[0].Type != events.ExpenseUpdated {
		t.Errorf("unexpected events: %+v", evs)
	}
}

func TestUpdateExpenseSplitModes(t *testing.T) {
	tests := []struct {
		name   string
		req    *api.UpdateExpenseRequest
		want   map[string]float64
		code   connect.Code
		hasErr bool
	}{
		{
			name: "equal with new amount",
			req:  &api.UpdateExpenseRequest{ExpenseID: "e2", Amount: floatPtr(10.01), SplitMode: "equal"},
			want: map[string]float64{"1": 5.01, "2": 5.00},
		},
		{
			name: "exact",
			req: &api.UpdateExpenseRequest{
				ExpenseID:   "e2",
				SplitMode:   "exact",
				SplitInputs: map[string]float64{"1": 10, "2": 20},
			},
			want: map[string]float64{"1": 10, "2": 20},
		},
		{
			name: "percentage",
			req: &api.UpdateExpenseRequest{
				ExpenseID:   "e1",
				SplitMode:   "percentage",
				SplitInputs: map[string]float64{"1": 25, "2": 75},
			},
			want: map[string]float64{"1": 30, "2": 90},
		},
		{
			name:   "exact not summing to amount",
			req:    &api.UpdateExpenseRequest{ExpenseID: "e2", SplitMode: "exact", SplitInputs: map[string]float64{"1": 1}},
			code:   connect.CodeInvalidArgument,
			hasErr: true,
		},
		{
			name:   "unknown mode",
			req:    &api.UpdateExpenseRequest{ExpenseID: "e2", SplitMode: "shares"},
			code:   connect.CodeInvalidArgument,
			hasErr: true,
		},
		{
			name:   "input for non-participant",
			req:    &api.UpdateExpenseRequest{ExpenseID: "e2", SplitMode: "exact", SplitInputs: map[string]float64{"9": 30}},
			code:   connect.CodeInvalidArgument,
			hasErr: true,
		},
		{
			name:   "missing expense",
			req:    &api.UpdateExpenseRequest{ExpenseID: "nope", Description: strPtr("X")},
			code:   connect.CodeNotFound,
			hasErr: true,
		},
		{
			name:   "negative amount",
			req:    &api.UpdateExpenseRequest{ExpenseID: "e2", Amount: floatPtr(-3)},
			code:   connect.CodeInvalidArgument,
			hasErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, false)
			resp, err := env.expenses.UpdateExpense(context.Background(), connect.NewRequest(tt.req))
			if tt.hasErr {
				checkCode(t, err, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("UpdateExpense failed: %v", err)
			}
			if resp.Msg.Expense.Warning != nil {
				t.Errorf("unexpected warning: %+v", resp.Msg.Expense.Warning)
			}
			for _, s := range resp.Msg.Expense.Splits {
				if !approxEqual(s.Amount, tt.want[s.UserID]) {
					t.Errorf("split %s = %v, want %v", s.UserID, s.Amount, tt.want[s.UserID])
				}
			}
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	env := setupTestServer(t, false)
	ctx := context.Background()

	if _, err := env.expenses.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: "e1"})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	list, err := env.expenses.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if _, ok := findView(list.Msg.Expenses, "e1"); ok {
		t.Error("e1 still listed after delete")
	}

	// Deleting again is a no-op.
	if _, err := env.expenses.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: "e1"})); err != nil {
		t.Fatalf("second DeleteExpense failed: %v", err)
	}

	evs := env.events.Events()
	if len(evs) != 1 || evs[0].Type != events.ExpenseDeleted || evs[0].GroupID != "g1" {
		t.Errorf("unexpected events: %+v", evs)
	}
}

func TestDisplayDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-05-01T19:30:00Z", "5/1/2024"},
		{"2024-12-25T08:00:00.123+02:00", "12/25/2024"},
		{"2024-01-09", "1/9/2024"},
		{"yesterday", "yesterday"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := displayDate(tt.raw, DefaultDateLayout); got != tt.want {
			t.Errorf("displayDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestConcurrentUpdatesKeepSplitsConsistent(t *testing.T) {
	ctx := context.Background()

	mem, err := memory.New(storagetest.Seed())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	store := &hookedStore{ExpenseStore: mem}
	svc := NewExpenseService(store, testGroups(), ExpenseOptions{
		StrictSplits: true,
		Publisher:    &events.Recorder{},
	})

	// The first update raises e2 to 60. While it holds its snapshot, a second
	// update sets exact shares that only add up to the old total of 30.
	var wg sync.WaitGroup
	var secondErr error
	store.afterGet = func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, secondErr = svc.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
				ExpenseID:   "e2",
				SplitMode:   "exact",
				SplitInputs: map[string]float64{"1": 10, "2": 20},
			}))
		}()
		time.Sleep(50 * time.Millisecond)
	}

	_, err = svc.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseID: "e2",
		Amount:    floatPtr(60),
		SplitMode: "equal",
	}))
	if err != nil {
		t.Fatalf("first UpdateExpense failed: %v", err)
	}
	wg.Wait()
	if secondErr == nil {
		t.Error("second UpdateExpense succeeded against a stale total, want an error")
	}

	final, err := mem.GetExpense(ctx, "e2")
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if final.Amount != 60 {
		t.Errorf("amount = %v, want 60", final.Amount)
	}
	if m := calculator.CheckSplits(final); m != nil {
		t.Errorf("splits drifted after concurrent updates: %v", m)
	}
}
