// Package cache stores computed group balances between expense mutations.
package cache

import (
	"context"

	"github.com/mmynk/splitledger/internal/calculator"
)

// GroupBalances is the cached result of calculator.CalculateGroupBalances.
type GroupBalances struct {
	Members []calculator.MemberBalance `json:"members"`
	Debts   []calculator.DebtEdge      `json:"debts"`
}

// BalanceCache caches group balances keyed by group ID.
// A miss is reported with ok == false and a nil error.
type BalanceCache interface {
	Get(ctx context.Context, groupID string) (balances GroupBalances, ok bool, err error)
	Set(ctx context.Context, groupID string, balances GroupBalances) error
	Invalidate(ctx context.Context, groupIDs ...string) error
	Close() error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (GroupBalances, bool, error) {
	return GroupBalances{}, false, nil
}
func (Noop) Set(context.Context, string, GroupBalances) error { return nil }
func (Noop) Invalidate(context.Context, ...string) error      { return nil }
func (Noop) Close() error                                     { return nil }

var (
	_ BalanceCache = Noop{}
	_ BalanceCache = (*MemoryCache)(nil)
	_ BalanceCache = (*Versioned)(nil)
	_ BalanceCache = (*RedisCache)(nil)
)
