package cache

import (
	"context"
	"sync"
)

// Versioned guards a BalanceCache against storing results computed from a
// snapshot that a write has since replaced. Readers take a Version before
// reading expenses and store through SetIfCurrent; writers call Invalidate
// after every mutation.
//
// Versions are per process. With a shared redis cache a write in another
// process is still bounded only by the cache TTL.
type Versioned struct {
	BalanceCache

	mu       sync.Mutex
	versions map[string]uint64
}

// NewVersioned wraps inner. A nil inner caches nothing.
func NewVersioned(inner BalanceCache) *Versioned {
	if inner == nil {
		inner = Noop{}
	}
	return &Versioned{BalanceCache: inner, versions: make(map[string]uint64)}
}

// Version returns the group's current version.
func (v *Versioned) Version(groupID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[groupID]
}

// SetIfCurrent stores balances only if no Invalidate for the group happened
// since version was taken. It reports whether the value was stored.
func (v *Versioned) SetIfCurrent(ctx context.Context, groupID string, version uint64, balances GroupBalances) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.versions[groupID] != version {
		return false, nil
	}
	if err := v.BalanceCache.Set(ctx, groupID, balances); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate bumps the groups' versions and drops their cached balances.
// The version moves even if the inner cache fails, so no older result can
// be stored afterwards.
func (v *Versioned) Invalidate(ctx context.Context, groupIDs ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range groupIDs {
		v.versions[id]++
	}
	return v.BalanceCache.Invalidate(ctx, groupIDs...)
}
