package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-ledgerflow/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const accountStateCacheKeyPrefix = "go-ledgerflow::account_state::v1"

// CachedAccountStateStore serves snapshots from cache and invalidates the
// entry on every write.
type CachedAccountStateStore struct {
	base  core.AccountStateStore
	cache repositorycache.CacheService
}

func NewCachedAccountStateStore(
	base core.AccountStateStore,
	cacheService repositorycache.CacheService,
) (*CachedAccountStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base account state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: account state cache service is required")
	}
	return &CachedAccountStateStore{base: base, cache: cacheService}, nil
}

// AccountStateCacheKey is go-ledgerflow::account_state::v1::<principal>.
func AccountStateCacheKey(user core.UserID) (string, error) {
	if user.IsZero() {
		return "", fmt.Errorf("sqlstore: account user id is required")
	}
	return strings.Join([]string{accountStateCacheKeyPrefix, url.PathEscape(user.String())}, "::"), nil
}

func (s *CachedAccountStateStore) Snapshot(ctx context.Context, caller core.UserID) (core.RuntimeSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.RuntimeSnapshot{}, fmt.Errorf("sqlstore: cached account state store is not configured")
	}
	cacheKey, err := AccountStateCacheKey(caller)
	if err != nil {
		return core.RuntimeSnapshot{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.RuntimeSnapshot, error) {
		return s.base.Snapshot(ctx, caller)
	})
}

func (s *CachedAccountStateStore) SetAccountState(ctx context.Context, state core.AccountState) (core.AccountState, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.AccountState{}, fmt.Errorf("sqlstore: cached account state store is not configured")
	}
	cacheKey, err := AccountStateCacheKey(state.User)
	if err != nil {
		return core.AccountState{}, err
	}
	saved, err := s.base.SetAccountState(ctx, state)
	if err != nil {
		return core.AccountState{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.AccountState{}, err
	}
	return saved, nil
}

var _ core.AccountStateStore = (*CachedAccountStateStore)(nil)
