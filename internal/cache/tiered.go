package cache

import "context"

// TieredStore layers the in-process tier over a shared one. Lookups try the
// local tier first and backfill it on a shared hit; writes go through to
// both.
type TieredStore struct {
	local  Store
	shared Store
}

// NewTieredStore combines a local and a shared tier. Both must be non-nil;
// with no shared tier, use the local store directly.
func NewTieredStore(local, shared Store) *TieredStore {
	return &TieredStore{local: local, shared: shared}
}

// Get returns the cached translation for key from the nearest tier.
func (t *TieredStore) Get(ctx context.Context, key Key) (*CachedTranslation, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	if v, ok := t.shared.Get(ctx, key); ok {
		t.local.Put(ctx, key, *v)
		return v, true
	}
	return nil, false
}

// Put writes value to both tiers.
func (t *TieredStore) Put(ctx context.Context, key Key, value CachedTranslation) {
	t.local.Put(ctx, key, value)
	t.shared.Put(ctx, key, value)
}
