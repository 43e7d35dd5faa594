package data

import (
	"context"
	"encoding/json"
	"fmt"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/ports"
)

// AllowlistKey holds the whole allowlist as one JSON array.
const AllowlistKey = "allowlist:entries"

// AllowlistRepo loads and saves the allowlist document.
type AllowlistRepo struct {
	store ports.KVStore
}

// NewAllowlistRepo creates an allowlist repository.
func NewAllowlistRepo(store ports.KVStore) *AllowlistRepo {
	return &AllowlistRepo{store: store}
}

// Load returns the stored entries in stored order. A missing or undecodable
// document reads as an empty list.
func (r *AllowlistRepo) Load(ctx context.Context) ([]domainauth.AllowlistEntry, error) {
	raw, err := r.store.Get(ctx, AllowlistKey)
	if err != nil {
		return nil, fmt.Errorf("get allowlist: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var entries []domainauth.AllowlistEntry
	if json.Unmarshal(raw, &entries) != nil {
		return nil, nil
	}
	return entries, nil
}

// Save replaces the stored entries.
func (r *AllowlistRepo) Save(ctx context.Context, entries []domainauth.AllowlistEntry) error {
	if entries == nil {
		entries = []domainauth.AllowlistEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal allowlist: %w", err)
	}
	if err := r.store.Put(ctx, AllowlistKey, raw); err != nil {
		return fmt.Errorf("put allowlist: %w", err)
	}
	return nil
}
