package data

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultLRUCacheSize bounds the number of entries held by LRUCacheRepo.
const DefaultLRUCacheSize = 512

// LRUCacheRepo implements ports.CacheRepository in process memory.
// The TTL is fixed at construction and the per-call TTL is ignored.
type LRUCacheRepo struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCacheRepo creates a bounded in-memory cache whose entries live for ttl.
func NewLRUCacheRepo(size int, ttl time.Duration) *LRUCacheRepo {
	if size <= 0 {
		size = DefaultLRUCacheSize
	}
	return &LRUCacheRepo{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (r *LRUCacheRepo) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	r.lru.Add(key, append([]byte(nil), value...))
	return nil
}

func (r *LRUCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}
	v, ok := r.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}
