package redis

// Package redis provides Redis-based adapters for the dashboard store.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace is prepended to every key written through KVStore.
const DefaultNamespace = "xnome:"

const scanCount = 200

// KVStore implements ports.KVStore on a Redis UniversalClient.
// Keys are namespaced so the dashboard can share a Redis deployment.
type KVStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewKVStore creates a Redis KV store using DefaultNamespace.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return NewKVStoreWithNamespace(client, DefaultNamespace)
}

// NewKVStoreWithNamespace creates a Redis KV store with a custom key namespace.
func NewKVStoreWithNamespace(client redis.UniversalClient, namespace string) *KVStore {
	return &KVStore{client: client, namespace: namespace}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}
	data, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Put stores value without expiry.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// List walks the keyspace with SCAN; on a cluster every master is scanned.
func (s *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.namespace + prefix
	match := escapeGlob(full) + "*"

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	scan := func(ctx context.Context, c redis.Cmdable) error {
		iter := c.Scan(ctx, 0, match, scanCount).Iterator()
		for iter.Next(ctx) {
			k := iter.Val()
			if !strings.HasPrefix(k, full) {
				continue
			}
			mu.Lock()
			seen[strings.TrimPrefix(k, s.namespace)] = struct{}{}
			mu.Unlock()
		}
		return iter.Err()
	}

	var err error
	if cc, ok := s.client.(*redis.ClusterClient); ok {
		err = cc.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
			return scan(ctx, c)
		})
	} else {
		err = scan(ctx, s.client)
	}
	if err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Health checks the health of the Redis connection.
func (s *KVStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// escapeGlob escapes Redis glob metacharacters so prefix matches literally.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
