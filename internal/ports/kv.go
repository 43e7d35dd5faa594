package ports

import "context"

// KVStore is an opaque durable key-value namespace holding JSON documents.
// There are no transactions; concurrent writers to one key race and the last
// write wins.
type KVStore interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// List returns every key starting with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}

// HealthChecker is implemented by stores backed by a remote connection.
type HealthChecker interface {
	Health(ctx context.Context) error
}
