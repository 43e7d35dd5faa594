// Package mocks provides mock implementations of the dashboard ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockKVStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "allowlist:entries").Return(nil, nil)
package mocks

// Generate mock for KVStore interface from internal/ports package.
// This creates MockKVStore with methods: Get, Put, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=kv_store_mock.go github.com/xnome/dashboard/internal/ports KVStore

// Generate mock for TokenCodec interface from internal/ports package.
// This creates MockTokenCodec with methods: Sign, Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_codec_mock.go github.com/xnome/dashboard/internal/ports TokenCodec
