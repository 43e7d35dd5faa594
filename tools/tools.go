//go:build tools

// Package tools lists the development tools used on this repo. They are run
// with `go run pkg@version` or installed globally, so go.mod does not track them.
package tools

// mockgen regenerates internal/mocks:
//
//	go generate ./internal/mocks
//
// It is pinned in the go:generate directives to go.uber.org/mock/mockgen@v0.6.0.
//
// golangci-lint drives the nolint directives (forbidigo, ireturn) found in the code:
//
//	go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest
