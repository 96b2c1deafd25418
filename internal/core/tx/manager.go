// Package tx is the transaction contract shared by the storage drivers.
package tx

import (
	"context"
	"errors"
)

// ErrNoTransaction is returned by operations that must run inside a transaction.
var ErrNoTransaction = errors.New("operation requires an active transaction")

// Manager runs units of work atomically. Row locks taken inside fn are
// held until the outermost transaction ends, and a nested call joins the
// transaction already in ctx.
type Manager interface {
	// RunInTransaction commits when fn returns nil and rolls back otherwise.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	InTransaction(ctx context.Context) bool

	// Snapshot runs fn read-only against a single consistent view, so
	// several aggregate queries agree with each other.
	Snapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
