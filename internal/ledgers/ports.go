// Package ledgers defines the storage port for persisting ledgers.
package ledgers

import (
	"context"

	"divider/internal/core"
)

// Store persists whole ledgers by name. Implementations must round-trip
// transaction IDs, active flags, the sequence counter and registry order, so
// undo-by-id keeps working after a reload.
type Store interface {
	// List returns the names of all stored ledgers.
	List(ctx context.Context) ([]string, error)

	// Load reconstructs the named ledger. Returns core.ErrNoSuchLedger if
	// the name is unknown.
	Load(ctx context.Context, name string) (*core.Ledger, error)

	// Save persists the ledger under name, replacing any previous state.
	Save(ctx context.Context, name string, l *core.Ledger) error

	// Create stores a fresh ledger with the given people. Returns
	// core.ErrDuplicateLedger if the name is taken.
	Create(ctx context.Context, name string, people []string) (*core.Ledger, error)

	// Close releases any resources held by the store.
	Close() error
}
