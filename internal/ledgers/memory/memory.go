// Package memory is an in-process ledger store used by tests and as the
// default development backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"divider/internal/core"
	"divider/internal/ledgers"
)

type Store struct {
	mu      sync.Mutex
	ledgers map[string]*core.Ledger
}

var _ ledgers.Store = (*Store)(nil)

func New() *Store {
	return &Store{ledgers: make(map[string]*core.Ledger)}
}

// List implements ledgers.Store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.ledgers))
	for name := range s.ledgers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load implements ledgers.Store. The ledger instance is shared, matching the
// single-process model: mutations through it are guarded by the core mutex.
func (s *Store) Load(ctx context.Context, name string) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[name]
	if !ok {
		return nil, core.ErrNoSuchLedger
	}
	return l, nil
}

// Save implements ledgers.Store.
func (s *Store) Save(ctx context.Context, name string, l *core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[name] = l
	return nil
}

// Create implements ledgers.Store.
func (s *Store) Create(ctx context.Context, name string, people []string) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ledgers[name]; ok {
		return nil, core.ErrDuplicateLedger
	}
	l, err := core.NewLedger(people)
	if err != nil {
		return nil, err
	}
	s.ledgers[name] = l
	return l, nil
}

// Close implements ledgers.Store.
func (s *Store) Close() error { return nil }
