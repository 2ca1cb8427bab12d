// Package memory is a transaction writer test double that records appended
// rows in process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"divider/internal/core"
	ports "divider/internal/sheets"
)

type Row struct {
	Ledger string
	Tx     core.Transaction
}

type Store struct {
	mu   sync.Mutex
	rows []Row

	// FailNext makes the next Append return an error, for failure-path tests.
	FailNext bool
}

var _ ports.TransactionWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, ledger string, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return "", fmt.Errorf("append failed")
	}
	s.rows = append(s.rows, Row{Ledger: ledger, Tx: tx})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
