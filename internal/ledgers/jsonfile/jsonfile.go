// Package jsonfile stores each ledger as one JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"divider/internal/core"
	"divider/internal/ledgers"
)

// Store keeps one <name>.json file per ledger under a data directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ ledgers.Store = (*Store)(nil)

// New creates the data directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// List implements ledgers.Store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load implements ledgers.Store.
func (s *Store) Load(ctx context.Context, name string) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrNoSuchLedger
	}
	return l, err
}

// Save implements ledgers.Store.
func (s *Store) Save(ctx context.Context, name string, l *core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteFile(s.path(name), l)
}

// Create implements ledgers.Store.
func (s *Store) Create(ctx context.Context, name string, people []string) (*core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(name)); err == nil {
		return nil, core.ErrDuplicateLedger
	}
	l, err := core.NewLedger(people)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(s.path(name), l); err != nil {
		return nil, err
	}
	return l, nil
}

// Close implements ledgers.Store.
func (s *Store) Close() error { return nil }

// ledgerDoc is the on-disk schema. Field names are part of the file format.
type ledgerDoc struct {
	People       []string `json:"people"`
	NextSeq      int64    `json:"next_seq"`
	Transactions []txDoc  `json:"transactions"`
}

type txDoc struct {
	ID          string           `json:"id"`
	Seq         int64            `json:"seq"`
	Kind        string           `json:"kind"`
	Payer       string           `json:"payer"`
	Payee       string           `json:"payee,omitempty"`
	AmountCents int64            `json:"amount_cents"`
	Shares      map[string]int64 `json:"shares,omitempty"`
	Description string           `json:"description,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Active      bool             `json:"active"`
}

// ReadFile reconstructs a ledger from a single JSON file.
func ReadFile(path string) (*core.Ledger, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc ledgerDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse ledger file: %w", err)
	}

	txs := make([]core.Transaction, len(doc.Transactions))
	for i, td := range doc.Transactions {
		txs[i] = core.Transaction{
			ID:          td.ID,
			Seq:         td.Seq,
			Kind:        td.Kind,
			Payer:       td.Payer,
			Payee:       td.Payee,
			Amount:      core.Money{Cents: td.AmountCents},
			Shares:      td.Shares,
			Description: td.Description,
			Timestamp:   td.Timestamp,
			Active:      td.Active,
		}
	}
	l, err := core.Restore(doc.People, doc.NextSeq, txs)
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	return l, nil
}

// WriteFile persists a ledger as JSON via a temp file then rename, so readers
// never observe a half-written document.
func WriteFile(path string, l *core.Ledger) error {
	txs := l.Transactions()
	doc := ledgerDoc{
		People:       l.People(),
		NextSeq:      l.NextSeq(),
		Transactions: make([]txDoc, len(txs)),
	}
	for i, tx := range txs {
		doc.Transactions[i] = txDoc{
			ID:          tx.ID,
			Seq:         tx.Seq,
			Kind:        tx.Kind,
			Payer:       tx.Payer,
			Payee:       tx.Payee,
			AmountCents: tx.Amount.Cents,
			Shares:      tx.Shares,
			Description: tx.Description,
			Timestamp:   tx.Timestamp,
			Active:      tx.Active,
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	return os.Rename(tmp, path)
}
