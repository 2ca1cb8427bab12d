// Package services orchestrates ledger operations across the configured
// store and the optional AMQP sync pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divider/internal/core"
	"divider/internal/ledgers"
)

// SyncPublisher pushes transaction pointers onto the sync queue. The AMQP
// client satisfies it; tests use a local double.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, ledger, txID string, undone bool) error
}

// LedgerService saves mutations to the store first, then publishes a sync
// message. Publishing is best effort: a queue outage never fails a request
// whose data already landed in the store.
type LedgerService struct {
	store     ledgers.Store
	publisher SyncPublisher
}

func NewLedgerService(store ledgers.Store, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// CreateLedger registers a new named ledger with its initial participants.
func (s *LedgerService) CreateLedger(ctx context.Context, name string, people []string) error {
	if _, err := s.store.Create(ctx, name, people); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Ledger created", "name", name, "people", len(people))
	return nil
}

// ListLedgers returns all known ledger names.
func (s *LedgerService) ListLedgers(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// GetLedger loads a ledger by name.
func (s *LedgerService) GetLedger(ctx context.Context, name string) (*core.Ledger, error) {
	return s.store.Load(ctx, name)
}

// AddPerson registers a new participant on an existing ledger.
func (s *LedgerService) AddPerson(ctx context.Context, ledger, person string) error {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return err
	}
	if err := l.AddPerson(person); err != nil {
		return err
	}
	return s.store.Save(ctx, ledger, l)
}

// AddPayment appends a direct payment and returns the transaction id.
func (s *LedgerService) AddPayment(ctx context.Context, ledger, from, to string, amount core.Money, description string) (string, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return "", err
	}
	id, err := l.AppendPayment(from, to, amount, description, time.Time{})
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, ledger, l); err != nil {
		return "", fmt.Errorf("save ledger: %w", err)
	}

	s.publishSync(ctx, ledger, id, false)
	return id, nil
}

// AddExpense appends a shared expense with explicit shares and returns the
// transaction id.
func (s *LedgerService) AddExpense(ctx context.Context, ledger, payer string, total core.Money, shares map[string]int64, description string) (string, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return "", err
	}
	id, err := l.AppendExpense(payer, total, shares, description, time.Time{})
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, ledger, l); err != nil {
		return "", fmt.Errorf("save ledger: %w", err)
	}

	s.publishSync(ctx, ledger, id, false)
	return id, nil
}

// AddEvenExpense splits the total evenly among the given people, or among
// everyone on the ledger when the list is empty.
func (s *LedgerService) AddEvenExpense(ctx context.Context, ledger, payer string, total core.Money, among []string, description string) (string, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return "", err
	}
	if len(among) == 0 {
		among = l.People()
	}
	shares, err := l.EvenShares(total, among)
	if err != nil {
		return "", err
	}
	id, err := l.AppendExpense(payer, total, shares, description, time.Time{})
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, ledger, l); err != nil {
		return "", fmt.Errorf("save ledger: %w", err)
	}

	s.publishSync(ctx, ledger, id, false)
	return id, nil
}

// Undo deactivates a transaction by id.
func (s *LedgerService) Undo(ctx context.Context, ledger, txID string) error {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return err
	}
	if err := l.Undo(txID); err != nil {
		return err
	}
	if err := s.store.Save(ctx, ledger, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	s.publishSync(ctx, ledger, txID, true)
	return nil
}

// Balances returns the current net position of every participant.
func (s *LedgerService) Balances(ctx context.Context, ledger string) (map[string]core.Money, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return nil, err
	}
	return l.Balances(), nil
}

// Verify replays the transaction log and checks the zero-sum invariant.
func (s *LedgerService) Verify(ctx context.Context, ledger string) error {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return err
	}
	return l.Verify(nil)
}

// Settle computes the minimal payment plan that clears all balances.
func (s *LedgerService) Settle(ctx context.Context, ledger string) ([]core.Instruction, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return nil, err
	}
	return l.Settle(), nil
}

// Transactions returns the full transaction history, undone entries included.
func (s *LedgerService) Transactions(ctx context.Context, ledger string) ([]core.Transaction, error) {
	l, err := s.store.Load(ctx, ledger)
	if err != nil {
		return nil, err
	}
	return l.Transactions(), nil
}

func (s *LedgerService) publishSync(ctx context.Context, ledger, txID string, undone bool) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, ledger, txID, undone); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"ledger", ledger, "tx_id", txID, "error", err)
	}
}

// Close closes the underlying store.
func (s *LedgerService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
