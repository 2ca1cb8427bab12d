package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty person name")
	ErrDuplicateName   = errors.New("duplicate person name")
	ErrNoShares        = errors.New("expense has no shares")
	ErrSelfPayment     = errors.New("payer and payee are the same person")
	ErrNotFound        = errors.New("no such transaction")
	ErrAlreadyUndone   = errors.New("transaction already undone")
	ErrNegativeShare   = errors.New("negative share")
	ErrDuplicateLedger = errors.New("ledger already exists")
	ErrNoSuchLedger    = errors.New("no such ledger")
)

// UnknownPersonError reports a transaction referencing a person that is not
// registered on the ledger.
type UnknownPersonError struct {
	Name string
}

func (e *UnknownPersonError) Error() string {
	return fmt.Sprintf("unknown person: %s", e.Name)
}

// ShareMismatchError reports an expense whose shares do not sum to its total.
type ShareMismatchError struct {
	Total  int64
	Shares int64
}

func (e *ShareMismatchError) Error() string {
	return fmt.Sprintf("shares sum to %d cents, expense total is %d cents", e.Shares, e.Total)
}

// NonZeroSumError reports an integrity check that found balances not summing
// to zero. This signals a corrupted log or an upstream bug, never a user error.
type NonZeroSumError struct {
	Total int64
}

func (e *NonZeroSumError) Error() string {
	return fmt.Sprintf("balances sum to %d cents, expected 0", e.Total)
}

// BalanceMismatchError reports a divergence between a cached balance snapshot
// and the balance recomputed from the transaction log.
type BalanceMismatchError struct {
	Person   string
	Expected int64
	Actual   int64
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("balance mismatch for %s: snapshot %d cents, recomputed %d cents", e.Person, e.Actual, e.Expected)
}
