package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// KindPayment moves money straight from one person to another.
	KindPayment = "payment"
	// KindExpense records one person paying a total attributed across
	// beneficiaries' shares.
	KindExpense = "expense"
)

// Transaction is an immutable record of money movement. Undo never deletes a
// transaction, it only clears the Active flag, so history stays inspectable.
type Transaction struct {
	ID          string
	Seq         int64
	Kind        string
	Payer       string
	Payee       string           // payment only
	Amount      Money            // payment amount or expense total
	Shares      map[string]int64 // expense only, cents per beneficiary
	Description string
	Timestamp   time.Time
	Active      bool
}

// validate checks referenced people and amount invariants against a registry.
func (t *Transaction) validate(reg *Registry) error {
	if !reg.Contains(t.Payer) {
		return &UnknownPersonError{Name: t.Payer}
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}

	switch t.Kind {
	case KindPayment:
		if !reg.Contains(t.Payee) {
			return &UnknownPersonError{Name: t.Payee}
		}
		if t.Payer == t.Payee {
			return ErrSelfPayment
		}
	case KindExpense:
		if len(t.Shares) == 0 {
			return ErrNoShares
		}
		var sum int64
		for person, cents := range t.Shares {
			if !reg.Contains(person) {
				return &UnknownPersonError{Name: person}
			}
			if cents < 0 {
				return ErrNegativeShare
			}
			sum += cents
		}
		if sum != t.Amount.Cents {
			return &ShareMismatchError{Total: t.Amount.Cents, Shares: sum}
		}
	default:
		return fmt.Errorf("unknown transaction kind: %s", t.Kind)
	}
	return nil
}

// deltas returns the per-person balance effect in cents. Effects always sum
// to zero: the payer gains what the counterparties collectively owe.
func (t *Transaction) deltas() map[string]int64 {
	d := make(map[string]int64)
	switch t.Kind {
	case KindPayment:
		d[t.Payer] += t.Amount.Cents
		d[t.Payee] -= t.Amount.Cents
	case KindExpense:
		d[t.Payer] += t.Amount.Cents
		for person, cents := range t.Shares {
			d[person] -= cents
		}
	}
	return d
}

// contentHash hashes the transaction content together with its insertion
// sequence. The sequence is monotonic and never reused, so hashes stay unique
// even after undos.
func (t *Transaction) contentHash(seq int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%s|%s|%d|%d|%s", seq, t.Kind, t.Payer, t.Payee, t.Amount.Cents, t.Timestamp.UnixNano(), t.Description)
	if len(t.Shares) > 0 {
		people := make([]string, 0, len(t.Shares))
		for person := range t.Shares {
			people = append(people, person)
		}
		sort.Strings(people)
		for _, person := range people {
			fmt.Fprintf(&b, "|%s=%d", person, t.Shares[person])
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
