package core

import (
	"errors"
	"testing"
	"time"
)

func newTestLedger(t *testing.T, people ...string) *Ledger {
	t.Helper()
	l, err := NewLedger(people)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func checkBalances(t *testing.T, l *Ledger, want map[string]int64) {
	t.Helper()
	got := l.Balances()
	if len(got) != len(want) {
		t.Fatalf("got %d balances, want %d", len(got), len(want))
	}
	var sum int64
	for person, cents := range want {
		if got[person].Cents != cents {
			t.Fatalf("balance for %s = %d, want %d", person, got[person].Cents, cents)
		}
		sum += got[person].Cents
	}
	if sum != 0 {
		t.Fatalf("balances sum to %d, want 0", sum)
	}
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry([]string{"Alice", "Bob"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Register("Alice"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate register: got %v, want ErrDuplicateName", err)
	}
	if err := reg.Register("  "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("blank register: got %v, want ErrEmptyName", err)
	}
	all := reg.All()
	if len(all) != 2 || all[0] != "Alice" || all[1] != "Bob" {
		t.Fatalf("All() = %v, want registration order", all)
	}
	if reg.Position("Bob") != 1 || reg.Position("Nobody") != -1 {
		t.Fatalf("unexpected positions: Bob=%d Nobody=%d", reg.Position("Bob"), reg.Position("Nobody"))
	}
}

func TestExpenseBalances(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob", "Charlie")

	_, err := l.AppendExpense("Alice", Money{Cents: 75},
		map[string]int64{"Alice": 25, "Bob": 25, "Charlie": 25}, "dinner", time.Time{})
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	checkBalances(t, l, map[string]int64{"Alice": 50, "Bob": -25, "Charlie": -25})
	if spend := l.TotalSpend(); spend.Cents != 75 {
		t.Fatalf("TotalSpend = %d, want 75", spend.Cents)
	}
}

func TestUnevenExpenseBalances(t *testing.T) {
	l := newTestLedger(t, "Alex", "Ben", "Cara", "Danielle")

	_, err := l.AppendExpense("Cara", Money{Cents: 120},
		map[string]int64{"Ben": 45, "Alex": 25, "Cara": 25, "Danielle": 25}, "groceries", time.Time{})
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	checkBalances(t, l, map[string]int64{"Ben": -45, "Alex": -25, "Danielle": -25, "Cara": 95})
}

func TestPaymentThenUndo(t *testing.T) {
	l := newTestLedger(t, "Alex", "Ben", "Cara", "Danielle")

	if _, err := l.AppendExpense("Cara", Money{Cents: 120},
		map[string]int64{"Ben": 45, "Alex": 25, "Cara": 25, "Danielle": 25}, "", time.Time{}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	id, err := l.AppendPayment("Ben", "Cara", Money{Cents: 45}, "settling up", time.Time{})
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	checkBalances(t, l, map[string]int64{"Ben": 0, "Alex": -25, "Danielle": -25, "Cara": 50})
	if err := l.Verify(nil); err != nil {
		t.Fatalf("Verify after payment: %v", err)
	}

	// Undo reverts balances exactly to the pre-payment state.
	if err := l.Undo(id); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	checkBalances(t, l, map[string]int64{"Ben": -45, "Alex": -25, "Danielle": -25, "Cara": 95})
	if err := l.Verify(nil); err != nil {
		t.Fatalf("Verify after undo: %v", err)
	}

	if err := l.Undo(id); !errors.Is(err, ErrAlreadyUndone) {
		t.Fatalf("second undo: got %v, want ErrAlreadyUndone", err)
	}
	if err := l.Undo("ffffffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("undo of unknown id: got %v, want ErrNotFound", err)
	}

	// History keeps the undone transaction with its flag cleared.
	txs := l.Transactions()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].Active || txs[1].Active {
		t.Fatalf("active flags = %v/%v, want true/false", txs[0].Active, txs[1].Active)
	}
}

func TestAppendValidation(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")

	_, err := l.AppendPayment("Alice", "Merry", Money{Cents: 100}, "", time.Time{})
	var unknown *UnknownPersonError
	if !errors.As(err, &unknown) || unknown.Name != "Merry" {
		t.Fatalf("payment to stranger: got %v, want UnknownPersonError{Merry}", err)
	}

	if _, err := l.AppendPayment("Alice", "Alice", Money{Cents: 100}, "", time.Time{}); !errors.Is(err, ErrSelfPayment) {
		t.Fatalf("self payment: got %v, want ErrSelfPayment", err)
	}
	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: 0}, "", time.Time{}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero payment: got %v, want ErrInvalidAmount", err)
	}
	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: -5}, "", time.Time{}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative payment: got %v, want ErrInvalidAmount", err)
	}

	_, err = l.AppendExpense("Alice", Money{Cents: 100},
		map[string]int64{"Alice": 60, "Bob": 60}, "", time.Time{})
	var mismatch *ShareMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("mismatched shares: got %v, want ShareMismatchError", err)
	}
	if mismatch.Total != 100 || mismatch.Shares != 120 {
		t.Fatalf("mismatch payload = %d/%d, want 100/120", mismatch.Total, mismatch.Shares)
	}

	if _, err := l.AppendExpense("Alice", Money{Cents: 100}, nil, "", time.Time{}); !errors.Is(err, ErrNoShares) {
		t.Fatalf("no shares: got %v, want ErrNoShares", err)
	}
	if _, err := l.AppendExpense("Alice", Money{Cents: 100},
		map[string]int64{"Alice": 150, "Bob": -50}, "", time.Time{}); !errors.Is(err, ErrNegativeShare) {
		t.Fatalf("negative share: got %v, want ErrNegativeShare", err)
	}

	// Nothing invalid may have reached the log.
	if txs := l.Transactions(); len(txs) != 0 {
		t.Fatalf("log has %d transactions after failed appends, want 0", len(txs))
	}
}

func TestTransactionIDs(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")

	at := time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)
	id1, err := l.AppendPayment("Alice", "Bob", Money{Cents: 100}, "same", at)
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	// Identical content must still get a distinct id via the sequence.
	id2, err := l.AppendPayment("Alice", "Bob", Money{Cents: 100}, "same", at)
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("identical transactions share id %s", id1)
	}
	if len(id1) != 8 {
		t.Fatalf("id length = %d, want 8", len(id1))
	}

	// Undo must not free the id for reuse.
	if err := l.Undo(id1); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	id3, err := l.AppendPayment("Alice", "Bob", Money{Cents: 100}, "same", at)
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if id3 == id1 || id3 == id2 {
		t.Fatalf("id %s reused after undo", id3)
	}
}

func TestDefaultTimestamp(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")
	before := time.Now().Add(-time.Minute)

	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: 10}, "", time.Time{}); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	ts := l.Transactions()[0].Timestamp
	if ts.Before(before) || ts.After(time.Now().Add(time.Minute)) {
		t.Fatalf("default timestamp %v not near now", ts)
	}
}

func TestVerifySnapshot(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")
	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: 3200}, "", time.Time{}); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}

	good := map[string]Money{"Alice": {Cents: 3200}, "Bob": {Cents: -3200}}
	if err := l.Verify(good); err != nil {
		t.Fatalf("Verify with matching snapshot: %v", err)
	}
	// Idempotent: a second run with no intervening mutation agrees.
	if err := l.Verify(good); err != nil {
		t.Fatalf("second Verify: %v", err)
	}

	bad := map[string]Money{"Alice": {Cents: 3300}, "Bob": {Cents: -3200}}
	err := l.Verify(bad)
	var mismatch *BalanceMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Verify with stale snapshot: got %v, want BalanceMismatchError", err)
	}
	if mismatch.Person != "Alice" || mismatch.Expected != 3200 || mismatch.Actual != 3300 {
		t.Fatalf("mismatch payload = %+v", mismatch)
	}
}

func TestZeroSumUnderRandomishSequence(t *testing.T) {
	l := newTestLedger(t, "Bilbo", "Frodo", "Legolas", "Gimli")

	var ids []string
	for i := 0; i < 20; i++ {
		id, err := l.AppendExpense("Bilbo", Money{Cents: 6000},
			map[string]int64{"Bilbo": 2000, "Frodo": 2000, "Legolas": 2000}, "", time.Time{})
		if err != nil {
			t.Fatalf("AppendExpense: %v", err)
		}
		ids = append(ids, id)
		if _, err := l.AppendPayment("Frodo", "Bilbo", Money{Cents: 700}, "", time.Time{}); err != nil {
			t.Fatalf("AppendPayment: %v", err)
		}
		if i%3 == 0 {
			if err := l.Undo(ids[i/2]); err != nil && !errors.Is(err, ErrAlreadyUndone) {
				t.Fatalf("Undo: %v", err)
			}
		}
		if err := l.Verify(nil); err != nil {
			t.Fatalf("Verify after step %d: %v", i, err)
		}
	}
}

func TestEvenShares(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob", "Charlie")

	// Remainder cents land on the earliest-registered people, regardless of
	// the order the caller lists them in.
	shares, err := l.EvenShares(Money{Cents: 100}, []string{"Charlie", "Alice", "Bob"})
	if err != nil {
		t.Fatalf("EvenShares: %v", err)
	}
	want := map[string]int64{"Alice": 34, "Bob": 33, "Charlie": 33}
	for person, cents := range want {
		if shares[person] != cents {
			t.Fatalf("share for %s = %d, want %d", person, shares[person], cents)
		}
	}

	if _, err := l.EvenShares(Money{Cents: 100}, nil); !errors.Is(err, ErrNoShares) {
		t.Fatalf("empty split: got %v, want ErrNoShares", err)
	}
	if _, err := l.EvenShares(Money{Cents: 100}, []string{"Merry"}); err == nil {
		t.Fatalf("expected error for unknown person")
	}
}

func TestRestore(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")
	id1, err := l.AppendPayment("Alice", "Bob", Money{Cents: 500}, "kept", time.Time{})
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	id2, err := l.AppendExpense("Bob", Money{Cents: 300},
		map[string]int64{"Alice": 150, "Bob": 150}, "undone", time.Time{})
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if err := l.Undo(id2); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	restored, err := Restore(l.People(), l.NextSeq(), l.Transactions())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	checkBalances(t, restored, map[string]int64{"Alice": 500, "Bob": -500})
	// Undo by original id must keep working after a reload.
	if err := restored.Undo(id1); err != nil {
		t.Fatalf("Undo on restored ledger: %v", err)
	}
	if err := restored.Undo(id2); !errors.Is(err, ErrAlreadyUndone) {
		t.Fatalf("restored undone flag lost: %v", err)
	}
	if restored.NextSeq() != l.NextSeq() {
		t.Fatalf("NextSeq = %d, want %d", restored.NextSeq(), l.NextSeq())
	}
}

func TestAddPerson(t *testing.T) {
	l := newTestLedger(t, "Alice")
	if err := l.AddPerson("Bob"); err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	if err := l.AddPerson("Bob"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate AddPerson: got %v, want ErrDuplicateName", err)
	}
	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: 100}, "", time.Time{}); err != nil {
		t.Fatalf("payment to added person: %v", err)
	}
	// New people start at zero in the fold.
	if err := l.AddPerson("Carol"); err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	if got := l.Balances()["Carol"].Cents; got != 0 {
		t.Fatalf("balance for Carol = %d, want 0", got)
	}
}
