package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"divider/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "divider.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Load(ctx, "trip"); !errors.Is(err, core.ErrNoSuchLedger) {
		t.Fatalf("Load missing: got %v, want ErrNoSuchLedger", err)
	}

	l, err := repo.Create(ctx, "trip", []string{"Alice", "Ben", "Cara"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, "trip", []string{"Alice"}); !errors.Is(err, core.ErrDuplicateLedger) {
		t.Fatalf("duplicate Create: got %v, want ErrDuplicateLedger", err)
	}

	id, err := l.AppendExpense("Alice", core.Money{Cents: 7500}, map[string]int64{
		"Alice": 2500, "Ben": 2500, "Cara": 2500,
	}, "groceries", time.Time{})
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if _, err := l.AppendPayment("Ben", "Alice", core.Money{Cents: 1000}, "partial", time.Time{}); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if err := repo.Save(ctx, "trip", l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load(ctx, "trip")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	people := loaded.People()
	want := []string{"Alice", "Ben", "Cara"}
	for i, name := range want {
		if people[i] != name {
			t.Fatalf("People() = %v, want %v", people, want)
		}
	}
	// Alice: +5000 from the expense, -1000 from Ben's payment.
	// Ben: -2500 from the expense, +1000 from paying Alice.
	balances := loaded.Balances()
	if got := balances["Alice"].Cents; got != 4000 {
		t.Errorf("Alice balance = %d, want 4000", got)
	}
	if got := balances["Ben"].Cents; got != -1500 {
		t.Errorf("Ben balance = %d, want -1500", got)
	}
	if err := loaded.Verify(nil); err != nil {
		t.Fatalf("Verify after reload: %v", err)
	}

	// Undo survives a save/load round trip by the original id.
	if err := loaded.Undo(id); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if err := repo.Save(ctx, "trip", loaded); err != nil {
		t.Fatalf("Save after undo: %v", err)
	}
	again, err := repo.Load(ctx, "trip")
	if err != nil {
		t.Fatalf("Load after undo: %v", err)
	}
	if err := again.Undo(id); !errors.Is(err, core.ErrAlreadyUndone) {
		t.Fatalf("second Undo: got %v, want ErrAlreadyUndone", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := repo.Create(ctx, name, []string{"Alice", "Ben"}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	names, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("List() = %v, want [alpha zeta]", names)
	}
}

func TestSyncStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	l, err := repo.Create(ctx, "trip", []string{"Alice", "Ben"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	first, err := l.AppendPayment("Alice", "Ben", core.Money{Cents: 500}, "", time.Time{})
	if err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if err := repo.Save(ctx, "trip", l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].TxID != first || pending[0].Ledger != "trip" {
		t.Fatalf("PendingSync = %+v, want one entry for %s", pending, first)
	}

	if err := repo.MarkSynced(ctx, "trip", first); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	// A later save must not reset the synced status.
	second, err := l.AppendPayment("Ben", "Alice", core.Money{Cents: 200}, "", time.Time{})
	if err != nil {
		t.Fatalf("second AppendPayment: %v", err)
	}
	if err := repo.Save(ctx, "trip", l); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync after resave: %v", err)
	}
	if len(pending) != 1 || pending[0].TxID != second {
		t.Fatalf("PendingSync after resave = %+v, want only %s", pending, second)
	}

	if err := repo.MarkSyncError(ctx, "trip", second); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync after error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("PendingSync after error = %+v, want empty", pending)
	}

	if err := repo.MarkSynced(ctx, "trip", "ffffffff"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("MarkSynced unknown: got %v, want ErrNotFound", err)
	}
}

func TestGetTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	l, err := repo.Create(ctx, "trip", []string{"Alice", "Ben"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, err := l.AppendExpense("Alice", core.Money{Cents: 3000}, map[string]int64{
		"Alice": 1500, "Ben": 1500,
	}, "dinner", time.Time{})
	if err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if err := repo.Save(ctx, "trip", l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	record, err := repo.GetTransaction(ctx, "trip", id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if record.Kind != core.KindExpense || record.Payer != "Alice" || record.Amount.Cents != 3000 {
		t.Fatalf("GetTransaction = %+v", record)
	}
	if record.Shares["Ben"] != 1500 {
		t.Fatalf("Shares = %v", record.Shares)
	}
	if !record.Active {
		t.Fatal("expected active transaction")
	}

	if _, err := repo.GetTransaction(ctx, "trip", "ffffffff"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown tx: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetTransaction(ctx, "nope", id); !errors.Is(err, core.ErrNoSuchLedger) {
		t.Fatalf("unknown ledger: got %v, want ErrNoSuchLedger", err)
	}
}
