package core

import (
	"testing"
	"time"
)

func applyPlan(balances map[string]Money, plan []Instruction) map[string]int64 {
	out := make(map[string]int64, len(balances))
	for person, m := range balances {
		out[person] = m.Cents
	}
	for _, ins := range plan {
		out[ins.From] += ins.Amount.Cents
		out[ins.To] -= ins.Amount.Cents
	}
	return out
}

func TestSettleClosesAllBalances(t *testing.T) {
	l := newTestLedger(t, "Alex", "Ben", "Cara", "Danielle")
	if _, err := l.AppendExpense("Cara", Money{Cents: 120},
		map[string]int64{"Ben": 45, "Alex": 25, "Cara": 25, "Danielle": 25}, "", time.Time{}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	plan := l.Settle()
	if len(plan) > 3 {
		t.Fatalf("plan has %d instructions, want at most 3", len(plan))
	}

	want := []Instruction{
		{From: "Ben", To: "Cara", Amount: Money{Cents: 45}},
		{From: "Alex", To: "Cara", Amount: Money{Cents: 25}},
		{From: "Danielle", To: "Cara", Amount: Money{Cents: 25}},
	}
	for i, ins := range plan {
		if ins != want[i] {
			t.Fatalf("instruction %d = %+v, want %+v", i, ins, want[i])
		}
	}

	for person, cents := range applyPlan(l.Balances(), plan) {
		if cents != 0 {
			t.Fatalf("balance for %s after applying plan = %d, want 0", person, cents)
		}
	}
}

func TestSettleEmptyAndSettled(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob")
	if plan := l.Settle(); len(plan) != 0 {
		t.Fatalf("plan for empty ledger has %d instructions", len(plan))
	}

	if _, err := l.AppendPayment("Alice", "Bob", Money{Cents: 100}, "", time.Time{}); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if _, err := l.AppendPayment("Bob", "Alice", Money{Cents: 100}, "", time.Time{}); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if plan := l.Settle(); len(plan) != 0 {
		t.Fatalf("plan for settled ledger has %d instructions", len(plan))
	}
}

func TestSettleTieBreaksByRegistration(t *testing.T) {
	l := newTestLedger(t, "Alice", "Bob", "Carol", "Dave")
	// Alice and Bob each owe 50; Carol and Dave are each owed 50.
	if _, err := l.AppendExpense("Carol", Money{Cents: 50},
		map[string]int64{"Alice": 50}, "", time.Time{}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if _, err := l.AppendExpense("Dave", Money{Cents: 50},
		map[string]int64{"Bob": 50}, "", time.Time{}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	plan := l.Settle()
	want := []Instruction{
		{From: "Alice", To: "Carol", Amount: Money{Cents: 50}},
		{From: "Bob", To: "Dave", Amount: Money{Cents: 50}},
	}
	if len(plan) != len(want) {
		t.Fatalf("plan = %+v, want %+v", plan, want)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Fatalf("instruction %d = %+v, want %+v", i, plan[i], want[i])
		}
	}
}

func TestSettleInstructionBound(t *testing.T) {
	people := []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	l := newTestLedger(t, people...)

	// P1 fronts everything; five debtors with uneven shares.
	shares := map[string]int64{"P2": 100, "P3": 250, "P4": 75, "P5": 300, "P6": 275}
	if _, err := l.AppendExpense("P1", Money{Cents: 1000}, shares, "", time.Time{}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	plan := l.Settle()
	nonzero := 0
	for _, m := range l.Balances() {
		if m.Cents != 0 {
			nonzero++
		}
	}
	if len(plan) > nonzero-1 {
		t.Fatalf("plan has %d instructions for %d nonzero balances", len(plan), nonzero)
	}
	for _, ins := range plan {
		if ins.Amount.Cents <= 0 {
			t.Fatalf("non-positive instruction amount: %+v", ins)
		}
	}
	for person, cents := range applyPlan(l.Balances(), plan) {
		if cents != 0 {
			t.Fatalf("balance for %s after plan = %d, want 0", person, cents)
		}
	}
}
