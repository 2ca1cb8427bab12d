package core

// Instruction is one suggested direct payment in a settlement plan.
type Instruction struct {
	From   string
	To     string
	Amount Money
}

// Settle computes a minimal ordered sequence of direct payments that would
// bring every balance to zero. It pairs the largest debtor with the largest
// creditor each round, breaking ties by registration order, so the plan is
// deterministic. Each round zeroes at least one party, bounding the plan at
// N-1 instructions for N nonzero balances. Settle is read-only: applying the
// plan is a separate explicit append by the caller.
func (l *Ledger) Settle() []Instruction {
	l.mu.Lock()
	defer l.mu.Unlock()

	balances := l.balancesLocked()

	type party struct {
		name  string
		cents int64
	}
	var debtors, creditors []party
	for _, name := range l.registry.All() {
		cents := balances[name].Cents
		switch {
		case cents < 0:
			debtors = append(debtors, party{name, cents})
		case cents > 0:
			creditors = append(creditors, party{name, cents})
		}
	}

	var plan []Instruction
	for len(debtors) > 0 && len(creditors) > 0 {
		// Slices hold registration order, so the first of equal
		// magnitudes wins the tie-break.
		di := 0
		for i := 1; i < len(debtors); i++ {
			if debtors[i].cents < debtors[di].cents {
				di = i
			}
		}
		ci := 0
		for i := 1; i < len(creditors); i++ {
			if creditors[i].cents > creditors[ci].cents {
				ci = i
			}
		}

		amount := -debtors[di].cents
		if creditors[ci].cents < amount {
			amount = creditors[ci].cents
		}

		plan = append(plan, Instruction{
			From:   debtors[di].name,
			To:     creditors[ci].name,
			Amount: Money{Cents: amount},
		})

		debtors[di].cents += amount
		creditors[ci].cents -= amount
		if debtors[di].cents == 0 {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
		if creditors[ci].cents == 0 {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
	}
	return plan
}
