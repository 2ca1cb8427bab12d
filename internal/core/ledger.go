package core

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Ledger owns one registry and one transaction log. Balances are always a
// fold over the active transactions, never independently-mutable state.
// A single mutex serializes mutations and consistency-sensitive reads.
type Ledger struct {
	mu       sync.Mutex
	registry *Registry
	nextSeq  int64
	txs      []*Transaction
	byID     map[string]*Transaction
}

// idLen is the truncated hash length of transaction IDs. The full hash is
// used as fallback namespace if a truncation ever collides.
const idLen = 8

// NewLedger creates a ledger with the given people and an empty log.
func NewLedger(people []string) (*Ledger, error) {
	reg, err := NewRegistry(people)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		registry: reg,
		nextSeq:  1,
		byID:     make(map[string]*Transaction),
	}, nil
}

// Restore rebuilds a ledger from persisted state, preserving transaction IDs,
// active flags and the sequence counter so undo-by-id keeps working after a
// reload.
func Restore(people []string, nextSeq int64, txs []Transaction) (*Ledger, error) {
	l, err := NewLedger(people)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		tx := txs[i]
		if err := tx.validate(l.registry); err != nil {
			return nil, err
		}
		if _, dup := l.byID[tx.ID]; dup {
			return nil, fmt.Errorf("duplicate transaction id: %s", tx.ID)
		}
		l.txs = append(l.txs, &tx)
		l.byID[tx.ID] = &tx
		if tx.Seq >= nextSeq {
			nextSeq = tx.Seq + 1
		}
	}
	if nextSeq > l.nextSeq {
		l.nextSeq = nextSeq
	}
	return l, nil
}

// AddPerson registers a new person on an existing ledger.
func (l *Ledger) AddPerson(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Register(name)
}

// People returns the registered names in registration order.
func (l *Ledger) People() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.All()
}

// AppendPayment records a direct payment from one person to another and
// returns the assigned transaction ID.
func (l *Ledger) AppendPayment(from, to string, amount Money, description string, at time.Time) (string, error) {
	tx := &Transaction{
		Kind:        KindPayment,
		Payer:       from,
		Payee:       to,
		Amount:      amount,
		Description: description,
		Timestamp:   at,
	}
	return l.append(tx)
}

// AppendExpense records one person paying a total split across the given
// shares and returns the assigned transaction ID. Shares must sum to total.
func (l *Ledger) AppendExpense(payer string, total Money, shares map[string]int64, description string, at time.Time) (string, error) {
	copied := make(map[string]int64, len(shares))
	for person, cents := range shares {
		copied[person] = cents
	}
	tx := &Transaction{
		Kind:        KindExpense,
		Payer:       payer,
		Amount:      total,
		Shares:      copied,
		Description: description,
		Timestamp:   at,
	}
	return l.append(tx)
}

func (l *Ledger) append(tx *Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if err := tx.validate(l.registry); err != nil {
		return "", err
	}

	tx.Seq = l.nextSeq
	l.nextSeq++
	tx.ID = l.uniqueID(tx)
	tx.Active = true

	l.txs = append(l.txs, tx)
	l.byID[tx.ID] = tx
	return tx.ID, nil
}

// uniqueID truncates the content hash to idLen characters, lengthening only
// in the astronomically unlikely case of a prefix collision.
func (l *Ledger) uniqueID(tx *Transaction) string {
	sum := tx.contentHash(tx.Seq)
	for n := idLen; n <= len(sum); n++ {
		if _, taken := l.byID[sum[:n]]; !taken {
			return sum[:n]
		}
	}
	return sum
}

// Undo marks the transaction inactive. The transaction stays in the log for
// audit; re-applying it requires appending a fresh equivalent transaction.
func (l *Ledger) Undo(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !tx.Active {
		return ErrAlreadyUndone
	}
	tx.Active = false
	return nil
}

// Transactions returns copies of every transaction, active and inactive, in
// insertion order.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Transaction, len(l.txs))
	for i, tx := range l.txs {
		out[i] = *tx
		if tx.Shares != nil {
			shares := make(map[string]int64, len(tx.Shares))
			for person, cents := range tx.Shares {
				shares[person] = cents
			}
			out[i].Shares = shares
		}
	}
	return out
}

// NextSeq returns the insertion counter, exposed for persistence.
func (l *Ledger) NextSeq() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Balances folds the active transactions into a net position per person.
// Every registered person appears, at zero if they touched no transaction.
func (l *Ledger) Balances() map[string]Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balancesLocked()
}

func (l *Ledger) balancesLocked() map[string]Money {
	balances := make(map[string]Money, l.registry.Len())
	for _, name := range l.registry.All() {
		balances[name] = Money{}
	}
	for _, tx := range l.txs {
		if !tx.Active {
			continue
		}
		for person, delta := range tx.deltas() {
			balances[person] = Money{Cents: balances[person].Cents + delta}
		}
	}
	return balances
}

// TotalSpend sums the totals of active expenses. Direct payments move money
// between people without spending, so they are excluded.
func (l *Ledger) TotalSpend() Money {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	for _, tx := range l.txs {
		if tx.Active && tx.Kind == KindExpense {
			total += tx.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// Verify refolds the active transactions from scratch and checks the zero-sum
// invariant. If snapshot is non-nil it is compared per person against the
// recomputed balances. Verify never mutates the ledger.
func (l *Ledger) Verify(snapshot map[string]Money) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	recomputed := l.balancesLocked()

	var sum int64
	for _, balance := range recomputed {
		sum += balance.Cents
	}
	if sum != 0 {
		return &NonZeroSumError{Total: sum}
	}

	if snapshot != nil {
		for _, person := range l.registry.All() {
			expected := recomputed[person]
			actual, ok := snapshot[person]
			if !ok || actual.Cents != expected.Cents {
				return &BalanceMismatchError{
					Person:   person,
					Expected: expected.Cents,
					Actual:   actual.Cents,
				}
			}
		}
	}
	return nil
}

// EvenShares splits total evenly across the given people, distributing the
// remainder cents in registration order. The returned map sums exactly to
// total and is suitable for AppendExpense.
func (l *Ledger) EvenShares(total Money, among []string) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(among) == 0 {
		return nil, ErrNoShares
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}

	ordered := make([]string, len(among))
	copy(ordered, among)
	for _, person := range ordered {
		if !l.registry.Contains(person) {
			return nil, &UnknownPersonError{Name: person}
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return l.registry.Position(ordered[i]) < l.registry.Position(ordered[j])
	})

	parts := SplitEven(total.Cents, len(ordered))
	shares := make(map[string]int64, len(ordered))
	for i, person := range ordered {
		shares[person] = parts[i]
	}
	return shares, nil
}
