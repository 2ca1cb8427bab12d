package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSyncMessage is a lightweight pointer to a ledger transaction.
// The worker fetches the full record from storage; the queue only carries
// enough to find it.
type TransactionSyncMessage struct {
	Ledger    string    `json:"ledger"`
	TxID      string    `json:"tx_id"`
	Undone    bool      `json:"undone"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message for a transaction
func NewTransactionSyncMessage(ledger, txID string, undone bool) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Ledger:    ledger,
		TxID:      txID,
		Undone:    undone,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Ledger == "" || msg.TxID == "" {
		return nil, errEmptyMessage
	}
	return &msg, nil
}
