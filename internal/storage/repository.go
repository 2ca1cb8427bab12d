// Package storage persists ledgers in SQLite and tracks which transactions
// still need to be mirrored to the export spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"divider/internal/core"
	"divider/internal/ledgers"

	_ "modernc.org/sqlite"
)

// Sync statuses for the export queue.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledgers.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// List implements ledgers.Store.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM ledgers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ledger name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Create implements ledgers.Store.
func (r *SQLiteRepository) Create(ctx context.Context, name string, people []string) (*core.Ledger, error) {
	l, err := core.NewLedger(people)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledgers WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check ledger name: %w", err)
	}
	if exists > 0 {
		return nil, core.ErrDuplicateLedger
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO ledgers (name, next_seq) VALUES (?, ?)`, name, l.NextSeq())
	if err != nil {
		return nil, fmt.Errorf("insert ledger: %w", err)
	}
	ledgerID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ledger id: %w", err)
	}
	if err := insertPersons(ctx, tx, ledgerID, l.People()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger created", "name", name, "people", len(people))
	return l, nil
}

// Load implements ledgers.Store.
func (r *SQLiteRepository) Load(ctx context.Context, name string) (*core.Ledger, error) {
	ledgerID, nextSeq, err := r.ledgerRow(ctx, name)
	if err != nil {
		return nil, err
	}

	people, err := r.ledgerPeople(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_id, seq, kind, payer, payee, amount_cents, description, occurred_at, active
		FROM transactions WHERE ledger_id = ? ORDER BY seq`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	var rowIDs []int64
	for rows.Next() {
		var (
			rowID, seq, amount, occurred int64
			active                       bool
			txID, kind, payer, payee     string
			description                  string
		)
		if err := rows.Scan(&rowID, &txID, &seq, &kind, &payer, &payee, &amount, &description, &occurred, &active); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, core.Transaction{
			ID:          txID,
			Seq:         seq,
			Kind:        kind,
			Payer:       payer,
			Payee:       payee,
			Amount:      core.Money{Cents: amount},
			Description: description,
			Timestamp:   time.Unix(occurred, 0).UTC(),
			Active:      active,
		})
		rowIDs = append(rowIDs, rowID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i := range txs {
		if txs[i].Kind != core.KindExpense {
			continue
		}
		shares, err := r.txShares(ctx, rowIDs[i])
		if err != nil {
			return nil, err
		}
		txs[i].Shares = shares
	}

	l, err := core.Restore(people, nextSeq, txs)
	if err != nil {
		return nil, fmt.Errorf("restore ledger %s: %w", name, err)
	}
	return l, nil
}

// Save implements ledgers.Store. The whole ledger is rewritten in one
// database transaction; sync statuses of already-exported rows survive.
func (r *SQLiteRepository) Save(ctx context.Context, name string, l *core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ledgerID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM ledgers WHERE name = ?`, name).Scan(&ledgerID)
	if errors.Is(err, sql.ErrNoRows) {
		res, insErr := tx.ExecContext(ctx, `INSERT INTO ledgers (name, next_seq) VALUES (?, ?)`, name, l.NextSeq())
		if insErr != nil {
			return fmt.Errorf("insert ledger: %w", insErr)
		}
		ledgerID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("ledger id: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("find ledger: %w", err)
	} else {
		if _, err := tx.ExecContext(ctx, `UPDATE ledgers SET next_seq = ? WHERE id = ?`, l.NextSeq(), ledgerID); err != nil {
			return fmt.Errorf("update ledger: %w", err)
		}
	}

	// Preserve sync statuses across the rewrite.
	statuses := make(map[string]string)
	srows, err := tx.QueryContext(ctx, `SELECT tx_id, sync_status FROM transactions WHERE ledger_id = ?`, ledgerID)
	if err != nil {
		return fmt.Errorf("read sync statuses: %w", err)
	}
	for srows.Next() {
		var txID, status string
		if err := srows.Scan(&txID, &status); err != nil {
			srows.Close()
			return fmt.Errorf("scan sync status: %w", err)
		}
		statuses[txID] = status
	}
	srows.Close()
	if err := srows.Err(); err != nil {
		return fmt.Errorf("iterate sync statuses: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM shares WHERE transaction_id IN
		(SELECT id FROM transactions WHERE ledger_id = ?)`, ledgerID); err != nil {
		return fmt.Errorf("clear shares: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE ledger_id = ?`, ledgerID); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM persons WHERE ledger_id = ?`, ledgerID); err != nil {
		return fmt.Errorf("clear persons: %w", err)
	}
	if err := insertPersons(ctx, tx, ledgerID, l.People()); err != nil {
		return err
	}

	for _, record := range l.Transactions() {
		status, ok := statuses[record.ID]
		if !ok {
			status = SyncPending
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions
			(ledger_id, tx_id, seq, kind, payer, payee, amount_cents, description, occurred_at, active, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ledgerID, record.ID, record.Seq, record.Kind, record.Payer, record.Payee,
			record.Amount.Cents, record.Description, record.Timestamp.Unix(), record.Active, status)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", record.ID, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("transaction row id: %w", err)
		}
		for person, cents := range record.Shares {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shares (transaction_id, person, amount_cents) VALUES (?, ?, ?)`,
				rowID, person, cents); err != nil {
				return fmt.Errorf("insert share: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetTransaction fetches a single transaction by ledger name and id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, ledger, txID string) (core.Transaction, error) {
	ledgerID, _, err := r.ledgerRow(ctx, ledger)
	if err != nil {
		return core.Transaction{}, err
	}

	var (
		rowID, seq, amount, occurred int64
		active                       bool
		kind, payer, payee, descr    string
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, seq, kind, payer, payee, amount_cents, description, occurred_at, active
		FROM transactions WHERE ledger_id = ? AND tx_id = ?`, ledgerID, txID).
		Scan(&rowID, &seq, &kind, &payer, &payee, &amount, &descr, &occurred, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	record := core.Transaction{
		ID:          txID,
		Seq:         seq,
		Kind:        kind,
		Payer:       payer,
		Payee:       payee,
		Amount:      core.Money{Cents: amount},
		Description: descr,
		Timestamp:   time.Unix(occurred, 0).UTC(),
		Active:      active,
	}
	if kind == core.KindExpense {
		record.Shares, err = r.txShares(ctx, rowID)
		if err != nil {
			return core.Transaction{}, err
		}
	}
	return record, nil
}

// PendingTransaction identifies a transaction waiting for spreadsheet export.
type PendingTransaction struct {
	Ledger string
	TxID   string
}

// PendingSync returns up to limit transactions still marked pending, oldest
// first. Used by the worker's catch-up scan.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.name, t.tx_id
		FROM transactions t JOIN ledgers l ON l.id = t.ledger_id
		WHERE t.sync_status = ?
		ORDER BY t.created_at
		LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.Ledger, &p.TxID); err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced records a successful spreadsheet export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, ledger, txID string) error {
	return r.setSyncStatus(ctx, ledger, txID, SyncDone)
}

// MarkSyncError records a failed spreadsheet export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, ledger, txID string) error {
	return r.setSyncStatus(ctx, ledger, txID, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, ledger, txID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = ?
		WHERE tx_id = ? AND ledger_id = (SELECT id FROM ledgers WHERE name = ?)`,
		status, txID, ledger)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Sync status updated", "ledger", ledger, "tx_id", txID, "status", status)
	return nil
}

func (r *SQLiteRepository) ledgerRow(ctx context.Context, name string) (int64, int64, error) {
	var id, nextSeq int64
	err := r.db.QueryRowContext(ctx, `SELECT id, next_seq FROM ledgers WHERE name = ?`, name).Scan(&id, &nextSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, core.ErrNoSuchLedger
	}
	if err != nil {
		return 0, 0, fmt.Errorf("find ledger: %w", err)
	}
	return id, nextSeq, nil
}

func (r *SQLiteRepository) ledgerPeople(ctx context.Context, ledgerID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM persons WHERE ledger_id = ? ORDER BY position`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	defer rows.Close()

	var people []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, name)
	}
	return people, rows.Err()
}

func (r *SQLiteRepository) txShares(ctx context.Context, rowID int64) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT person, amount_cents FROM shares WHERE transaction_id = ?`, rowID)
	if err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}
	defer rows.Close()

	shares := make(map[string]int64)
	for rows.Next() {
		var person string
		var cents int64
		if err := rows.Scan(&person, &cents); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares[person] = cents
	}
	return shares, rows.Err()
}

func insertPersons(ctx context.Context, tx *sql.Tx, ledgerID int64, people []string) error {
	for i, name := range people {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO persons (ledger_id, name, position) VALUES (?, ?, ?)`,
			ledgerID, name, i); err != nil {
			return fmt.Errorf("insert person %s: %w", name, err)
		}
	}
	return nil
}
