// Package worker mirrors ledger transactions to the export spreadsheet. It
// consumes pointers from AMQP and periodically sweeps the store for rows the
// queue missed.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"divider/internal/amqp"
	"divider/internal/core"
	"divider/internal/sheets"
	"divider/internal/storage"
)

// TransactionSource is the slice of storage the worker needs.
type TransactionSource interface {
	GetTransaction(ctx context.Context, ledger, txID string) (core.Transaction, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingTransaction, error)
	MarkSynced(ctx context.Context, ledger, txID string) error
	MarkSyncError(ctx context.Context, ledger, txID string) error
}

// SyncWorker pushes transactions from the store to the sheet writer.
type SyncWorker struct {
	storage   TransactionSource
	sheets    sheets.TransactionWriter
	batchSize int
	interval  time.Duration
}

func NewSyncWorker(storage TransactionSource, sheetsWriter sheets.TransactionWriter, batchSize int, interval time.Duration) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if interval < time.Second {
		interval = 30 * time.Second
	}
	return &SyncWorker{
		storage:   storage,
		sheets:    sheetsWriter,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run consumes AMQP messages and runs the periodic catch-up sweep until ctx
// is cancelled. The AMQP client may be nil, in which case only the sweep runs.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	g, ctx := errgroup.WithContext(ctx)

	if client != nil {
		g.Go(func() error {
			return client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
				return w.HandleSyncMessage(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		return w.runCatchUp(ctx)
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"ledger", msg.Ledger,
		"tx_id", msg.TxID,
		"undone", msg.Undone)

	tx, err := w.storage.GetTransaction(ctx, msg.Ledger, msg.TxID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.syncToSheets(ctx, msg.Ledger, tx)
}

// ProcessPending sweeps transactions the queue missed. This is the backup
// mechanism for lost AMQP messages and worker downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.Ledger, p.TxID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction",
				"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.Ledger, p.TxID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			}
			continue
		}

		if err := w.syncToSheets(ctx, p.Ledger, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction",
				"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck processes a larger pending batch once at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.Ledger, p.TxID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.Ledger, p.TxID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.syncToSheets(ctx, p.Ledger, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"ledger", p.Ledger, "tx_id", p.TxID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) runCatchUp(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Catch-up sweep failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) syncToSheets(ctx context.Context, ledger string, tx core.Transaction) error {
	ref, err := w.sheets.Append(ctx, ledger, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, ledger, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"ledger", ledger, "tx_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, ledger, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"ledger", ledger, "tx_id", tx.ID, "error", err)
		// The row landed on the sheet, so the message still counts as handled.
	}

	slog.InfoContext(ctx, "Synced transaction",
		"ledger", ledger,
		"tx_id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
