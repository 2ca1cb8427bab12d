package sheets

import (
	"context"

	"divider/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter mirrors a ledger transaction to an external sheet.
	TransactionWriter interface {
		Append(ctx context.Context, ledger string, tx core.Transaction) (rowRef string, err error)
	}
)
