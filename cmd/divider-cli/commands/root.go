// Package commands implements the divider command line interface. Every
// command operates on a single ledger stored as a JSON file.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"divider/internal/core"
	"divider/internal/ledgers/jsonfile"
	applog "divider/internal/log"
)

var (
	ledgerFile string
	verbose    bool
)

func Execute() error {
	root := &cobra.Command{
		Use:   "divider",
		Short: "Track shared expenses and settle who owes whom",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(applog.NewTintHandler(os.Stderr, level)))
		},
	}

	root.PersistentFlags().StringVarP(&ledgerFile, "file", "f", "ledger.json", "ledger file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCmd(),
		peopleCmd(),
		addPersonCmd(),
		paymentCmd(),
		expenseCmd(),
		undoCmd(),
		showCmd(),
		balancesCmd(),
		verifyCmd(),
		settleCmd(),
	)
	return root.Execute()
}

func loadLedger() (*core.Ledger, error) {
	l, err := jsonfile.ReadFile(ledgerFile)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", ledgerFile, err)
	}
	return l, nil
}

func saveLedger(l *core.Ledger) error {
	if err := jsonfile.WriteFile(ledgerFile, l); err != nil {
		return fmt.Errorf("save ledger %s: %w", ledgerFile, err)
	}
	return nil
}

func parseMoney(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
