package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"divider/internal/core"
)

func paymentCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "payment [from] [to] [amount]",
		Short: "Record a direct payment between two participants",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseMoney(args[2])
			if err != nil {
				return err
			}

			l, err := loadLedger()
			if err != nil {
				return err
			}
			id, err := l.AppendPayment(args[0], args[1], amount, note, time.Now().UTC())
			if err != nil {
				return err
			}
			if err := saveLedger(l); err != nil {
				return err
			}

			fmt.Printf("Recorded payment %s: %s -> %s %s\n", id, args[0], args[1], amount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "description for the payment")
	return cmd
}

func expenseCmd() *cobra.Command {
	var (
		note      string
		rawShares []string
		among     []string
	)

	cmd := &cobra.Command{
		Use:   "expense [payer] [amount]",
		Short: "Record an expense split across participants",
		Long: `Record an expense paid by one participant on behalf of others.

Without flags the amount is split evenly across everyone in the ledger.
Use --among to split evenly across a subset, or --share to give exact
per-person amounts (the shares must add up to the total).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := parseMoney(args[1])
			if err != nil {
				return err
			}

			l, err := loadLedger()
			if err != nil {
				return err
			}

			shares, err := resolveShares(l, total, rawShares, among)
			if err != nil {
				return err
			}

			id, err := l.AppendExpense(args[0], total, shares, note, time.Now().UTC())
			if err != nil {
				return err
			}
			if err := saveLedger(l); err != nil {
				return err
			}

			fmt.Printf("Recorded expense %s: %s paid %s for %d people\n", id, args[0], total, len(shares))
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "description for the expense")
	cmd.Flags().StringArrayVarP(&rawShares, "share", "s", nil, "exact share as name=amount, repeatable")
	cmd.Flags().StringSliceVarP(&among, "among", "a", nil, "split evenly across these participants")
	return cmd
}

func resolveShares(l *core.Ledger, total core.Money, rawShares, among []string) (map[string]int64, error) {
	if len(rawShares) > 0 {
		if len(among) > 0 {
			return nil, fmt.Errorf("--share and --among are mutually exclusive")
		}
		shares := make(map[string]int64, len(rawShares))
		for _, raw := range rawShares {
			name, value, ok := strings.Cut(raw, "=")
			if !ok {
				return nil, fmt.Errorf("invalid share %q: expected name=amount", raw)
			}
			cents, err := core.ParseDecimalToCents(value)
			if err != nil {
				return nil, fmt.Errorf("invalid share %q: %w", raw, err)
			}
			shares[name] = cents
		}
		return shares, nil
	}

	if len(among) == 0 {
		among = l.People()
	}
	return l.EvenShares(total, among)
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo [id]",
		Short: "Undo a transaction by its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}
			if err := l.Undo(args[0]); err != nil {
				return err
			}
			if err := saveLedger(l); err != nil {
				return err
			}

			fmt.Printf("Undid %s\n", args[0])
			return nil
		},
	}
}
