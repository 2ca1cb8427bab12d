package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"divider/internal/core"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show participants and the transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}

			fmt.Printf("Participants: %s\n", strings.Join(l.People(), ", "))
			fmt.Printf("Total spend:  %s\n", l.TotalSpend())

			txs := l.Transactions()
			if len(txs) == 0 {
				fmt.Println("No transactions recorded.")
				return nil
			}

			fmt.Println()
			for _, tx := range txs {
				marker := " "
				if !tx.Active {
					marker = "x"
				}
				switch tx.Kind {
				case core.KindPayment:
					fmt.Printf("%s %s  %-7s  %s -> %s  %s", marker, tx.ID, tx.Kind, tx.Payer, tx.Payee, tx.Amount)
				default:
					fmt.Printf("%s %s  %-7s  %s paid %s", marker, tx.ID, tx.Kind, tx.Payer, tx.Amount)
				}
				if tx.Description != "" {
					fmt.Printf("  (%s)", tx.Description)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func peopleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "people",
		Short: "List the ledger's participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}
			for _, name := range l.People() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show each participant's net balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}

			balances := l.Balances()
			names := make([]string, 0, len(balances))
			for name := range balances {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				b := balances[name]
				switch {
				case b.Cents > 0:
					fmt.Printf("%-20s is owed %s\n", name, b)
				case b.Cents < 0:
					fmt.Printf("%-20s owes %s\n", name, b.Abs())
				default:
					fmt.Printf("%-20s is settled\n", name)
				}
			}
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check ledger integrity by replaying all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}
			if err := l.Verify(nil); err != nil {
				return fmt.Errorf("ledger verification failed: %w", err)
			}
			fmt.Println("Ledger OK")
			return nil
		},
	}
}

func settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "Print the payments that settle all debts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}

			plan := l.Settle()
			if len(plan) == 0 {
				fmt.Println("Everyone is settled.")
				return nil
			}

			for _, ins := range plan {
				fmt.Printf("%s pays %s to %s\n", ins.From, ins.Amount, ins.To)
			}
			return nil
		},
	}
}
