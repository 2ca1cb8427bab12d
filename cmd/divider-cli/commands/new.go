package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"divider/internal/core"
)

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [person]...",
		Short: "Create a new ledger file with the given participants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(ledgerFile); err == nil {
				return fmt.Errorf("%s already exists", ledgerFile)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}

			l, err := core.NewLedger(args)
			if err != nil {
				return err
			}
			if err := saveLedger(l); err != nil {
				return err
			}

			fmt.Printf("Created %s with %s\n", ledgerFile, strings.Join(args, ", "))
			return nil
		},
	}
}

func addPersonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-person [name]",
		Short: "Add a participant to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadLedger()
			if err != nil {
				return err
			}
			if err := l.AddPerson(args[0]); err != nil {
				return err
			}
			if err := saveLedger(l); err != nil {
				return err
			}

			fmt.Printf("Added %s\n", args[0])
			return nil
		},
	}
}
