package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func (a *app) accountsCmd() *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.svc.Ledger.ListAccounts(cmd.Context(), a.session())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tBALANCE")
			for _, acc := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acc.ID, acc.Name, acc.Kind, core.FormatAmount(acc.Balance))
			}
			return tw.Flush()
		},
	}

	var (
		kind    string
		balance string
	)
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := parseSigned(balance)
			if err != nil {
				return err
			}
			acc, err := a.svc.Ledger.CreateAccount(cmd.Context(), a.session(), args[0], core.AccountKind(kind), initial)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Created account %s (%s)\n", acc.Name, acc.ID)
			return nil
		},
	}
	create.Flags().StringVar(&kind, "kind", string(core.Bank), "bank or credit_card")
	create.Flags().StringVar(&balance, "balance", "0", "initial balance")

	accounts.AddCommand(create)
	return accounts
}
