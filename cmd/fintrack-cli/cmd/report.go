package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

func (a *app) summaryCmd() *cobra.Command {
	var (
		from, to  string
		category  string
		kind      string
		accountID string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and the category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := analytics.Filter{Category: category}
			if kind != "" {
				k := core.TransactionKind(kind)
				if !k.Valid() {
					return core.ErrInvalidKind
				}
				filter.Kind = k
			}
			var err error
			if filter.From, err = optionalDate("from", from); err != nil {
				return err
			}
			if filter.To, err = optionalDate("to", to); err != nil {
				return err
			}

			txns, err := a.svc.Ledger.ListTransactions(cmd.Context(), a.session(), accountID)
			if err != nil {
				return err
			}
			txns = filter.Apply(txns)

			s := analytics.Summarize(txns)
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatAmount(s.Income))
			fmt.Fprintf(tw, "Expenses\t%s\t\n", core.FormatAmount(s.Expenses))
			fmt.Fprintf(tw, "Subscriptions\t%s\t\n", core.FormatAmount(s.Subscriptions))
			fmt.Fprintf(tw, "Net\t%s\t\n", core.FormatAmount(s.Net))
			if err := tw.Flush(); err != nil {
				return err
			}

			breakdown := analytics.Breakdown(txns)
			if len(breakdown) == 0 {
				return nil
			}
			fmt.Fprintln(a.stdout)
			tw = tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSPENT")
			for _, c := range breakdown {
				fmt.Fprintf(tw, "%s\t%s\n", c.Category, core.FormatAmount(c.Total))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date included")
	cmd.Flags().StringVar(&to, "to", "", "last date included")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&kind, "kind", "", "income, expense or subscription")
	cmd.Flags().StringVar(&accountID, "account", "", "only this account id")
	return cmd
}

func (a *app) budgetsCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show the budget report of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = core.MonthOf(a.now())
			}
			lines, err := a.svc.Budgets.Report(cmd.Context(), a.session(), month)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				fmt.Fprintf(a.stdout, "No budgets for %s\n", month)
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSPENT\tLIMIT\tUSED\tSTATUS")
			for _, l := range lines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\n",
					l.Category, core.FormatAmount(l.Spent), core.FormatAmount(l.Limit), l.Percentage.StringFixed(1), l.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "YYYY-MM (default current month)")
	return cmd
}

func (a *app) debtsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debts",
		Short: "Show what each person owes or is owed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			people, totals, err := a.svc.Debts.Summary(cmd.Context(), a.session())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PERSON\tLENT\tBORROWED\tNET\tPENDING")
			for _, p := range people {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					p.PersonName, core.FormatAmount(p.Lent), core.FormatAmount(p.Borrowed), core.FormatAmount(p.Net()), p.PendingCount)
			}
			fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t\n", core.FormatAmount(totals.Lent), core.FormatAmount(totals.Borrowed), core.FormatAmount(totals.Net))
			return tw.Flush()
		},
	}
}

func optionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}, core.Invalid(field, "not a valid calendar date")
	}
	return d, nil
}

// parseSigned accepts negative balances, which credit cards usually carry.
func parseSigned(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, core.Invalid("balance", "must be a number")
	}
	return d.Round(2), nil
}
