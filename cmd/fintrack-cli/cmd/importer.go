package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/csvimport"
)

func (a *app) importCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import transactions from a bank CSV export",
		Long: `Import reads a CSV with a header row. Recognized columns are date,
description, amount, category, type and account, matched case-insensitively.
Use - to read from standard input.

Example:
  fintrack-cli --owner alice import statement.csv --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			if dryRun {
				preview, err := a.svc.Importer.Preview(cmd.Context(), a.session(), r)
				if err != nil {
					return a.reportNoValidRows(err)
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ROW\tDATE\tKIND\tAMOUNT\tCATEGORY\tDESCRIPTION")
				for i, d := range preview.Drafts {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						preview.Rows[i], d.Date.Format(core.DateLayout), d.Kind, core.FormatAmount(d.Amount), d.Category, d.Description)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				a.printRowErrors(preview.Errors)
				fmt.Fprintf(a.stdout, "%d transactions would be imported\n", len(preview.Drafts))
				return nil
			}

			outcome, err := a.svc.Importer.Import(cmd.Context(), a.session(), r)
			if err != nil {
				return a.reportNoValidRows(err)
			}
			a.printRowErrors(outcome.Errors)
			fmt.Fprintf(a.stdout, "Imported %d transactions\n", len(outcome.Imported))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and show the rows without saving them")
	return cmd
}

func (a *app) printRowErrors(errs []csvimport.RowError) {
	for _, e := range errs {
		fmt.Fprintf(a.stderr, "skipped %s\n", e.Error())
	}
}

func (a *app) reportNoValidRows(err error) error {
	var noRows *csvimport.NoValidRowsError
	if errors.As(err, &noRows) {
		a.printRowErrors(noRows.Errors)
	}
	return err
}
