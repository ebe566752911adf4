package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/export"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup or a CSV of every transaction",
		Long: `Export writes the owner's data to a file named after today's date,
or to the path given with --output. Use --output - for standard output.

Example:
  fintrack-cli --owner alice export --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var write func(w io.Writer) error
			switch format {
			case "json":
				write = func(w io.Writer) error { return a.svc.Exporter.WriteJSON(cmd.Context(), a.session(), w) }
			case "csv":
				write = func(w io.Writer) error { return a.svc.Exporter.WriteCSV(cmd.Context(), a.session(), w) }
			default:
				return core.Invalid("format", "must be json or csv")
			}

			if output == "-" {
				return write(a.stdout)
			}
			if output == "" {
				kind := "backup"
				if format == "csv" {
					kind = "transactions"
				}
				output = export.FileName(kind, format, a.now())
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path")
	return cmd
}
