package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/export"
	"github.com/roach88/keywarden/internal/store"
)

// ExportKeysOptions holds flags for the export-keys command.
type ExportKeysOptions struct {
	*RootOptions
	Database string
	Output   string
	Format   string
}

// NewExportKeysCommand creates the export-keys command.
func NewExportKeysCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportKeysOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export-keys",
		Short: "Export tracked keys from the audit database",
		Long: `Write every key tracked in the audit database, joined with its
student, to a CSV or JSON file.

This reads only the local database; OpenRouter is not contacted. Keys
whose secret was never stored export with a placeholder in the api_key
column.

Example:
  keywarden export-keys
  keywarden export-keys --format json --output keys.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportKeys(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit database (default from config)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output file (default: timestamped name from config prefix)")
	cmd.Flags().StringVar(&opts.Format, "format", "csv", "output format: csv or json")

	return cmd
}

func runExportKeys(opts *ExportKeysOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.Format != "csv" && opts.Format != "json" {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown format %q (want csv or json)", opts.Format))
	}

	st, err := openStore(opts.Cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rows, err := st.ExportRows(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read keys from database", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No keys found in database")
		return nil
	}

	name := opts.Output
	if name == "" {
		name = export.Filename(opts.Cfg.Files.ExportPrefix, opts.now(), opts.Format)
	}

	if err := writeExport(name, opts.Format, rows); err != nil {
		return WrapExitError(ExitFailure, "failed to write export", err)
	}

	fmt.Fprintf(out, "Exported %d keys to %s\n", len(rows), name)
	fmt.Fprintln(out, "This file contains API keys - handle with care!")

	fmt.Fprintln(out)
	printExportTable(out, rows)
	return nil
}

func writeExport(name, format string, rows []store.ExportRow) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	if format == "json" {
		err = export.WriteKeysJSON(f, rows)
	} else {
		err = export.WriteKeysCSV(f, rows)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printExportTable(w io.Writer, rows []store.ExportRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tMQ ID\tKEY NAME\tHAS KEY")
	for _, row := range rows {
		hasKey := "no"
		if row.Label != "" {
			hasKey = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n",
			row.Email, row.FirstName, row.LastName, row.MQID, row.KeyName, hasKey)
	}
	tw.Flush()
}
