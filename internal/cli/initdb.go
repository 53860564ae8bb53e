package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/store"
)

// InitDBOptions holds flags for the init-db command.
type InitDBOptions struct {
	*RootOptions
	Database string
}

// NewInitDBCommand creates the init-db command.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitDBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Initialize the audit database",
		Long: `Create the audit database schema, or verify an existing one.

Safe to re-run: a database already at the current schema version is left
untouched. A database with an older layout is rejected; delete the file
and run init-db again.

Example:
  keywarden init-db
  keywarden init-db --db ./keys.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit database (default from config)")

	return cmd
}

func runInitDB(opts *InitDBOptions, cmd *cobra.Command) error {
	path := fallback(opts.Database, opts.Cfg.Files.Database)

	st, created, err := store.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize database", err)
	}
	defer closeStore(st)

	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Database initialized: %s\n", path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Database already initialized: %s\n", path)
	}
	return nil
}
