// Command keywarden reconciles OpenRouter API keys against a student
// roster. It provisions keys for students who lack one, applies limit
// and disabled-state changes declared in a limits file, and records
// every remote mutation in an append-only local audit trail.
//
// Usage:
//
//	keywarden init-db
//	keywarden check
//	keywarden provision [--dry-run] [--limit N]
//	keywarden update [--dry-run]
//	keywarden refresh-limits
//	keywarden export-keys [--format csv|json]
//
// Commands that touch OpenRouter require OPENROUTER_PROVISIONING_KEY
// in the environment.
//
// Exit codes: 0 = success, 1 = runtime failure, 2 = command error.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/keywarden/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
