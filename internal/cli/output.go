package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/keys"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Runtime failure (remote call failed, batch halted, write failed)
	ExitCommandError = 2 // Command error (bad input, missing files, schema mismatch, config)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// dollars renders a limit for operator display: "$3" for a concrete
// amount, "unlimited" otherwise.
func dollars(l keys.Limit) string {
	if amount, ok := l.Amount(); ok {
		return "$" + strconv.FormatFloat(amount, 'f', -1, 64)
	}
	return "unlimited"
}

// printKeyTable renders the matched set sorted by email. Placeholder
// emails are flagged so the operator knows the roster row still needs a
// real address.
func printKeyTable(w io.Writer, matched []engine.Match, placeholderDomain string) {
	rows := slices.Clone(matched)
	slices.SortFunc(rows, func(a, b engine.Match) int {
		return strings.Compare(a.Email, b.Email)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tMQ ID\tKEY NAME\tUSAGE\tLIMIT\tRESET\tSTATUS")
	for _, m := range rows {
		status := "OK"
		if placeholderDomain != "" && strings.Contains(m.Email, placeholderDomain) {
			status = "FIX EMAIL"
		}
		reset := m.Key.Cadence.String()
		if reset == "" {
			reset = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t$%.4f\t%s\t%s\t%s\n",
			m.Email,
			m.Student.DisplayName(),
			m.Student.MQID,
			m.Key.Name,
			m.Key.Usage,
			dollars(m.Key.Limit),
			reset,
			status,
		)
	}
	tw.Flush()
}

// reportOrphans prints remote keys that matched no roster entry. Orphans
// are informational only; this tool never touches them.
func reportOrphans(w io.Writer, orphans []engine.Orphan) {
	if len(orphans) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d keys in OpenRouter not matched to roster:\n", len(orphans))
	for _, o := range orphans {
		disabled := ""
		if o.Key.Disabled {
			disabled = " (disabled)"
		}
		fmt.Fprintf(w, "  %s - usage: $%.4f%s\n", o.Key.Name, o.Key.Usage, disabled)
	}
	fmt.Fprintln(w, "These keys are not managed by this tool. Update roster or manage via OpenRouter dashboard.")
}
