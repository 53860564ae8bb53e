package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion and principle held.
	Pass bool

	// Transcript records what each op did, line by line. It is the
	// golden comparison surface.
	Transcript []string

	// Errors lists assertion and principle failures. Empty when Pass.
	Errors []string
}

// NewResult creates a passing result with an empty transcript.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Section starts a new op block in the transcript.
func (r *Result) Section(op string) {
	r.Transcript = append(r.Transcript, "== "+op)
}

// Linef appends one formatted transcript line.
func (r *Result) Linef(format string, args ...any) {
	r.Transcript = append(r.Transcript, fmt.Sprintf(format, args...))
}

// Text renders the transcript with a trailing newline, ready for golden
// comparison.
func (r *Result) Text() string {
	return strings.Join(r.Transcript, "\n") + "\n"
}

// FakeRemote adapts the shared in-memory account to the engine's remote
// interface.
type FakeRemote struct {
	Account *testutil.Account
}

func (f FakeRemote) List(ctx context.Context) ([]keys.RemoteKey, error) {
	return f.Account.List(), nil
}

func (f FakeRemote) Create(ctx context.Context, name string, limit keys.Limit, cadence keys.Cadence) (keys.ProvisionedKey, error) {
	return f.Account.CreateKey(name, limit, cadence)
}

func (f FakeRemote) UpdateLimit(ctx context.Context, hash string, limit keys.Limit) error {
	return f.Account.SetLimit(hash, limit)
}

func (f FakeRemote) UpdateDisabled(ctx context.Context, hash string, disabled bool) error {
	return f.Account.SetDisabled(hash, disabled)
}
