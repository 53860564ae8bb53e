package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/keywarden/internal/clock"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
)

// Remote is the slice of the provisioning API the engine drives. One
// method per mutation kind keeps each applied change a single call.
type Remote interface {
	List(ctx context.Context) ([]keys.RemoteKey, error)
	Create(ctx context.Context, name string, limit keys.Limit, cadence keys.Cadence) (keys.ProvisionedKey, error)
	UpdateLimit(ctx context.Context, hash string, limit keys.Limit) error
	UpdateDisabled(ctx context.Context, hash string, disabled bool) error
}

// Applier executes planned changes against the remote service and records
// each success in the changelog.
type Applier struct {
	remote Remote
	store  *store.Store
	pacer  Pacer
	clock  clock.Clock
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithPacer replaces the delay policy between remote calls.
func WithPacer(p Pacer) ApplierOption {
	return func(a *Applier) { a.pacer = p }
}

// WithClock replaces the wall clock used for changelog timestamps.
func WithClock(c clock.Clock) ApplierOption {
	return func(a *Applier) { a.clock = c }
}

// NewApplier creates an applier. Defaults: one-second pacing between
// remote calls, system wall clock.
func NewApplier(remote Remote, st *store.Store, opts ...ApplierOption) *Applier {
	a := &Applier{
		remote: remote,
		store:  st,
		pacer:  NewIntervalPacer(DefaultPaceInterval),
		clock:  clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply pushes changes to the remote service strictly in input order, one
// at a time, pacing between calls. After each remote success the change
// is recorded in the changelog before the next one starts.
//
// On the first failure Apply stops and returns an *ApplyError; changes
// already applied stay applied and stay recorded. Returns the number of
// changes fully applied and recorded.
func (a *Applier) Apply(ctx context.Context, changes []Change) (int, error) {
	for i, change := range changes {
		if i > 0 {
			if err := a.pacer.Pace(ctx); err != nil {
				return i, &ApplyError{Change: change, Applied: i, Err: err}
			}
		}

		if err := a.push(ctx, change); err != nil {
			return i, &ApplyError{Change: change, Applied: i, Err: err}
		}

		entry := store.ChangelogEntry{
			KeyHash:   change.KeyHash,
			Action:    changeAction(change.Kind),
			OldValue:  change.OldValue(),
			NewValue:  change.NewValue(),
			ChangedAt: a.clock.Now(),
		}
		if err := a.store.AppendChangelog(ctx, entry); err != nil {
			// The remote accepted the change; losing its audit record is
			// still a halt condition.
			return i, &ApplyError{
				Change:  change,
				Applied: i,
				Err:     fmt.Errorf("change applied remotely but not recorded: %w", err),
			}
		}

		slog.Info("applied change",
			"key", change.KeyName,
			"kind", string(change.Kind),
			"old", change.OldValue(),
			"new", change.NewValue(),
		)
	}

	return len(changes), nil
}

// push issues the one remote call a change stands for.
func (a *Applier) push(ctx context.Context, change Change) error {
	switch change.Kind {
	case ChangeLimit:
		return a.remote.UpdateLimit(ctx, change.KeyHash, change.NewLimit)
	case ChangeDisabled:
		return a.remote.UpdateDisabled(ctx, change.KeyHash, change.NewDisabled)
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

func changeAction(kind ChangeKind) string {
	if kind == ChangeLimit {
		return store.ActionUpdateLimit
	}
	return store.ActionUpdateDisabled
}
