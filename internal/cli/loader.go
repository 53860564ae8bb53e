package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/keywarden/internal/config"
	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/export"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/limits"
	"github.com/roach88/keywarden/internal/openrouter"
	"github.com/roach88/keywarden/internal/roster"
	"github.com/roach88/keywarden/internal/store"
)

// Pipeline bundles what every remote-touching command starts from: the
// client, the roster, the remote listing, and its matched/orphaned
// partition.
type Pipeline struct {
	Client  *openrouter.Client
	Roster  roster.Roster
	Remote  []keys.RemoteKey
	Matched []engine.Match
	Orphans []engine.Orphan
}

// fetchAndMatch builds the remote client, fetches the key listing, loads
// the roster, and partitions the listing against it. The listing is the
// sole source of truth for which keys exist.
func fetchAndMatch(ctx context.Context, opts *RootOptions, rosterPath string, out io.Writer) (*Pipeline, error) {
	client, err := openrouter.New(openrouter.Config{
		BaseURL: opts.Cfg.Remote.BaseURL,
		Key:     config.ProvisioningKey(),
		Timeout: opts.Cfg.Remote.Timeout,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "remote client", err)
	}

	fmt.Fprintln(out, "Fetching keys from OpenRouter...")
	remote, err := client.List(ctx)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to list remote keys", err)
	}
	fmt.Fprintf(out, "Found %d keys in OpenRouter\n", len(remote))

	ros, err := roster.Load(rosterPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load roster", err)
	}

	matched, orphans := engine.MatchKeys(remote, ros)
	slog.Debug("matched remote keys", "keys", len(remote), "matched", len(matched), "orphaned", len(orphans))

	return &Pipeline{
		Client:  client,
		Roster:  ros,
		Remote:  remote,
		Matched: matched,
		Orphans: orphans,
	}, nil
}

// openStore opens an existing audit database, translating the store's
// errors into operator guidance.
func openStore(cfg *config.Config, flagPath string) (*store.Store, error) {
	path := fallback(flagPath, cfg.Files.Database)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database %s", path), err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// syncMatched mirrors the matched remote state into the audit store.
// Orphans are never written.
func syncMatched(ctx context.Context, st *store.Store, matched []engine.Match, opts *RootOptions) error {
	pairs := make([]store.StudentKey, 0, len(matched))
	for _, m := range matched {
		pairs = append(pairs, store.StudentKey{Student: m.Student, Key: m.Key})
	}
	if err := st.SyncState(ctx, pairs, opts.now()); err != nil {
		return WrapExitError(ExitFailure, "failed to sync database", err)
	}
	return nil
}

// writeLimitsAndSnapshot rewrites the limits file from the matched set,
// preserving operator targets, and writes a fresh snapshot.
func writeLimitsAndSnapshot(opts *RootOptions, matched []engine.Match, limitsPath string, out io.Writer) error {
	existing, err := limits.Load(limitsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read limits file", err)
	}
	if err := limits.Save(limits.Refresh(matched, existing), limitsPath); err != nil {
		return WrapExitError(ExitFailure, "failed to write limits file", err)
	}
	fmt.Fprintf(out, "Updated %s with current state\n", limitsPath)

	name, err := export.Snapshot(matched, opts.Cfg.Files.SnapshotPrefix, opts.now())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write snapshot", err)
	}
	fmt.Fprintf(out, "Exported snapshot to %s\n", name)
	return nil
}

// refreshAfterApply re-fetches remote state after a mutation and brings
// the store, limits file, and snapshot in line with it.
func refreshAfterApply(ctx context.Context, opts *RootOptions, st *store.Store, p *Pipeline, limitsPath string, out io.Writer) (matched []engine.Match, total int, err error) {
	fmt.Fprintln(out, "\nFetching updated state from OpenRouter...")
	remote, err := p.Client.List(ctx)
	if err != nil {
		return nil, 0, WrapExitError(ExitFailure, "failed to list remote keys", err)
	}

	matched, _ = engine.MatchKeys(remote, p.Roster)
	if err := syncMatched(ctx, st, matched, opts); err != nil {
		return nil, 0, err
	}
	if err := writeLimitsAndSnapshot(opts, matched, limitsPath, out); err != nil {
		return nil, 0, err
	}
	return matched, len(remote), nil
}

// fallback resolves a flag value against its configured default.
func fallback(flag, cfg string) string {
	if flag != "" {
		return flag
	}
	return cfg
}
