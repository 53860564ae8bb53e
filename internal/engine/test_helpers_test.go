package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
	"github.com/roach88/keywarden/internal/store"
)

// Test helper to create a remote key with the standard label encoding.
func makeTestKey(hash, name string, limit keys.Limit, disabled bool) keys.RemoteKey {
	return keys.RemoteKey{
		Hash:      hash,
		Name:      name,
		Label:     "sk-or-v1-" + hash,
		Limit:     limit,
		Disabled:  disabled,
		Usage:     0.5,
		Cadence:   keys.CadenceWeekly,
		CreatedAt: "2026-02-27T10:00:00Z",
	}
}

// Test helper: two students sharing a surname, distinct identifiers.
func makeTestRoster() roster.Roster {
	return roster.Roster{
		"chaeyeon.kim@example.com": {
			FirstName: "Chaeyeon",
			LastName:  "Kim",
			Email:     "chaeyeon.kim@example.com",
			MQID:      "60853425",
			Budget:    keys.LimitOf(3),
			Cadence:   keys.CadenceWeekly,
		},
		"dasol.kim@example.com": {
			FirstName: "Dasol",
			LastName:  "Kim",
			Email:     "dasol.kim@example.com",
			MQID:      "60853379",
			Budget:    keys.LimitOf(3),
			Cadence:   keys.CadenceWeekly,
		},
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, _, err := store.Create(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatalf("store.Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

// fakeRemote is a scripted Remote. Mutations are applied to its key list
// so a re-list after Apply reflects the new state, and every mutation is
// journaled to ops in call order. failCall makes the n-th mutation call
// fail (1-based; 0 = never fail).
type fakeRemote struct {
	keys     []keys.RemoteKey
	ops      []string
	calls    int
	failCall int
}

var errRemoteDown = errors.New("unexpected status 500")

func (f *fakeRemote) List(ctx context.Context) ([]keys.RemoteKey, error) {
	return slices.Clone(f.keys), nil
}

func (f *fakeRemote) Create(ctx context.Context, name string, limit keys.Limit, cadence keys.Cadence) (keys.ProvisionedKey, error) {
	if err := f.nextCall(); err != nil {
		return keys.ProvisionedKey{}, err
	}

	k := keys.RemoteKey{
		Hash:      fmt.Sprintf("hash-%d", len(f.keys)+1),
		Name:      name,
		Label:     fmt.Sprintf("sk-or-v1-ref-%d", len(f.keys)+1),
		Limit:     limit,
		Cadence:   cadence,
		CreatedAt: "2026-02-27T10:00:00Z",
	}
	f.keys = append(f.keys, k)
	f.ops = append(f.ops, fmt.Sprintf("create %s limit=%s reset=%s", name, limit, cadence.OrNever()))

	return keys.ProvisionedKey{Key: k, Secret: "sk-or-v1-secret-" + k.Hash}, nil
}

func (f *fakeRemote) UpdateLimit(ctx context.Context, hash string, limit keys.Limit) error {
	if err := f.nextCall(); err != nil {
		return err
	}
	for i := range f.keys {
		if f.keys[i].Hash == hash {
			f.keys[i].Limit = limit
		}
	}
	f.ops = append(f.ops, fmt.Sprintf("limit %s -> %s", hash, limit))
	return nil
}

func (f *fakeRemote) UpdateDisabled(ctx context.Context, hash string, disabled bool) error {
	if err := f.nextCall(); err != nil {
		return err
	}
	for i := range f.keys {
		if f.keys[i].Hash == hash {
			f.keys[i].Disabled = disabled
		}
	}
	f.ops = append(f.ops, fmt.Sprintf("disabled %s -> %t", hash, disabled))
	return nil
}

func (f *fakeRemote) nextCall() error {
	f.calls++
	if f.failCall != 0 && f.calls == f.failCall {
		return errRemoteDown
	}
	return nil
}

// countingPacer records how many times the applier paced.
type countingPacer struct {
	count int
}

func (p *countingPacer) Pace(ctx context.Context) error {
	p.count++
	return nil
}
