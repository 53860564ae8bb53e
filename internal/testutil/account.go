// Package testutil provides deterministic test doubles shared across
// packages: an in-memory provisioning account with scriptable failures,
// and an HTTP server speaking the provisioning wire protocol over it.
package testutil

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/keywarden/internal/keys"
)

// ErrScripted is the failure injected by FailCall.
var ErrScripted = errors.New("scripted failure: unexpected status 500")

// ErrUnknownKey reports a mutation against a hash the account never
// issued.
var ErrUnknownKey = errors.New("unknown key hash")

// Account is an in-memory provisioning account. Mutations change its key
// list, so a re-list after a batch reflects the new state the way the
// real service does. Every successful mutation is journaled in call
// order.
//
// Thread-safety: all methods are safe for concurrent use, though the
// engine only ever drives one call at a time.
type Account struct {
	mu       sync.Mutex
	keys     []keys.RemoteKey
	secrets  map[string]string
	ever     map[string]bool
	journal  []string
	calls    int
	failCall int
	nextID   int
}

// NewAccount creates an account holding the given keys.
func NewAccount(initial ...keys.RemoteKey) *Account {
	a := &Account{
		secrets: make(map[string]string),
		ever:    make(map[string]bool),
	}
	for _, k := range initial {
		a.keys = append(a.keys, k)
		a.ever[k.Hash] = true
	}
	return a
}

// FailCall scripts the n-th mutating call (1-based) to fail before it
// takes effect. Zero clears the script.
func (a *Account) FailCall(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failCall = n
}

// countCall advances the mutation counter and reports whether this call
// is the scripted failure. Callers must hold the lock.
func (a *Account) countCall() bool {
	a.calls++
	return a.failCall != 0 && a.calls == a.failCall
}

// List returns a copy of the current key listing.
func (a *Account) List() []keys.RemoteKey {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.keys)
}

// CreateKey mints a new key with a sequential hash and secret. The
// secret doubles as the stored label, the way the real service reports
// it back in listings.
func (a *Account) CreateKey(name string, limit keys.Limit, cadence keys.Cadence) (keys.ProvisionedKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.countCall() {
		return keys.ProvisionedKey{}, ErrScripted
	}

	a.nextID++
	hash := fmt.Sprintf("fake-%04d", a.nextID)
	secret := "sk-or-v1-" + hash

	key := keys.RemoteKey{
		Hash:    hash,
		Name:    name,
		Label:   secret,
		Limit:   limit,
		Cadence: cadence,
	}
	a.keys = append(a.keys, key)
	a.secrets[hash] = secret
	a.ever[hash] = true
	a.journal = append(a.journal, fmt.Sprintf("create %s limit=%s reset=%s", name, limit, cadence.OrNever()))

	return keys.ProvisionedKey{Key: key, Secret: secret}, nil
}

// SetLimit changes one key's limit.
func (a *Account) SetLimit(hash string, limit keys.Limit) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.countCall() {
		return ErrScripted
	}

	i := a.index(hash)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownKey, hash)
	}
	a.keys[i].Limit = limit
	a.journal = append(a.journal, fmt.Sprintf("limit %s -> %s", a.keys[i].Name, limit))
	return nil
}

// SetDisabled changes one key's disabled flag.
func (a *Account) SetDisabled(hash string, disabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.countCall() {
		return ErrScripted
	}

	i := a.index(hash)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownKey, hash)
	}
	a.keys[i].Disabled = disabled
	a.journal = append(a.journal, fmt.Sprintf("disabled %s -> %t", a.keys[i].Name, disabled))
	return nil
}

// index finds a key by hash. Callers must hold the lock.
func (a *Account) index(hash string) int {
	for i, k := range a.keys {
		if k.Hash == hash {
			return i
		}
	}
	return -1
}

// Key looks a key up by name in the current listing.
func (a *Account) Key(name string) (keys.RemoteKey, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range a.keys {
		if k.Name == name {
			return k, true
		}
	}
	return keys.RemoteKey{}, false
}

// Secret returns the plaintext minted for a created key.
func (a *Account) Secret(hash string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.secrets[hash]
	return s, ok
}

// Journal returns every successful mutation in call order.
func (a *Account) Journal() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.journal)
}

// Knew reports whether the account ever held a key with this hash,
// including keys created during the test.
func (a *Account) Knew(hash string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ever[hash]
}
