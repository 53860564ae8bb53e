package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

// newTestStore creates an initialized store in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keys.db")
	s, _, err := Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func testPair(email, mqID, hash string) StudentKey {
	return StudentKey{
		Student: roster.Student{
			FirstName: "Chaeyeon",
			LastName:  "Kim",
			Email:     email,
			MQID:      mqID,
		},
		Key: keys.RemoteKey{
			Hash:      hash,
			Name:      "20250301_Chaeyeon Kim_" + mqID,
			Label:     "sk-or-v1-" + hash,
			Limit:     keys.LimitOf(25),
			Disabled:  false,
			Usage:     1.25,
			Cadence:   keys.CadenceMonthly,
			CreatedAt: "2025-03-01T10:00:00Z",
		},
	}
}
