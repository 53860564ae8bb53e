package store

import (
	"context"
	"testing"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

func TestExportRows_EmptyDatabase(t *testing.T) {
	s := newTestStore(t)

	rows, err := s.ExportRows(context.Background())
	if err != nil {
		t.Fatalf("ExportRows() failed: %v", err)
	}
	if rows == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestExportRows_JoinsStudentsAndOrdersByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pairs := []StudentKey{
		{
			Student: roster.Student{
				FirstName: "Dasol", LastName: "Park",
				Email: "dasol.park@students.mq.edu.au", MQID: "87654321",
			},
			Key: keys.RemoteKey{
				Hash: "hash-b", Name: "20250301_Dasol Park_87654321",
				Label: "sk-or-v1-bbb", Limit: keys.Unlimited(), Usage: 0,
			},
		},
		{
			Student: roster.Student{
				FirstName: "Chaeyeon", LastName: "Kim",
				Email: "chaeyeon.kim@students.mq.edu.au", MQID: "12345678",
			},
			Key: keys.RemoteKey{
				Hash: "hash-a", Name: "20250301_Chaeyeon Kim_12345678",
				Label: "", Limit: keys.LimitOf(25), Disabled: true, Usage: 3,
			},
		},
	}
	if err := s.SyncState(ctx, pairs, syncTime); err != nil {
		t.Fatalf("SyncState() failed: %v", err)
	}

	rows, err := s.ExportRows(ctx)
	if err != nil {
		t.Fatalf("ExportRows() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Ordered by email: chaeyeon before dasol.
	if rows[0].Email != "chaeyeon.kim@students.mq.edu.au" {
		t.Errorf("row 0 email = %q, want chaeyeon first", rows[0].Email)
	}
	if rows[0].FirstName != "Chaeyeon" || rows[0].LastName != "Kim" {
		t.Errorf("row 0 student = %s %s, want joined roster fields", rows[0].FirstName, rows[0].LastName)
	}
	if rows[0].MQID != "12345678" {
		t.Errorf("row 0 mq_id = %q", rows[0].MQID)
	}
	if !rows[0].Limit.Equal(keys.LimitOf(25)) {
		t.Errorf("row 0 limit = %v, want 25", rows[0].Limit)
	}
	if !rows[0].Disabled {
		t.Error("row 0 disabled = false, want true")
	}
	if rows[0].Label != "" {
		t.Errorf("row 0 label = %q, want empty (secret never stored)", rows[0].Label)
	}

	if rows[1].KeyHash != "hash-b" {
		t.Errorf("row 1 hash = %q, want hash-b", rows[1].KeyHash)
	}
	if rows[1].Limit.IsSet() {
		t.Errorf("row 1 limit = %v, want unlimited", rows[1].Limit)
	}
}

func TestExportRows_MultipleKeysPerStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A re-provisioned student keeps the old hash row alongside the new one.
	first := testPair("chaeyeon.kim@students.mq.edu.au", "12345678", "hash-old")
	if err := s.SyncState(ctx, []StudentKey{first}, syncTime); err != nil {
		t.Fatalf("first SyncState() failed: %v", err)
	}
	second := testPair("chaeyeon.kim@students.mq.edu.au", "12345678", "hash-new")
	if err := s.SyncState(ctx, []StudentKey{second}, syncTime); err != nil {
		t.Fatalf("second SyncState() failed: %v", err)
	}

	rows, err := s.ExportRows(ctx)
	if err != nil {
		t.Fatalf("ExportRows() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (old and new key)", len(rows))
	}

	// Same email, so hash breaks the tie deterministically.
	if rows[0].KeyHash != "hash-new" || rows[1].KeyHash != "hash-old" {
		t.Errorf("rows ordered %q, %q; want hash-new then hash-old", rows[0].KeyHash, rows[1].KeyHash)
	}
}

func TestChangelog_EmptyDatabase(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.Changelog(context.Background())
	if err != nil {
		t.Fatalf("Changelog() failed: %v", err)
	}
	if entries == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}
