package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

// Changelog actions. The values are part of the on-disk format; existing
// databases depend on them staying stable.
const (
	ActionProvisioned    = "provisioned"
	ActionUpdateLimit    = "update_limit"
	ActionUpdateDisabled = "update_disabled"
)

// StudentKey pairs a roster student with the remote key matched to them.
type StudentKey struct {
	Student roster.Student
	Key     keys.RemoteKey
}

// ChangelogEntry is one applied mutation. OldValue is empty for actions
// that have no prior state (provisioning) and is stored as NULL.
type ChangelogEntry struct {
	KeyHash   string
	Action    string
	OldValue  string
	NewValue  string
	ChangedAt time.Time
}

// SyncState mirrors the current remote state into the database in a single
// transaction: upserts each student and key, then appends one usage
// snapshot per key. The student's created_at survives re-syncs; everything
// else reflects what the remote service reported.
func (s *Store) SyncState(ctx context.Context, pairs []StudentKey, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync state: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stamp := timeText(now)

	for _, pair := range pairs {
		st := pair.Student

		// ON CONFLICT(email) DO UPDATE rather than INSERT OR REPLACE:
		// REPLACE would delete and re-insert the row, losing created_at
		// and tripping the key table's foreign key mid-sync.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO student (email, first_name, last_name, mq_id, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(email) DO UPDATE SET
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				mq_id = excluded.mq_id
		`,
			st.Email,
			st.FirstName,
			st.LastName,
			st.MQID,
			stamp,
		)
		if err != nil {
			return fmt.Errorf("sync state: upsert student %s: %w", st.Email, err)
		}

		key := pair.Key
		createdAt := key.CreatedAt
		if createdAt == "" {
			createdAt = stamp
		}

		// Same reasoning as the student upsert: REPLACE on key_hash would
		// delete the row out from under the usage table's foreign key.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO key (key_hash, key_label, email, key_name, created_at, credit_limit, disabled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key_hash) DO UPDATE SET
				key_label = excluded.key_label,
				email = excluded.email,
				key_name = excluded.key_name,
				created_at = excluded.created_at,
				credit_limit = excluded.credit_limit,
				disabled = excluded.disabled
		`,
			key.Hash,
			key.Label,
			st.Email,
			key.Name,
			createdAt,
			limitValue(key.Limit),
			key.Disabled,
		)
		if err != nil {
			return fmt.Errorf("sync state: upsert key %s: %w", key.Hash, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO usage (key_hash, usage, checked_at)
			VALUES (?, ?, ?)
		`,
			key.Hash,
			key.Usage,
			stamp,
		)
		if err != nil {
			return fmt.Errorf("sync state: record usage for %s: %w", key.Hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync state: commit: %w", err)
	}

	return nil
}

// AppendChangelog records one applied mutation. Each entry commits on its
// own so a crash mid-batch loses at most the change still in flight; the
// history of everything already applied survives.
func (s *Store) AppendChangelog(ctx context.Context, e ChangelogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO changelog (key_hash, action, old_value, new_value, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		e.KeyHash,
		e.Action,
		nullable(e.OldValue),
		e.NewValue,
		timeText(e.ChangedAt),
	)
	if err != nil {
		return fmt.Errorf("append changelog: %w", err)
	}
	return nil
}

// timeText renders timestamps in the on-disk format: RFC 3339 in UTC.
func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// limitValue maps an unset limit to SQL NULL.
func limitValue(l keys.Limit) any {
	if amount, ok := l.Amount(); ok {
		return amount
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
