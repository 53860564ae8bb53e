package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/keywarden/internal/keys"
)

// ExportRow is one key joined with its student, as handed to the export
// writers. Label is the stored secret reference and may be empty when the
// key predates secret capture.
type ExportRow struct {
	KeyHash   string
	Label     string
	Email     string
	KeyName   string
	Limit     keys.Limit
	Disabled  bool
	FirstName string
	LastName  string
	MQID      string
}

// ExportRows returns every tracked key joined with its student, ordered by
// email then key hash so repeated exports are identical.
func (s *Store) ExportRows(ctx context.Context) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT k.key_hash, k.key_label, k.email, k.key_name, k.credit_limit, k.disabled,
		       s.first_name, s.last_name, s.mq_id
		FROM key k
		JOIN student s ON k.email = s.email
		ORDER BY k.email ASC, k.key_hash ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var (
			row   ExportRow
			limit sql.NullFloat64
			mqID  sql.NullString
		)
		err := rows.Scan(
			&row.KeyHash,
			&row.Label,
			&row.Email,
			&row.KeyName,
			&limit,
			&row.Disabled,
			&row.FirstName,
			&row.LastName,
			&mqID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		if limit.Valid {
			row.Limit = keys.LimitOf(limit.Float64)
		} else {
			row.Limit = keys.Unlimited()
		}
		row.MQID = mqID.String
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []ExportRow{}
	}

	return out, nil
}

// Changelog returns every recorded mutation in insertion order.
func (s *Store) Changelog(ctx context.Context) ([]ChangelogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key_hash, action, old_value, new_value, changed_at
		FROM changelog
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query changelog: %w", err)
	}
	defer rows.Close()

	var out []ChangelogEntry
	for rows.Next() {
		var (
			e        ChangelogEntry
			oldValue sql.NullString
			changed  string
		)
		if err := rows.Scan(&e.KeyHash, &e.Action, &oldValue, &e.NewValue, &changed); err != nil {
			return nil, fmt.Errorf("scan changelog entry: %w", err)
		}
		e.OldValue = oldValue.String
		e.ChangedAt, err = time.Parse(time.RFC3339, changed)
		if err != nil {
			return nil, fmt.Errorf("parse changelog timestamp %q: %w", changed, err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changelog: %w", err)
	}

	if out == nil {
		out = []ChangelogEntry{}
	}

	return out, nil
}

// UsageHistory returns the recorded usage snapshots for one key, oldest
// first.
func (s *Store) UsageHistory(ctx context.Context, keyHash string) ([]UsageSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key_hash, usage, checked_at
		FROM usage
		WHERE key_hash = ?
		ORDER BY id ASC
	`, keyHash)
	if err != nil {
		return nil, fmt.Errorf("query usage history: %w", err)
	}
	defer rows.Close()

	var out []UsageSnapshot
	for rows.Next() {
		var (
			snap    UsageSnapshot
			checked string
		)
		if err := rows.Scan(&snap.KeyHash, &snap.Usage, &checked); err != nil {
			return nil, fmt.Errorf("scan usage snapshot: %w", err)
		}
		snap.CheckedAt, err = time.Parse(time.RFC3339, checked)
		if err != nil {
			return nil, fmt.Errorf("parse usage timestamp %q: %w", checked, err)
		}
		out = append(out, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage history: %w", err)
	}

	if out == nil {
		out = []UsageSnapshot{}
	}

	return out, nil
}

// UsageSnapshot is one recorded usage reading.
type UsageSnapshot struct {
	KeyHash   string
	Usage     float64
	CheckedAt time.Time
}
