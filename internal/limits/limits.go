// Package limits reads and writes the target-entitlement file: the
// per-student desired (limit, disabled) state the update command enforces.
//
// The file doubles as the operator's worksheet. refresh-limits rewrites it
// from live remote state, preserving any target an operator has set; the
// operator edits target columns by hand; update diffs those targets
// against actuals and applies the difference.
package limits

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/keywarden/internal/keys"
)

// Columns of the target-entitlement file, in order.
var header = []string{
	"email",
	"name",
	"mq_id",
	"target_limit",
	"actual_limit",
	"target_disabled",
	"actual_disabled",
	"key_name",
	"hash",
}

// Entry is one student's row. Target fields are nil when no target was
// ever set; actual fields mirror the remote state observed at the last
// refresh and carry no authority.
type Entry struct {
	Email          string
	Name           string
	MQID           string
	TargetLimit    *keys.Limit
	ActualLimit    keys.Limit
	TargetDisabled *bool
	ActualDisabled bool
	KeyName        string
	Hash           string
}

// Load reads the target file. A missing file is an empty map, not an
// error: the first refresh creates it.
func Load(path string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, fmt.Errorf("open limits file: %w", err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// Read parses target entries keyed by email. Rows are numbered from 2,
// the header being row 1, so error messages line up with spreadsheet
// views of the file.
func Read(r io.Reader) (map[string]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(head))
	for i, name := range head {
		col[strings.TrimSpace(name)] = i
	}
	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	entries := make(map[string]Entry)
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		email := field(record, "email")

		e := Entry{
			Email:   email,
			Name:    field(record, "name"),
			MQID:    field(record, "mq_id"),
			KeyName: field(record, "key_name"),
			Hash:    field(record, "hash"),
		}

		e.TargetLimit, err = parseTargetLimit(field(record, "target_limit"))
		if err != nil {
			return nil, rowError(row, email, "target_limit", err)
		}
		e.ActualLimit, err = keys.ParseLimit(field(record, "actual_limit"))
		if err != nil {
			return nil, rowError(row, email, "actual_limit", err)
		}
		e.TargetDisabled, err = parseTargetDisabled(field(record, "target_disabled"))
		if err != nil {
			return nil, rowError(row, email, "target_disabled", err)
		}
		e.ActualDisabled, err = parseFlag(field(record, "actual_disabled"))
		if err != nil {
			return nil, rowError(row, email, "actual_disabled", err)
		}

		entries[email] = e
	}

	return entries, nil
}

func rowError(row int, email, column string, err error) error {
	if email == "" {
		email = "?"
	}
	return fmt.Errorf("row %d (email: %s): invalid %s: %w", row, email, column, err)
}

// parseTargetLimit distinguishes never-set (empty cell) from an explicit
// target, including the explicit "unlimited".
func parseTargetLimit(s string) (*keys.Limit, error) {
	if s == "" {
		return nil, nil
	}
	l, err := keys.ParseLimit(s)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func parseTargetDisabled(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFlag(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return v, nil
}

// Save writes entries sorted by email, replacing the file.
func Save(entries []Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create limits file: %w", err)
	}

	if err := Write(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Write serializes entries in the order given. Unset targets serialize as
// empty cells; explicit unlimited as the literal "unlimited"; booleans
// lower-case.
func Write(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			e.Email,
			e.Name,
			e.MQID,
			limitCell(e.TargetLimit),
			e.ActualLimit.String(),
			flagCell(e.TargetDisabled),
			strconv.FormatBool(e.ActualDisabled),
			e.KeyName,
			e.Hash,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func limitCell(l *keys.Limit) string {
	if l == nil {
		return ""
	}
	return l.String()
}

func flagCell(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
