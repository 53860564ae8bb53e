// Package roster loads, validates, and persists the locally-declared set
// of students and their entitlement intent (budget, reset cadence).
//
// The file format is CSV with a header row:
//
//	first_name,last_name,email,mq_id,budget,limit_reset
//
// Columns are addressed by name, not position. A missing roster file is an
// empty roster, not an error.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/keywarden/internal/keys"
)

// Student is one roster row: identity plus the entitlement the operator
// declared for them.
type Student struct {
	FirstName string `csv:"first_name" validate:"required"`
	LastName  string `csv:"last_name" validate:"required"`
	Email     string `csv:"email"`
	MQID      string `csv:"mq_id" validate:"required"`
	Budget    keys.Limit
	Cadence   keys.Cadence
}

// DisplayName joins first and last name with a single space, trimming only
// the outside so interior spacing survives verbatim into key names.
func (s Student) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Roster maps email to student. Email is the stable identity key; the MQID
// is what remote key names embed and what matching runs on.
type Roster map[string]Student

// Load reads the roster at path. A missing file yields an empty roster.
func Load(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Roster{}, nil
		}
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	ros, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", path, err)
	}
	return ros, nil
}

// Read parses roster rows from r. Row numbers in errors count the header
// as row 1, matching what an operator sees in a spreadsheet.
func Read(r io.Reader) (Roster, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Roster{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	ros := Roster{}
	seenID := make(map[string]int)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		s, err := parseRow(record, cols, row)
		if err != nil {
			return nil, err
		}
		if prev, dup := seenID[s.MQID]; dup {
			return nil, &ValidationError{
				Field: "mq_id",
				Row:   row,
				Email: emailContext(s.Email),
				Err:   fmt.Errorf("mq_id %q already used in row %d", s.MQID, prev),
			}
		}
		seenID[s.MQID] = row
		ros[s.Email] = s
	}
	return ros, nil
}

func parseRow(record []string, cols map[string]int, row int) (Student, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	s := Student{
		FirstName: field("first_name"),
		LastName:  field("last_name"),
		Email:     field("email"),
		MQID:      field("mq_id"),
	}
	if err := validateRequired(s, row); err != nil {
		return Student{}, err
	}

	budget, err := keys.ParseLimit(field("budget"))
	if err != nil {
		return Student{}, &ValidationError{Field: "budget", Row: row, Email: emailContext(s.Email), Err: err}
	}
	s.Budget = budget

	cadence, err := keys.ParseCadence(field("limit_reset"))
	if err != nil {
		return Student{}, &ValidationError{Field: "limit_reset", Row: row, Email: emailContext(s.Email), Err: err}
	}
	s.Cadence = cadence

	return s, nil
}

// Save writes the roster to path, one row per student sorted by email.
// Unset budgets and the none cadence serialize as empty cells, so a
// Save/Load round trip reproduces every student field-for-field.
func Save(ros Roster, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create roster: %w", err)
	}
	if err := Write(f, ros); err != nil {
		f.Close()
		return fmt.Errorf("save roster %s: %w", path, err)
	}
	return f.Close()
}

// Write serializes the roster to w in email order.
func Write(w io.Writer, ros Roster) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"first_name", "last_name", "email", "mq_id", "budget", "limit_reset"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	emails := make([]string, 0, len(ros))
	for email := range ros {
		emails = append(emails, email)
	}
	slices.Sort(emails)

	for _, email := range emails {
		s := ros[email]
		rec := []string{s.FirstName, s.LastName, s.Email, s.MQID, budgetField(s.Budget), s.Cadence.String()}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write row for %s: %w", email, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// budgetField renders a roster budget cell: empty when no budget was
// declared, unlike the entitlement files where absence spells "unlimited".
func budgetField(l keys.Limit) string {
	amount, ok := l.Amount()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
