package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/keywarden/internal/engine"
)

var snapshotHeader = []string{
	"email",
	"name",
	"mq_id",
	"key_name",
	"hash",
	"usage",
	"limit",
	"limit_reset",
	"disabled",
}

// WriteSnapshot serializes the matched set sorted by email. An unset
// limit renders as "unlimited"; zero is a real amount and renders as "0".
func WriteSnapshot(w io.Writer, matched []engine.Match) error {
	rows := slices.Clone(matched)
	slices.SortFunc(rows, func(a, b engine.Match) int {
		return strings.Compare(a.Email, b.Email)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	for _, m := range rows {
		record := []string{
			m.Email,
			m.Student.DisplayName(),
			m.Student.MQID,
			m.Key.Name,
			m.Key.Hash,
			strconv.FormatFloat(m.Key.Usage, 'f', -1, 64),
			m.Key.Limit.String(),
			m.Key.Cadence.String(),
			strconv.FormatBool(m.Key.Disabled),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Snapshot writes a timestamped snapshot file and returns its name.
func Snapshot(matched []engine.Match, prefix string, now time.Time) (string, error) {
	name := Filename(prefix, now, "csv")

	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, matched); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}
