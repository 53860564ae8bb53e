package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
)

// MissingSecret fills the api_key column when the store never saw the
// key's secret. The remote service returns secrets exactly once, at
// creation, so keys synced from a listing carry only their label.
const MissingSecret = "[Key not stored - check OpenRouter]"

var keyFileHeader = []string{
	"first_name",
	"last_name",
	"email",
	"mq_id",
	"api_key",
	"key_name",
	"limit",
	"disabled",
}

// WriteKeysCSV serializes stored key rows as csv.
func WriteKeysCSV(w io.Writer, rows []store.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(keyFileHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.FirstName,
			row.LastName,
			row.Email,
			row.MQID,
			secretOrPlaceholder(row.Label),
			row.KeyName,
			row.Limit.String(),
			strconv.FormatBool(row.Disabled),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// jsonLimit renders a concrete amount as a number and unset as the
// literal "unlimited", the same spelling the csv form uses.
type jsonLimit struct {
	keys.Limit
}

func (l jsonLimit) MarshalJSON() ([]byte, error) {
	if amount, ok := l.Amount(); ok {
		return json.Marshal(amount)
	}
	return json.Marshal("unlimited")
}

type jsonKey struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	MQID      string    `json:"mq_id"`
	APIKey    string    `json:"api_key"`
	KeyName   string    `json:"key_name"`
	Limit     jsonLimit `json:"limit"`
	Disabled  bool      `json:"disabled"`
}

// WriteKeysJSON serializes stored key rows as an indented JSON array.
func WriteKeysJSON(w io.Writer, rows []store.ExportRow) error {
	out := make([]jsonKey, 0, len(rows))
	for _, row := range rows {
		out = append(out, jsonKey{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
			MQID:      row.MQID,
			APIKey:    secretOrPlaceholder(row.Label),
			KeyName:   row.KeyName,
			Limit:     jsonLimit{row.Limit},
			Disabled:  row.Disabled,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func secretOrPlaceholder(label string) string {
	if label == "" {
		return MissingSecret
	}
	return label
}
