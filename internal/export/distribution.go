package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/keys"
)

var distributionHeader = []string{
	"first_name",
	"last_name",
	"email",
	"mq_id",
	"api_key",
	"key_name",
	"budget",
	"limit_reset",
}

// Issued pairs a freshly created key with the provisioning candidate it
// fulfilled, so the distribution file can carry both the secret and the
// student it belongs to.
type Issued struct {
	Candidate engine.Candidate
	Key       keys.ProvisionedKey
}

// WriteDistribution serializes issued keys in the order given, which is
// the order they were created. The api_key column holds plaintext
// secrets.
func WriteDistribution(w io.Writer, issued []Issued) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(distributionHeader); err != nil {
		return err
	}
	for _, is := range issued {
		record := []string{
			is.Candidate.Student.FirstName,
			is.Candidate.Student.LastName,
			is.Candidate.Email,
			is.Candidate.Student.MQID,
			is.Key.Secret,
			is.Key.Key.Name,
			is.Candidate.Limit.String(),
			is.Candidate.Cadence.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Distribution writes the timestamped distribution file and returns its
// name. The file contains secrets; callers should warn the operator to
// handle it accordingly.
func Distribution(issued []Issued, prefix string, now time.Time) (string, error) {
	name := Filename(prefix, now, "csv")

	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create distribution file: %w", err)
	}
	if err := WriteDistribution(f, issued); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}
