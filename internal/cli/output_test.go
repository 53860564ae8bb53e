package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

func TestExitError_Error(t *testing.T) {
	bare := NewExitError(ExitCommandError, "roster missing")
	assert.Equal(t, "roster missing", bare.Error())

	wrapped := WrapExitError(ExitFailure, "failed to list remote keys", errors.New("status 500"))
	assert.Equal(t, "failed to list remote keys: status 500", wrapped.Error())
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapExitError(ExitFailure, "failed to list remote keys", inner)
	assert.ErrorIs(t, err, inner)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"command error", NewExitError(ExitCommandError, "bad input"), ExitCommandError},
		{"failure", NewExitError(ExitFailure, "remote down"), ExitFailure},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad input")), ExitCommandError},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDollars(t *testing.T) {
	assert.Equal(t, "$3", dollars(keys.LimitOf(3)))
	assert.Equal(t, "$0", dollars(keys.LimitOf(0)))
	assert.Equal(t, "$2.5", dollars(keys.LimitOf(2.5)))
	assert.Equal(t, "unlimited", dollars(keys.Unlimited()))
}

func matchedForTable() []engine.Match {
	return []engine.Match{
		{
			Key: keys.RemoteKey{
				Name:    "20260301_Dasol Kim_60853379",
				Hash:    "hash-b",
				Usage:   0.5,
				Limit:   keys.Unlimited(),
				Cadence: keys.CadenceNone,
			},
			Email: "dasol.kim@example.com",
			Student: roster.Student{
				FirstName: "Dasol", LastName: "Kim", MQID: "60853379",
				Email: "dasol.kim@example.com",
			},
		},
		{
			Key: keys.RemoteKey{
				Name:    "20260301_Chaeyeon Kim_60853425",
				Hash:    "hash-a",
				Usage:   1.25,
				Limit:   keys.LimitOf(25),
				Cadence: keys.CadenceWeekly,
			},
			Email: "chaeyeon.kim@FIXME.mq.edu.au",
			Student: roster.Student{
				FirstName: "Chaeyeon", LastName: "Kim", MQID: "60853425",
				Email: "chaeyeon.kim@FIXME.mq.edu.au",
			},
		},
	}
}

func TestPrintKeyTable(t *testing.T) {
	buf := &bytes.Buffer{}
	printKeyTable(buf, matchedForTable(), "@FIXME.mq.edu.au")

	out := buf.String()
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "$1.2500")
	assert.Contains(t, out, "$25")
	assert.Contains(t, out, "unlimited")
	assert.Contains(t, out, "FIX EMAIL")

	// Sorted by email: the placeholder entry sorts first
	chaeyeon := bytes.Index(buf.Bytes(), []byte("chaeyeon"))
	dasol := bytes.Index(buf.Bytes(), []byte("dasol"))
	require.NotEqual(t, -1, chaeyeon)
	require.NotEqual(t, -1, dasol)
	assert.Less(t, chaeyeon, dasol)
}

func TestPrintKeyTableCallerOrderPreserved(t *testing.T) {
	matched := matchedForTable()
	buf := &bytes.Buffer{}
	printKeyTable(buf, matched, "@FIXME.mq.edu.au")

	assert.Equal(t, "dasol.kim@example.com", matched[0].Email)
}

func TestReportOrphans(t *testing.T) {
	buf := &bytes.Buffer{}
	reportOrphans(buf, nil)
	assert.Empty(t, buf.String())

	orphans := []engine.Orphan{
		{Key: keys.RemoteKey{Name: "20250101_Gone Student_60859999", Usage: 4.2}},
		{Key: keys.RemoteKey{Name: "manual key", Usage: 0, Disabled: true}},
	}
	reportOrphans(buf, orphans)

	out := buf.String()
	assert.Contains(t, out, "2 keys in OpenRouter not matched to roster")
	assert.Contains(t, out, "20250101_Gone Student_60859999 - usage: $4.2000")
	assert.Contains(t, out, "manual key - usage: $0.0000 (disabled)")
	assert.Contains(t, out, "not managed by this tool")
}
