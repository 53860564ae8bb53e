package roster

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywarden/internal/keys"
)

const sampleRoster = `first_name,last_name,email,mq_id,budget,limit_reset
Chaeyeon,Kim,chaeyeon.kim@example.com,60853425,3,weekly
Dasol,Kim,dasol.kim@example.com,60853379,3,weekly
`

func TestLoadMissingFile(t *testing.T) {
	ros, err := Load(filepath.Join(t.TempDir(), "roster.csv"))
	require.NoError(t, err)
	assert.Empty(t, ros)
}

func TestReadRoster(t *testing.T) {
	ros, err := Read(strings.NewReader(sampleRoster))
	require.NoError(t, err)
	require.Len(t, ros, 2)

	s := ros["chaeyeon.kim@example.com"]
	assert.Equal(t, "Chaeyeon", s.FirstName)
	assert.Equal(t, "Kim", s.LastName)
	assert.Equal(t, "60853425", s.MQID)
	assert.True(t, s.Budget.Equal(keys.LimitOf(3)))
	assert.Equal(t, keys.CadenceWeekly, s.Cadence)
}

func TestReadTrimsAndLowercases(t *testing.T) {
	in := "first_name,last_name,email,mq_id,budget,limit_reset\n" +
		"  Chaeyeon , Kim  , chaeyeon.kim@example.com ,60853425, 3 ,Weekly\n"
	ros, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	s, ok := ros["chaeyeon.kim@example.com"]
	require.True(t, ok)
	assert.Equal(t, "Chaeyeon", s.FirstName)
	assert.Equal(t, "Kim", s.LastName)
	assert.Equal(t, keys.CadenceWeekly, s.Cadence)
}

func TestReadBlankRequiredField(t *testing.T) {
	// Fourth record sits on file row 5, header counted as row 1.
	in := "first_name,last_name,email,mq_id,budget,limit_reset\n" +
		"A,One,a@example.com,1001,,\n" +
		"B,Two,b@example.com,1002,,\n" +
		"C,Three,c@example.com,1003,,\n" +
		",Four,d@example.com,1004,,\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "first_name", verr.Field)
	assert.Equal(t, 5, verr.Row)
	assert.Equal(t, "d@example.com", verr.Email)
	assert.Contains(t, err.Error(), "row 5")
	assert.Contains(t, err.Error(), "first_name")
}

func TestReadMissingEmailReportedAsUnknown(t *testing.T) {
	in := "first_name,last_name,email,mq_id\n" +
		"Chaeyeon,,chaeyeon.kim@example.com,60853425\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last_name")

	in = "first_name,last_name,email,mq_id\n" +
		"Chaeyeon,,,60853425\n"
	_, err = Read(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(email: ?)")
}

func TestReadInvalidCadence(t *testing.T) {
	in := "first_name,last_name,email,mq_id,budget,limit_reset\n" +
		"Chaeyeon,Kim,chaeyeon.kim@example.com,60853425,3,fortnightly\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "limit_reset", verr.Field)
	assert.Equal(t, 2, verr.Row)
	assert.Contains(t, err.Error(), "fortnightly")
	assert.Contains(t, err.Error(), "daily, monthly, weekly")

	var cadErr *keys.CadenceError
	assert.True(t, errors.As(err, &cadErr))
}

func TestReadInvalidBudget(t *testing.T) {
	in := "first_name,last_name,email,mq_id,budget,limit_reset\n" +
		"Chaeyeon,Kim,chaeyeon.kim@example.com,60853425,lots,\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "budget", verr.Field)
}

func TestReadDuplicateMQID(t *testing.T) {
	in := "first_name,last_name,email,mq_id,budget,limit_reset\n" +
		"Chaeyeon,Kim,chaeyeon.kim@example.com,60853425,,\n" +
		"Dasol,Kim,dasol.kim@example.com,60853425,,\n"
	_, err := Read(strings.NewReader(in))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "mq_id", verr.Field)
	assert.Equal(t, 3, verr.Row)
	assert.Contains(t, err.Error(), "60853425")
}

func TestReadMissingOptionalColumns(t *testing.T) {
	in := "first_name,last_name,email,mq_id\n" +
		"Chaeyeon,Kim,chaeyeon.kim@example.com,60853425\n"
	ros, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	s := ros["chaeyeon.kim@example.com"]
	assert.False(t, s.Budget.IsSet())
	assert.Equal(t, keys.CadenceNone, s.Cadence)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ros := Roster{
		"dasol.kim@example.com": {
			FirstName: "Dasol", LastName: "Kim",
			Email: "dasol.kim@example.com", MQID: "60853379",
			Budget: keys.LimitOf(3), Cadence: keys.CadenceWeekly,
		},
		"chaeyeon.kim@example.com": {
			FirstName: "Chaeyeon", LastName: "Kim",
			Email: "chaeyeon.kim@example.com", MQID: "60853425",
		},
	}

	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, Save(ros, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ros, got)
}

func TestWriteSortsByEmail(t *testing.T) {
	ros := Roster{
		"zoe@example.com": {FirstName: "Zoe", LastName: "Last", Email: "zoe@example.com", MQID: "2"},
		"amy@example.com": {FirstName: "Amy", LastName: "First", Email: "amy@example.com", MQID: "1"},
	}

	var sb strings.Builder
	require.NoError(t, Write(&sb, ros))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "amy@example.com")
	assert.Contains(t, lines[2], "zoe@example.com")
}

func TestDisplayName(t *testing.T) {
	s := Student{FirstName: "  Chaeyeon ", LastName: " Kim  "}
	assert.Equal(t, "Chaeyeon   Kim", s.DisplayName())

	assert.Equal(t, "Dasol Kim", Student{FirstName: "Dasol", LastName: "Kim"}.DisplayName())
	assert.Equal(t, "Cher", Student{FirstName: "Cher"}.DisplayName())
}
