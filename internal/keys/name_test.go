package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ParsedName
	}{
		{
			name:  "full form",
			input: "20260227_Chaeyeon Kim_60853425",
			want:  ParsedName{Date: "20260227", Name: "Chaeyeon Kim", MQID: "60853425"},
		},
		{
			name:  "date and name without identifier",
			input: "20260227_Chaeyeon Kim",
			want:  ParsedName{Date: "20260227", Name: "Chaeyeon Kim"},
		},
		{
			name:  "bare name falls through unparsed",
			input: "My Test Key",
			want:  ParsedName{Name: "My Test Key"},
		},
		{
			name:  "underscore inside the display name",
			input: "20260227_Team_Alpha_60853425",
			want:  ParsedName{Date: "20260227", Name: "Team_Alpha", MQID: "60853425"},
		},
		{
			name:  "short date is not a date",
			input: "2026027_Chaeyeon Kim_60853425",
			want:  ParsedName{Name: "2026027_Chaeyeon Kim_60853425"},
		},
		{
			name:  "empty input",
			input: "",
			want:  ParsedName{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseName(tt.input))
		})
	}
}

func TestFormatNameRoundTrip(t *testing.T) {
	day := time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC)

	name := FormatName("Dasol Kim", "60853379", day)
	assert.Equal(t, "20260227_Dasol Kim_60853379", name)

	parsed := ParseName(name)
	assert.Equal(t, "20260227", parsed.Date)
	assert.Equal(t, "Dasol Kim", parsed.Name)
	assert.Equal(t, "60853379", parsed.MQID)
}

func TestFormatNameNormalizesUnicode(t *testing.T) {
	day := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)

	composed := FormatName("José Muñoz", "60850001", day)
	decomposed := FormatName("José Muñoz", "60850001", day)

	assert.Equal(t, composed, decomposed)
}
