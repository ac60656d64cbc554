package blogs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"human layout", "2 Jun 2024, 14:30", time.Date(2024, 6, 2, 14, 30, 0, 0, time.UTC)},
		{"human date only", "2 Jun 2024", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", "2024-06-02T14:30:00Z", time.Date(2024, 6, 2, 14, 30, 0, 0, time.UTC)},
		{"iso date", "2024-06-02", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
		{"surrounding whitespace", " 2024-06-02 ", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, input := range []string{"", "   ", "yesterday", "13/45/2024", "June the second"} {
		_, err := ParseDate(input)
		assert.ErrorIs(t, err, ErrUnparseableDate, "input %q", input)
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	orig := time.Date(2024, 6, 2, 14, 30, 0, 0, time.UTC)
	parsed, err := ParseDate(FormatDate(orig))
	require.NoError(t, err)
	assert.True(t, orig.Equal(parsed))
}
