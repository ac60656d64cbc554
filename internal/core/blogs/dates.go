package blogs

import (
	"fmt"
	"strings"
	"time"
)

// HumanDateLayout is the layout dates are shown in and the first layout
// tried when parsing user input.
const HumanDateLayout = "2 Jan 2006, 15:04"

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	HumanDateLayout,
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses a date string, accepting the human layout first and
// falling back to RFC3339 and a few common shapes. It never substitutes
// "now" for bad input; callers that want a default must supply it as an
// explicit business rule.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrUnparseableDate)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
}

// FormatDate renders t in the human layout.
func FormatDate(t time.Time) string {
	return t.Format(HumanDateLayout)
}

// publishedTime parses a record's publishedAt for ordering purposes.
// The second return is false for missing or unparseable values, which
// the projection always sorts last.
func publishedTime(v Value) (time.Time, bool) {
	t, err := ParseDate(v.PublishedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
