package domain

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the accepted source formats: the corpus writes
// "2006-01-02 15:04:05+00:00" style stamps, CLI callers tend to RFC 3339,
// and offsets appear both with and without minutes.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05Z0700",
}

// ParseTimestamp parses a timezone-aware timestamp in any accepted layout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
