package models

import (
	"strings"
	"time"
)

// SupportedTimestampFormats lists formats we attempt to parse
var SupportedTimestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.UnixDate,
}

// Normalize applies field normalization to a FeatureSnapshot
// - upper-cases Component
// - trims feature names
// - ensures Timestamp is UTC
func (s *FeatureSnapshot) Normalize() {
	// Component identifiers are canonically upper-case
	s.Component = strings.ToUpper(strings.TrimSpace(s.Component))

	s.Timestamp = s.Timestamp.UTC()

	// Trim whitespace from feature names
	if s.Features != nil {
		normalized := make(map[string]float64, len(s.Features))
		for k, v := range s.Features {
			name := strings.TrimSpace(k)
			if name == "" {
				continue
			}
			normalized[name] = v
		}
		s.Features = normalized
	}
}

// ParseTimestamp attempts to parse a timestamp string into time.Time
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)

	for _, format := range SupportedTimestampFormats {
		if t, err := time.Parse(format, ts); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, ErrInvalidTimestamp
}
