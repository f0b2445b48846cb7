package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimetableEntry is one (stop, departure time) pair of a route timetable.
// TimePoint is an "HH:MM" string as published on the site.
type TimetableEntry struct {
	StopName  string `json:"stopName"`
	TimePoint string `json:"timePoint"`
}

// RouteRef is one row of a route index: the route number shown in the
// listing, its display name and its site-relative URL.
// It is encoded as a three element JSON array.
type RouteRef struct {
	Number string
	Name   string
	URL    string
}

// MarshalJSON implements json.Marshaler.
func (r RouteRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{r.Number, r.Name, r.URL})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RouteRef) UnmarshalJSON(data []byte) error {
	var row []string
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("route index row: %w", err)
	}
	if len(row) != 3 {
		return fmt.Errorf("route index row: expected 3 fields, got %d", len(row))
	}
	r.Number, r.Name, r.URL = row[0], row[1], row[2]
	return nil
}

// RouteRecord is the cached, self-contained parse result for one route.
// It is created by the assembler and never mutated afterwards.
type RouteRecord struct {
	RouteNumber   string                `json:"routeNumber"`
	RouteURL      string                `json:"routeUrl"`
	Nodes         map[string]*StopNode  `json:"nodes"`
	Relationships []RouteSegment        `json:"relationships"`
	Timetable     []TimetableEntry      `json:"timetable"`
	Coordinates   map[string]Coordinate `json:"coordinates"`
	Timestamp     Timestamp             `json:"timestamp"`
}

// Timestamp is a time.Time that tolerates the several layouts found in
// older cache files, including ISO 8601 without a zone.
type Timestamp struct {
	time.Time
}

// timestampFormats lists accepted layouts, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s using the accepted layouts.
// It returns the zero time when no layout matches.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed := ParseTimestamp(s)
	if parsed.IsZero() {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	t.Time = parsed
	return nil
}
