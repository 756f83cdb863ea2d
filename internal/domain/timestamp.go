package domain

import (
	"errors"
	"strconv"
	"time"
)

// TimestampLayout is the wire format for timestamps. It has whole-second resolution.
const TimestampLayout = time.RFC3339

// ErrInvalidTimestamp is returned by ParseTimestamp for unrecognised input.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// acceptedLayouts are tried in order by ParseTimestamp. The zone-less layouts
// cover clients that send naive ISO-8601 strings; those are read as UTC.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Stored timestamps use a four-digit year.
const (
	minYear = 1
	maxYear = 9999
)

// EffectiveSince returns the inclusive lower bound of last_modified for a
// delta query made with watermark.
//
// Watermarks travel with second resolution, so the watermark is truncated to
// the whole second and advanced by one: anything modified inside the second
// the client already saw is not sent again. A zero watermark means a full
// resync and is returned unchanged.
func EffectiveSince(watermark time.Time) time.Time {
	if watermark.IsZero() {
		return time.Time{}
	}
	return watermark.UTC().Truncate(time.Second).Add(time.Second)
}

// FormatTimestamp renders t in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads an ISO-8601 timestamp, with or without fractional
// seconds, or a Unix epoch in milliseconds. Years outside 1..9999 are
// rejected.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return inRange(t.UTC())
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return inRange(time.UnixMilli(ms).UTC())
	}
	return time.Time{}, ErrInvalidTimestamp
}

func inRange(t time.Time) (time.Time, error) {
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t, nil
}
