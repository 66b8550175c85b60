// Package timeutil translates between absolute instants, zone-local wall
// clock values, and the naive representation used by recurrence expansion.
//
// A naive datetime carries local wall-clock components but is handled as if
// those components were absolute (it is constructed in UTC). Recurrence rules
// operate on naive values so weekday and date arithmetic matches the
// schedule's local calendar.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadDateTime indicates a datetime string that could not be parsed.
var ErrBadDateTime = errors.New("timeutil: invalid datetime")

// ErrBadZone indicates an unknown IANA timezone identifier.
var ErrBadZone = errors.New("timeutil: invalid timezone")

const (
	// LocalDateLayout is the wall-clock date form used in session ids and
	// exception keys.
	LocalDateLayout = "2006-01-02"
	// LocalDateTimeLayout is the offset-free wall-clock datetime form.
	LocalDateTimeLayout = "2006-01-02T15:04:05"
	// LocalTimeLayout is the HH:MM form used by start/end time filters.
	LocalTimeLayout = "15:04"
)

// LoadZone resolves an IANA timezone name.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadZone, name)
	}
	return loc, nil
}

// ParseLocal parses a datetime string. Values carrying a trailing Z or an
// explicit offset are parsed as absolute instants; offset-free values are
// interpreted as wall-clock time in zone.
func ParseLocal(value string, zone *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrBadDateTime
	}

	if hasExplicitOffset(value) {
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadDateTime, value)
	}

	if zone == nil {
		zone = time.UTC
	}
	for _, layout := range []string{LocalDateTimeLayout, "2006-01-02T15:04", LocalDateLayout} {
		if ts, err := time.ParseInLocation(layout, value, zone); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrBadDateTime, value)
}

// hasExplicitOffset reports whether the value ends in Z or a numeric UTC
// offset. The check skips the date portion so minus signs in the date do not
// register as offsets.
func hasExplicitOffset(value string) bool {
	if strings.HasSuffix(value, "Z") {
		return true
	}
	idx := strings.IndexByte(value, 'T')
	if idx < 0 {
		return false
	}
	rest := value[idx+1:]
	return strings.ContainsAny(rest, "+-")
}

// AbsoluteToNaive converts an instant to the naive representation whose
// components equal the wall clock in zone.
func AbsoluteToNaive(instant time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = time.UTC
	}
	local := instant.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

// NaiveToAbsolute converts a naive datetime back to the absolute instant that
// carries the same wall clock in zone. On a backward DST transition that makes
// the wall clock ambiguous, the earlier instant is chosen. Wall clocks that
// fall in a forward-transition gap are normalized to a real instant adjacent
// to the transition.
func NaiveToAbsolute(naive time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = time.UTC
	}
	return time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), zone)
}

// FormatLocalDate renders the wall-clock date of instant in zone as YYYY-MM-DD.
func FormatLocalDate(instant time.Time, zone *time.Location) string {
	if zone == nil {
		zone = time.UTC
	}
	return instant.In(zone).Format(LocalDateLayout)
}

// FormatLocalTime renders instant in zone using the supplied layout. An empty
// layout falls back to HH:MM.
func FormatLocalTime(instant time.Time, zone *time.Location, layout string) string {
	if zone == nil {
		zone = time.UTC
	}
	if layout == "" {
		layout = LocalTimeLayout
	}
	return instant.In(zone).Format(layout)
}

// ParseLocalDate parses a YYYY-MM-DD wall-clock date in zone, returning the
// instant at local midnight.
func ParseLocalDate(value string, zone *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if zone == nil {
		zone = time.UTC
	}
	ts, err := time.ParseInLocation(LocalDateLayout, value, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadDateTime, value)
	}
	return ts, nil
}
