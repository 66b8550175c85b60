// Package recurrence validates and expands the supported RFC 5545 rule
// profile. Expansion runs entirely in the naive representation: dtstart and
// the range bounds carry local wall-clock components in a UTC container, so
// weekday and month arithmetic follows the schedule's local calendar.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedRule indicates a rule outside the supported RFC 5545 profile.
var ErrUnsupportedRule = errors.New("recurrence: unsupported rule")

// ErrInvalidWindow indicates an expansion window whose end precedes its start.
var ErrInvalidWindow = errors.New("recurrence: invalid expansion window")

// Frequency identifies the supported recurrence frequencies.
type Frequency string

const (
	// FrequencyDaily generates occurrences every INTERVAL days.
	FrequencyDaily Frequency = "DAILY"
	// FrequencyWeekly generates occurrences on the selected weekdays of
	// every INTERVAL-th week.
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyMonthly generates occurrences on fixed month days of every
	// INTERVAL-th month.
	FrequencyMonthly Frequency = "MONTHLY"
)

// Rule is a validated recurrence configuration.
type Rule struct {
	Frequency Frequency
	Interval  int
	Weekdays  []time.Weekday
	MonthDays []int
	Until     *time.Time
	Count     int
}

// maxIterations bounds the expansion loop against runaway rules.
const maxIterations = 5000

var weekdayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// ParseRule validates a rule string against the supported profile. The
// leading "RRULE:" marker is optional. Frequencies beyond DAILY, WEEKLY and
// MONTHLY, positional BYDAY entries, BYSETPOS, and every other RFC 5545
// extension are rejected with ErrUnsupportedRule.
func ParseRule(value string) (Rule, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "RRULE:")
	if value == "" {
		return Rule{}, fmt.Errorf("%w: empty rule", ErrUnsupportedRule)
	}

	rule := Rule{Interval: 1}
	seen := make(map[string]struct{})

	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, rawValue, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("%w: malformed component %q", ErrUnsupportedRule, part)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		rawValue = strings.TrimSpace(rawValue)
		if _, dup := seen[key]; dup {
			return Rule{}, fmt.Errorf("%w: duplicate component %s", ErrUnsupportedRule, key)
		}
		seen[key] = struct{}{}

		switch key {
		case "FREQ":
			switch Frequency(strings.ToUpper(rawValue)) {
			case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
				rule.Frequency = Frequency(strings.ToUpper(rawValue))
			default:
				return Rule{}, fmt.Errorf("%w: FREQ=%s", ErrUnsupportedRule, rawValue)
			}
		case "INTERVAL":
			interval, err := strconv.Atoi(rawValue)
			if err != nil || interval <= 0 {
				return Rule{}, fmt.Errorf("%w: INTERVAL=%s", ErrUnsupportedRule, rawValue)
			}
			rule.Interval = interval
		case "BYDAY":
			days, err := parseWeekdays(rawValue)
			if err != nil {
				return Rule{}, err
			}
			rule.Weekdays = days
		case "BYMONTHDAY":
			days, err := parseMonthDays(rawValue)
			if err != nil {
				return Rule{}, err
			}
			rule.MonthDays = days
		case "UNTIL":
			until, err := parseUntil(rawValue)
			if err != nil {
				return Rule{}, err
			}
			rule.Until = &until
		case "COUNT":
			count, err := strconv.Atoi(rawValue)
			if err != nil || count <= 0 {
				return Rule{}, fmt.Errorf("%w: COUNT=%s", ErrUnsupportedRule, rawValue)
			}
			rule.Count = count
		default:
			return Rule{}, fmt.Errorf("%w: component %s", ErrUnsupportedRule, key)
		}
	}

	if rule.Frequency == "" {
		return Rule{}, fmt.Errorf("%w: FREQ is required", ErrUnsupportedRule)
	}
	if rule.Frequency == FrequencyWeekly && len(rule.Weekdays) == 0 {
		return Rule{}, fmt.Errorf("%w: WEEKLY requires BYDAY", ErrUnsupportedRule)
	}
	if rule.Frequency == FrequencyMonthly && len(rule.Weekdays) > 0 {
		return Rule{}, fmt.Errorf("%w: BYDAY is not supported for MONTHLY", ErrUnsupportedRule)
	}
	if rule.Frequency != FrequencyMonthly && len(rule.MonthDays) > 0 {
		return Rule{}, fmt.Errorf("%w: BYMONTHDAY requires FREQ=MONTHLY", ErrUnsupportedRule)
	}
	if rule.Until != nil && rule.Count > 0 {
		return Rule{}, fmt.Errorf("%w: UNTIL and COUNT are mutually exclusive", ErrUnsupportedRule)
	}

	return rule, nil
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	seen := make(map[time.Weekday]struct{}, len(parts))
	for _, part := range parts {
		token := strings.ToUpper(strings.TrimSpace(part))
		day, ok := weekdayNames[token]
		if !ok {
			// Positional entries such as 2MO or -1FR land here.
			return nil, fmt.Errorf("%w: BYDAY entry %q", ErrUnsupportedRule, part)
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: BYDAY requires at least one weekday", ErrUnsupportedRule)
	}
	return days, nil
}

func parseMonthDays(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	days := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 1 || day > 31 {
			// Negative month days (counting from the end) are out of profile.
			return nil, fmt.Errorf("%w: BYMONTHDAY entry %q", ErrUnsupportedRule, part)
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: BYMONTHDAY requires at least one day", ErrUnsupportedRule)
	}
	sort.Ints(days)
	return days, nil
}

func parseUntil(value string) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: UNTIL=%s", ErrUnsupportedRule, value)
}

// Expand produces the naive occurrence starts of the rule that fall within
// [rangeStart, rangeEnd], both endpoints inclusive. dtstart carries the
// template's local date and time-of-day; occurrences never precede it. COUNT
// is evaluated from dtstart, so occurrences consumed before rangeStart still
// draw down the count.
func (r Rule) Expand(dtstart, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, ErrInvalidWindow
	}

	interval := r.Interval
	if interval <= 0 {
		interval = 1
	}

	upperBound := rangeEnd
	if r.Until != nil {
		until := naiveUntil(*r.Until)
		if until.Before(upperBound) {
			upperBound = until
		}
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(r.Weekdays))
	for _, day := range r.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]time.Time, 0)
	emitted := 0

	include := func(candidate time.Time) (done bool) {
		if candidate.Before(dtstart) {
			return false
		}
		emitted++
		if !candidate.Before(rangeStart) {
			occurrences = append(occurrences, candidate)
		}
		return r.Count > 0 && emitted >= r.Count
	}

	switch r.Frequency {
	case FrequencyDaily:
		current := dtstart
		for i := 0; i < maxIterations; i++ {
			if current.After(upperBound) {
				break
			}
			matches := true
			if len(weekdaySet) > 0 {
				_, matches = weekdaySet[current.Weekday()]
			}
			if matches && include(current) {
				break
			}
			current = current.AddDate(0, 0, interval)
		}

	case FrequencyWeekly:
		baseWeek := startOfWeek(dtstart)
		current := dtstart
		for i := 0; i < maxIterations; i++ {
			if current.After(upperBound) {
				break
			}
			if _, ok := weekdaySet[current.Weekday()]; ok {
				weeks := int(startOfWeek(current).Sub(baseWeek).Hours() / (24 * 7))
				if weeks%interval == 0 && include(current) {
					break
				}
			}
			current = current.AddDate(0, 0, 1)
		}

	case FrequencyMonthly:
		monthDays := r.MonthDays
		if len(monthDays) == 0 {
			monthDays = []int{dtstart.Day()}
		}
		year, month, _ := dtstart.Date()
		cursor := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthly:
		for i := 0; i < maxIterations; i++ {
			if cursor.After(upperBound) {
				break
			}
			for _, day := range monthDays {
				if day > daysInMonth(cursor) {
					continue
				}
				candidate := time.Date(cursor.Year(), cursor.Month(), day, dtstart.Hour(), dtstart.Minute(), dtstart.Second(), dtstart.Nanosecond(), time.UTC)
				if candidate.After(upperBound) {
					continue
				}
				if include(candidate) {
					break monthly
				}
			}
			cursor = cursor.AddDate(0, interval, 0)
		}

	default:
		return nil, fmt.Errorf("%w: FREQ=%s", ErrUnsupportedRule, r.Frequency)
	}

	return occurrences, nil
}

// naiveUntil reinterprets the UNTIL instant's UTC components as a naive
// value, matching the naive domain the expansion runs in.
func naiveUntil(until time.Time) time.Time {
	utc := until.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), utc.Minute(), utc.Second(), 0, time.UTC)
}

// startOfWeek returns Monday 00:00 of the week containing t, following the
// RFC 5545 default week start.
func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func daysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}
