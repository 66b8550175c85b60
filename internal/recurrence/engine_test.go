package recurrence

import (
	"errors"
	"testing"
	"time"
)

func naive(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", value)
	if err != nil {
		t.Fatalf("failed to parse naive value %s: %v", value, err)
	}
	return ts
}

func expand(t *testing.T, ruleValue, dtstart, rangeStart, rangeEnd string) []time.Time {
	t.Helper()
	rule, err := ParseRule(ruleValue)
	if err != nil {
		t.Fatalf("failed to parse rule %q: %v", ruleValue, err)
	}
	occurrences, err := rule.Expand(naive(t, dtstart), naive(t, rangeStart), naive(t, rangeEnd))
	if err != nil {
		t.Fatalf("expansion failed: %v", err)
	}
	return occurrences
}

func assertOccurrences(t *testing.T, got []time.Time, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i, value := range want {
		if expected := naive(t, value); !got[i].Equal(expected) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, expected, got[i])
		}
	}
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	t.Run("accepts the supported profile", func(t *testing.T) {
		t.Parallel()
		rule, err := ParseRule("RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rule.Frequency != FrequencyWeekly || rule.Interval != 2 || len(rule.Weekdays) != 3 {
			t.Fatalf("unexpected rule: %+v", rule)
		}
	})

	t.Run("the RRULE prefix is optional", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseRule("FREQ=DAILY"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("parses UNTIL and COUNT", func(t *testing.T) {
		t.Parallel()
		rule, err := ParseRule("FREQ=DAILY;UNTIL=20250110T000000Z")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rule.Until == nil || rule.Until.Year() != 2025 {
			t.Fatalf("unexpected UNTIL: %+v", rule.Until)
		}

		rule, err = ParseRule("FREQ=DAILY;COUNT=5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rule.Count != 5 {
			t.Fatalf("unexpected COUNT: %d", rule.Count)
		}
	})

	t.Run("rejects out-of-profile rules", func(t *testing.T) {
		t.Parallel()
		rejected := []string{
			"",
			"FREQ=YEARLY",
			"FREQ=HOURLY",
			"FREQ=WEEKLY",                      // BYDAY required
			"FREQ=WEEKLY;BYDAY=XX",             // unknown weekday
			"FREQ=MONTHLY;BYDAY=MO",            // nth-weekday family
			"FREQ=MONTHLY;BYMONTHDAY=-1",       // negative month day
			"FREQ=MONTHLY;BYSETPOS=1",          // positional recurrence
			"FREQ=DAILY;BYMONTHDAY=5",          // month days outside MONTHLY
			"FREQ=DAILY;INTERVAL=0",            // non-positive interval
			"FREQ=DAILY;COUNT=0",               // non-positive count
			"FREQ=DAILY;BYHOUR=9",              // time-of-day modifier
			"FREQ=DAILY;UNTIL=bogus",           // malformed until
			"FREQ=DAILY;COUNT=3;UNTIL=20250110T000000Z", // mutually exclusive
			"FREQ=DAILY;FREQ=WEEKLY",           // duplicate component
		}
		for _, value := range rejected {
			if _, err := ParseRule(value); !errors.Is(err, ErrUnsupportedRule) {
				t.Fatalf("expected ErrUnsupportedRule for %q, got %v", value, err)
			}
		}
	})
}

func TestRule_Expand_Weekly(t *testing.T) {
	t.Parallel()

	t.Run("monday wednesday friday over one week", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR",
			"2025-01-06T07:00:00", "2025-01-06T00:00:00", "2025-01-10T23:59:59")
		assertOccurrences(t, got,
			"2025-01-06T07:00:00",
			"2025-01-08T07:00:00",
			"2025-01-10T07:00:00",
		)
	})

	t.Run("biweekly skips alternating weeks", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO",
			"2025-01-06T09:00:00", "2025-01-01T00:00:00", "2025-02-04T00:00:00")
		assertOccurrences(t, got,
			"2025-01-06T09:00:00",
			"2025-01-20T09:00:00",
			"2025-02-03T09:00:00",
		)
	})

	t.Run("occurrences never precede dtstart", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=WEEKLY;BYDAY=MO,FR",
			"2025-01-08T07:00:00", "2025-01-06T00:00:00", "2025-01-13T23:00:00")
		assertOccurrences(t, got,
			"2025-01-10T07:00:00",
			"2025-01-13T07:00:00",
		)
	})
}

func TestRule_Expand_Daily(t *testing.T) {
	t.Parallel()

	t.Run("consecutive days within the range", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=DAILY",
			"2025-03-08T07:00:00", "2025-03-08T00:00:00", "2025-03-10T00:00:00")
		assertOccurrences(t, got,
			"2025-03-08T07:00:00",
			"2025-03-09T07:00:00",
		)
	})

	t.Run("interval steps day spacing", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=DAILY;INTERVAL=3",
			"2025-01-01T18:00:00", "2025-01-01T00:00:00", "2025-01-10T00:00:00")
		assertOccurrences(t, got,
			"2025-01-01T18:00:00",
			"2025-01-04T18:00:00",
			"2025-01-07T18:00:00",
		)
	})

	t.Run("UNTIL clips the expansion", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=DAILY;UNTIL=20250103T235959Z",
			"2025-01-01T12:00:00", "2025-01-01T00:00:00", "2025-01-31T00:00:00")
		assertOccurrences(t, got,
			"2025-01-01T12:00:00",
			"2025-01-02T12:00:00",
			"2025-01-03T12:00:00",
		)
	})

	t.Run("COUNT is consumed from dtstart", func(t *testing.T) {
		t.Parallel()
		// Three total occurrences; the range only sees the tail of them.
		got := expand(t, "FREQ=DAILY;COUNT=3",
			"2025-01-01T12:00:00", "2025-01-03T00:00:00", "2025-01-31T00:00:00")
		assertOccurrences(t, got, "2025-01-03T12:00:00")
	})

	t.Run("weekday filter narrows daily rules", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=DAILY;BYDAY=SA,SU",
			"2025-01-06T10:00:00", "2025-01-06T00:00:00", "2025-01-12T23:00:00")
		assertOccurrences(t, got,
			"2025-01-11T10:00:00",
			"2025-01-12T10:00:00",
		)
	})
}

func TestRule_Expand_Monthly(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the dtstart month day", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=MONTHLY",
			"2025-01-15T08:00:00", "2025-01-01T00:00:00", "2025-04-01T00:00:00")
		assertOccurrences(t, got,
			"2025-01-15T08:00:00",
			"2025-02-15T08:00:00",
			"2025-03-15T08:00:00",
		)
	})

	t.Run("explicit month days in order", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=MONTHLY;BYMONTHDAY=15,1",
			"2025-01-01T08:00:00", "2025-01-01T00:00:00", "2025-02-28T00:00:00")
		assertOccurrences(t, got,
			"2025-01-01T08:00:00",
			"2025-01-15T08:00:00",
			"2025-02-01T08:00:00",
			"2025-02-15T08:00:00",
		)
	})

	t.Run("skips months missing the day", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=MONTHLY;BYMONTHDAY=31",
			"2025-01-31T08:00:00", "2025-01-01T00:00:00", "2025-04-01T00:00:00")
		assertOccurrences(t, got,
			"2025-01-31T08:00:00",
			"2025-03-31T08:00:00",
		)
	})

	t.Run("interval steps months", func(t *testing.T) {
		t.Parallel()
		got := expand(t, "FREQ=MONTHLY;INTERVAL=2",
			"2025-01-10T08:00:00", "2025-01-01T00:00:00", "2025-06-01T00:00:00")
		assertOccurrences(t, got,
			"2025-01-10T08:00:00",
			"2025-03-10T08:00:00",
			"2025-05-10T08:00:00",
		)
	})
}

func TestRule_Expand_Window(t *testing.T) {
	t.Parallel()

	rule, err := ParseRule("FREQ=DAILY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := rule.Expand(naive(t, "2025-01-01T00:00:00"), naive(t, "2025-01-05T00:00:00"), naive(t, "2025-01-02T00:00:00")); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}

	got, err := rule.Expand(naive(t, "2025-06-01T09:00:00"), naive(t, "2025-01-01T00:00:00"), naive(t, "2025-02-01T00:00:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no occurrences before dtstart, got %v", got)
	}
}
