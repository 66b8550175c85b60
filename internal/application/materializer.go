package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/recurrence"
	"github.com/example/studio-scheduler/internal/timeutil"
)

// SessionIDSeparator joins the schedule id and the occurrence's local date
// into a session id.
const SessionIDSeparator = "#"

// SessionID builds the id for a schedule's occurrence on a local date.
func SessionID(scheduleID, date string) string {
	return scheduleID + SessionIDSeparator + date
}

// SplitSessionID splits a session id back into schedule id and local date.
func SplitSessionID(sessionID string) (scheduleID, date string, err error) {
	idx := strings.LastIndex(sessionID, SessionIDSeparator)
	if idx <= 0 || idx == len(sessionID)-1 {
		return "", "", fmt.Errorf("malformed session id %q", sessionID)
	}
	return sessionID[:idx], sessionID[idx+1:], nil
}

// MaterializeInput bundles everything session materialization depends on.
// Materialization is a pure function of this input: repeated calls with equal
// inputs produce equal session lists.
type MaterializeInput struct {
	Schedule   persistence.Schedule
	Exceptions []persistence.ScheduleException
	Summaries  map[string]persistence.SessionSummary
	RangeStart time.Time
	RangeEnd   time.Time
}

// MaterializeSessions expands a schedule into its virtual sessions inside the
// absolute range, applying per-date exceptions and merging summary counters.
func MaterializeSessions(input MaterializeInput) ([]Session, error) {
	schedule := input.Schedule

	zone, err := timeutil.LoadZone(schedule.Timezone)
	if err != nil {
		return nil, err
	}
	templateStart, err := timeutil.ParseLocal(schedule.StartLocal, zone)
	if err != nil {
		return nil, fmt.Errorf("schedule %s start: %w", schedule.ID, err)
	}
	templateEnd, err := timeutil.ParseLocal(schedule.EndLocal, zone)
	if err != nil {
		return nil, fmt.Errorf("schedule %s end: %w", schedule.ID, err)
	}
	// Template duration is fixed in absolute time, so occurrences keep their
	// length across DST transitions.
	duration := templateEnd.Sub(templateStart)

	starts, err := occurrenceStarts(schedule, templateStart, zone, input.RangeStart, input.RangeEnd)
	if err != nil {
		return nil, err
	}

	exceptionsByDate := make(map[string]persistence.ScheduleException, len(input.Exceptions))
	for _, exception := range input.Exceptions {
		exceptionsByDate[exception.OccurrenceDate] = exception
	}

	sessions := make([]Session, 0, len(starts))
	for _, start := range starts {
		date := timeutil.FormatLocalDate(start, zone)

		exception, hasException := exceptionsByDate[date]
		if hasException && exception.Type == "CANCELLED" {
			continue
		}

		session := Session{
			TenantID:   schedule.TenantID,
			ID:         SessionID(schedule.ID, date),
			ScheduleID: schedule.ID,
			Date:       date,
			Start:      start,
			End:        start.Add(duration),
			Timezone:   schedule.Timezone,
			Type:       schedule.Type,
			ProgramID:  schedule.ProgramID,
			LocationID: schedule.LocationID,
			Hosts:      schedule.Hosts,
			Tags:       schedule.Tags,
			Capacity:   sessionCapacity(schedule),
		}

		if hasException {
			if err := applyOverride(&session, exception, zone, duration); err != nil {
				return nil, err
			}
		}

		if summary, ok := input.Summaries[session.ID]; ok {
			session.BookedCount = summary.BookedCount
			session.WaitlistCount = summary.WaitlistCount
		}

		sessions = append(sessions, session)
	}
	return sessions, nil
}

func occurrenceStarts(schedule persistence.Schedule, templateStart time.Time, zone *time.Location, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if !schedule.IsRecurring {
		if templateStart.Before(rangeStart) || templateStart.After(rangeEnd) {
			return nil, nil
		}
		return []time.Time{templateStart}, nil
	}

	if schedule.RRule == nil {
		return nil, fmt.Errorf("%w: recurring schedule %s has no rule", recurrence.ErrUnsupportedRule, schedule.ID)
	}
	rule, err := recurrence.ParseRule(*schedule.RRule)
	if err != nil {
		return nil, err
	}

	// Expansion runs on naive wall-clock values in the schedule's zone.
	naiveStarts, err := rule.Expand(
		timeutil.AbsoluteToNaive(templateStart, zone),
		timeutil.AbsoluteToNaive(rangeStart, zone),
		timeutil.AbsoluteToNaive(rangeEnd, zone),
	)
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(naiveStarts))
	for _, naive := range naiveStarts {
		starts = append(starts, timeutil.NaiveToAbsolute(naive, zone))
	}
	return starts, nil
}

func sessionCapacity(schedule persistence.Schedule) *int {
	// BLOCK schedules never carry a capacity bound.
	if schedule.Type == "BLOCK" || schedule.BaseCapacity == nil {
		return nil
	}
	capacity := *schedule.BaseCapacity
	return &capacity
}

func applyOverride(session *Session, exception persistence.ScheduleException, zone *time.Location, duration time.Duration) error {
	if exception.Type != "OVERRIDE" {
		return nil
	}

	if exception.OverrideStart != nil {
		start, err := parseOverrideClock(*exception.OverrideStart, session.Date, zone)
		if err != nil {
			return err
		}
		session.Start = start
		session.End = start.Add(duration)
	}
	if exception.OverrideEnd != nil {
		end, err := parseOverrideClock(*exception.OverrideEnd, session.Date, zone)
		if err != nil {
			return err
		}
		session.End = end
	}
	if exception.OverrideCapacity != nil {
		capacity := *exception.OverrideCapacity
		session.Capacity = &capacity
	}
	if len(exception.OverrideHosts) > 0 {
		session.Hosts = exception.OverrideHosts
	}
	if exception.OverrideLocationID != nil {
		session.LocationID = exception.OverrideLocationID
	}
	return nil
}

// parseOverrideClock accepts either a full local datetime or a bare "HH:MM"
// or "HH:MM:SS" clock applied to the occurrence date.
func parseOverrideClock(value, date string, zone *time.Location) (time.Time, error) {
	if strings.Contains(value, "T") {
		return timeutil.ParseLocal(value, zone)
	}
	clock := value
	if len(clock) == len("15:04") {
		clock += ":00"
	}
	return timeutil.ParseLocal(date+"T"+clock, zone)
}
