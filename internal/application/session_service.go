package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
	"github.com/example/studio-scheduler/internal/timeutil"
)

const (
	// DefaultMaxQueryDays bounds the session query window.
	DefaultMaxQueryDays = 90
	// rangePadding widens the absolute expansion range so that wall-clock
	// dates resolve correctly for every zone between UTC-12 and UTC+14.
	rangePadding = 26 * time.Hour
	// summaryChunkSize bounds one batched summary read.
	summaryChunkSize = 100
)

// SessionService materializes virtual sessions for the read path and resolves
// individual sessions for the booking and attendance paths.
type SessionService struct {
	schedules    ScheduleStore
	exceptions   ExceptionStore
	summaries    SummaryStore
	maxQueryDays int
	logger       *slog.Logger
}

// NewSessionService wires dependencies for session reads. maxQueryDays <= 0
// falls back to the default.
func NewSessionService(schedules ScheduleStore, exceptions ExceptionStore, summaries SummaryStore, maxQueryDays int, logger *slog.Logger) *SessionService {
	if maxQueryDays <= 0 {
		maxQueryDays = DefaultMaxQueryDays
	}
	return &SessionService{
		schedules:    schedules,
		exceptions:   exceptions,
		summaries:    summaries,
		maxQueryDays: maxQueryDays,
		logger:       defaultLogger(logger),
	}
}

// QuerySessions expands every matching schedule over the requested local date
// window and returns the merged, filtered, ascending session list.
func (s *SessionService) QuerySessions(ctx context.Context, principal Principal, query SessionQuery) ([]Session, error) {
	if query.SessionID != "" {
		session, err := s.GetSession(ctx, principal, query.SessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []Session{session}, nil
	}

	rangeStart, rangeEnd, err := s.queryRange(query.StartDate, query.EndDate)
	if err != nil {
		return nil, err
	}

	filter := persistence.ScheduleFilter{ProgramIDs: query.ProgramIDs}
	schedules, err := s.schedules.ListSchedules(ctx, principal.TenantID, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}

	var sessions []Session
	for _, schedule := range schedules {
		exceptions, err := s.exceptions.ListExceptions(ctx, principal.TenantID, schedule.ID, query.StartDate, query.EndDate)
		if err != nil {
			return nil, mapStoreError(err)
		}
		materialized, err := MaterializeSessions(MaterializeInput{
			Schedule:   schedule,
			Exceptions: exceptions,
			RangeStart: rangeStart,
			RangeEnd:   rangeEnd,
		})
		if err != nil {
			// A schedule with a bad zone or rule must not hide the others.
			serviceLogger(ctx, s.logger, "session", "query_sessions",
				"tenant_id", principal.TenantID, "schedule_id", schedule.ID).
				WarnContext(ctx, "skipping unmaterializable schedule", "error", err)
			continue
		}
		sessions = append(sessions, materialized...)
	}

	sessions = filterByLocalDate(sessions, query.StartDate, query.EndDate)
	sessions = applySessionFilters(sessions, query)

	if err := s.mergeSummaries(ctx, principal.TenantID, sessions); err != nil {
		return nil, err
	}

	sortSessions(sessions)
	return sessions, nil
}

// GetSession materializes a single session by id, loading only its schedule
// and that date's exception.
func (s *SessionService) GetSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	session, err := s.ResolveSession(ctx, principal.TenantID, sessionID)
	if err != nil {
		return Session{}, err
	}

	summary, err := s.summaries.GetSummary(ctx, principal.TenantID, sessionID)
	if err == nil {
		session.BookedCount = summary.BookedCount
		session.WaitlistCount = summary.WaitlistCount
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return Session{}, mapStoreError(err)
	}
	return session, nil
}

// ResolveSession materializes the session identified by sessionID without
// summary counters. It fails with ErrNotFound when the schedule is missing,
// the date is cancelled, or the occurrence does not fall on that date.
func (s *SessionService) ResolveSession(ctx context.Context, tenantID, sessionID string) (Session, error) {
	scheduleID, date, err := SplitSessionID(sessionID)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("sessionId", "malformed session id")
		return Session{}, vErr
	}

	schedule, err := s.schedules.GetSchedule(ctx, tenantID, scheduleID)
	if err != nil {
		return Session{}, mapStoreError(err)
	}

	var exceptions []persistence.ScheduleException
	exception, err := s.exceptions.GetException(ctx, tenantID, scheduleID, date)
	if err == nil {
		exceptions = append(exceptions, exception)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return Session{}, mapStoreError(err)
	}

	zone, err := timeutil.LoadZone(schedule.Timezone)
	if err != nil {
		return Session{}, err
	}
	dayStart, err := timeutil.ParseLocalDate(date, zone)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("sessionId", "malformed session date")
		return Session{}, vErr
	}

	sessions, err := MaterializeSessions(MaterializeInput{
		Schedule:   schedule,
		Exceptions: exceptions,
		RangeStart: dayStart.Add(-rangePadding),
		RangeEnd:   dayStart.Add(24*time.Hour + rangePadding),
	})
	if err != nil {
		return Session{}, err
	}
	for _, session := range sessions {
		if session.ID == sessionID {
			return session, nil
		}
	}
	return Session{}, ErrNotFound
}

func (s *SessionService) queryRange(startDate, endDate string) (time.Time, time.Time, error) {
	vErr := &ValidationError{}
	start, err := time.Parse(timeutil.LocalDateLayout, startDate)
	if err != nil {
		vErr.add("startDate", "must be YYYY-MM-DD")
	}
	end, err := time.Parse(timeutil.LocalDateLayout, endDate)
	if err != nil {
		vErr.add("endDate", "must be YYYY-MM-DD")
	}
	if vErr.HasErrors() {
		return time.Time{}, time.Time{}, vErr
	}
	if end.Before(start) {
		vErr.add("endDate", "must not precede startDate")
		return time.Time{}, time.Time{}, vErr
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > s.maxQueryDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: window of %d days exceeds %d", ErrRangeTooLarge, days, s.maxQueryDays)
	}

	rangeStart := start.Add(-rangePadding)
	rangeEnd := end.Add(24*time.Hour + rangePadding)
	return rangeStart, rangeEnd, nil
}

func (s *SessionService) mergeSummaries(ctx context.Context, tenantID string, sessions []Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}

	summaries := make(map[string]persistence.SessionSummary, len(ids))
	for start := 0; start < len(ids); start += summaryChunkSize {
		end := min(start+summaryChunkSize, len(ids))
		chunk, err := s.summaries.GetSummaries(ctx, tenantID, ids[start:end])
		if err != nil {
			return mapStoreError(err)
		}
		for id, summary := range chunk {
			summaries[id] = summary
		}
	}

	for i := range sessions {
		if summary, ok := summaries[sessions[i].ID]; ok {
			sessions[i].BookedCount = summary.BookedCount
			sessions[i].WaitlistCount = summary.WaitlistCount
		}
	}
	return nil
}

func filterByLocalDate(sessions []Session, startDate, endDate string) []Session {
	filtered := sessions[:0]
	for _, session := range sessions {
		if session.Date >= startDate && session.Date <= endDate {
			filtered = append(filtered, session)
		}
	}
	return filtered
}

func applySessionFilters(sessions []Session, query SessionQuery) []Session {
	filtered := sessions[:0]
	for _, session := range sessions {
		if query.Type != "" && session.Type != query.Type {
			continue
		}
		if query.HostID != "" && !session.HasHost(query.HostID) {
			continue
		}
		if query.LocationID != "" && (session.LocationID == nil || *session.LocationID != query.LocationID) {
			continue
		}
		if query.StartTime != "" || query.EndTime != "" {
			zone, err := timeutil.LoadZone(session.Timezone)
			if err != nil {
				continue
			}
			clock := timeutil.FormatLocalTime(session.Start, zone, timeutil.LocalTimeLayout)
			if query.StartTime != "" && clock < query.StartTime {
				continue
			}
			if query.EndTime != "" && clock > query.EndTime {
				continue
			}
		}
		filtered = append(filtered, session)
	}
	return filtered
}

func sortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Start.Equal(sessions[j].Start) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Start.Before(sessions[j].Start)
	})
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrAtCapacity):
		return ErrAtCapacity
	case errors.Is(err, persistence.ErrConstraintViolation),
		errors.Is(err, persistence.ErrCounterUnderflow):
		return fmt.Errorf("%w: %v", ErrStoreConflict, err)
	}
	return err
}
