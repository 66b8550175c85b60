package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/studio-scheduler/internal/persistence"
)

// Map-backed store fakes shared by the service tests. They reproduce the
// sentinel behavior of the sqlite repositories, including the conditional
// reserve and release semantics.

type stubScheduleStore struct {
	schedules map[string]persistence.Schedule
}

func newStubScheduleStore() *stubScheduleStore {
	return &stubScheduleStore{schedules: make(map[string]persistence.Schedule)}
}

func scheduleKey(tenantID, id string) string {
	return tenantID + "/" + id
}

func (s *stubScheduleStore) CreateSchedule(_ context.Context, schedule persistence.Schedule) error {
	key := scheduleKey(schedule.TenantID, schedule.ID)
	if _, ok := s.schedules[key]; ok {
		return persistence.ErrDuplicate
	}
	s.schedules[key] = schedule
	return nil
}

func (s *stubScheduleStore) GetSchedule(_ context.Context, tenantID, id string) (persistence.Schedule, error) {
	schedule, ok := s.schedules[scheduleKey(tenantID, id)]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *stubScheduleStore) UpdateSchedule(_ context.Context, schedule persistence.Schedule) error {
	key := scheduleKey(schedule.TenantID, schedule.ID)
	if _, ok := s.schedules[key]; !ok {
		return persistence.ErrNotFound
	}
	s.schedules[key] = schedule
	return nil
}

func (s *stubScheduleStore) DeleteSchedule(_ context.Context, tenantID, id string) error {
	key := scheduleKey(tenantID, id)
	if _, ok := s.schedules[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.schedules, key)
	return nil
}

func (s *stubScheduleStore) ListSchedules(_ context.Context, tenantID string, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	var out []persistence.Schedule
	for _, schedule := range s.schedules {
		if schedule.TenantID != tenantID {
			continue
		}
		if len(filter.ProgramIDs) > 0 {
			if schedule.ProgramID == nil || !containsString(filter.ProgramIDs, *schedule.ProgramID) {
				continue
			}
		}
		if filter.HostID != "" && schedule.PrimaryHostID() != filter.HostID {
			continue
		}
		out = append(out, schedule)
	}
	return out, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

type stubExceptionStore struct {
	exceptions map[string]persistence.ScheduleException
}

func newStubExceptionStore() *stubExceptionStore {
	return &stubExceptionStore{exceptions: make(map[string]persistence.ScheduleException)}
}

func exceptionKey(tenantID, scheduleID, date string) string {
	return tenantID + "/" + scheduleID + "/" + date
}

func (s *stubExceptionStore) CreateException(_ context.Context, exception persistence.ScheduleException) error {
	key := exceptionKey(exception.TenantID, exception.ScheduleID, exception.OccurrenceDate)
	if _, ok := s.exceptions[key]; ok {
		return persistence.ErrDuplicate
	}
	s.exceptions[key] = exception
	return nil
}

func (s *stubExceptionStore) GetException(_ context.Context, tenantID, scheduleID, date string) (persistence.ScheduleException, error) {
	exception, ok := s.exceptions[exceptionKey(tenantID, scheduleID, date)]
	if !ok {
		return persistence.ScheduleException{}, persistence.ErrNotFound
	}
	return exception, nil
}

func (s *stubExceptionStore) UpdateException(_ context.Context, exception persistence.ScheduleException) error {
	key := exceptionKey(exception.TenantID, exception.ScheduleID, exception.OccurrenceDate)
	if _, ok := s.exceptions[key]; !ok {
		return persistence.ErrNotFound
	}
	s.exceptions[key] = exception
	return nil
}

func (s *stubExceptionStore) DeleteException(_ context.Context, tenantID, scheduleID, date string) error {
	key := exceptionKey(tenantID, scheduleID, date)
	if _, ok := s.exceptions[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.exceptions, key)
	return nil
}

func (s *stubExceptionStore) ListExceptions(_ context.Context, tenantID, scheduleID, startDate, endDate string) ([]persistence.ScheduleException, error) {
	var out []persistence.ScheduleException
	for _, exception := range s.exceptions {
		if exception.TenantID != tenantID || exception.ScheduleID != scheduleID {
			continue
		}
		if startDate != "" && exception.OccurrenceDate < startDate {
			continue
		}
		if endDate != "" && exception.OccurrenceDate > endDate {
			continue
		}
		out = append(out, exception)
	}
	return out, nil
}

type stubSummaryStore struct {
	summaries map[string]persistence.SessionSummary
}

func newStubSummaryStore() *stubSummaryStore {
	return &stubSummaryStore{summaries: make(map[string]persistence.SessionSummary)}
}

func summaryKey(tenantID, sessionID string) string {
	return tenantID + "/" + sessionID
}

func (s *stubSummaryStore) GetSummaries(_ context.Context, tenantID string, sessionIDs []string) (map[string]persistence.SessionSummary, error) {
	out := make(map[string]persistence.SessionSummary)
	for _, id := range sessionIDs {
		if summary, ok := s.summaries[summaryKey(tenantID, id)]; ok {
			out[id] = summary
		}
	}
	return out, nil
}

func (s *stubSummaryStore) GetSummary(_ context.Context, tenantID, sessionID string) (persistence.SessionSummary, error) {
	summary, ok := s.summaries[summaryKey(tenantID, sessionID)]
	if !ok {
		return persistence.SessionSummary{}, persistence.ErrNotFound
	}
	return summary, nil
}

type stubBookingStore struct {
	bookings  map[string]persistence.Booking
	summaries *stubSummaryStore
}

func newStubBookingStore() *stubBookingStore {
	return &stubBookingStore{
		bookings:  make(map[string]persistence.Booking),
		summaries: newStubSummaryStore(),
	}
}

func (s *stubBookingStore) CreateBookingReserving(_ context.Context, booking persistence.Booking, capacity *int, date string) error {
	key := summaryKey(booking.TenantID, booking.ID)
	if _, ok := s.bookings[key]; ok {
		return persistence.ErrDuplicate
	}

	sKey := summaryKey(booking.TenantID, booking.SessionID)
	summary, ok := s.summaries.summaries[sKey]
	if !ok {
		summary = persistence.SessionSummary{
			TenantID:  booking.TenantID,
			SessionID: booking.SessionID,
			Date:      date,
		}
	}
	if capacity != nil && summary.BookedCount >= *capacity {
		return persistence.ErrAtCapacity
	}
	summary.BookedCount++
	summary.Capacity = capacity
	s.summaries.summaries[sKey] = summary

	s.bookings[key] = booking
	return nil
}

func (s *stubBookingStore) CancelBookingReleasing(_ context.Context, tenantID, sessionID, bookingID string, cancelledAt time.Time) error {
	key := summaryKey(tenantID, bookingID)
	booking, ok := s.bookings[key]
	if !ok || booking.Status == "CANCELLED" {
		return persistence.ErrNotFound
	}
	booking.Status = "CANCELLED"
	booking.CancelledAt = &cancelledAt
	s.bookings[key] = booking

	sKey := summaryKey(tenantID, sessionID)
	summary := s.summaries.summaries[sKey]
	if summary.BookedCount <= 0 {
		return persistence.ErrCounterUnderflow
	}
	summary.BookedCount--
	s.summaries.summaries[sKey] = summary
	return nil
}

func (s *stubBookingStore) GetBooking(_ context.Context, tenantID, bookingID string) (persistence.Booking, error) {
	booking, ok := s.bookings[summaryKey(tenantID, bookingID)]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (s *stubBookingStore) ListBookingsBySession(_ context.Context, tenantID, sessionID string) ([]persistence.Booking, error) {
	var out []persistence.Booking
	for _, booking := range s.bookings {
		if booking.TenantID == tenantID && booking.SessionID == sessionID {
			out = append(out, booking)
		}
	}
	return out, nil
}

func (s *stubBookingStore) ListBookingsBySubject(_ context.Context, tenantID, subjectID string, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var out []persistence.Booking
	for _, booking := range s.bookings {
		if booking.TenantID != tenantID || booking.SubjectID != subjectID {
			continue
		}
		if filter.Status != "" && booking.Status != filter.Status {
			continue
		}
		out = append(out, booking)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type stubAttendanceStore struct {
	records map[string]persistence.AttendanceRecord
}

func newStubAttendanceStore() *stubAttendanceStore {
	return &stubAttendanceStore{records: make(map[string]persistence.AttendanceRecord)}
}

func attendanceKey(tenantID, sessionID, bookingID string) string {
	return tenantID + "/" + sessionID + "/" + bookingID
}

func (s *stubAttendanceStore) CreateAttendance(_ context.Context, record persistence.AttendanceRecord) error {
	key := attendanceKey(record.TenantID, record.SessionID, record.BookingID)
	if _, ok := s.records[key]; ok {
		return persistence.ErrDuplicate
	}
	s.records[key] = record
	return nil
}

func (s *stubAttendanceStore) UpsertAttendance(_ context.Context, record persistence.AttendanceRecord) error {
	s.records[attendanceKey(record.TenantID, record.SessionID, record.BookingID)] = record
	return nil
}

func (s *stubAttendanceStore) GetAttendance(_ context.Context, tenantID, sessionID, bookingID string) (persistence.AttendanceRecord, error) {
	record, ok := s.records[attendanceKey(tenantID, sessionID, bookingID)]
	if !ok {
		return persistence.AttendanceRecord{}, persistence.ErrNotFound
	}
	return record, nil
}

func (s *stubAttendanceStore) ListAttendanceBySession(_ context.Context, tenantID, sessionID string) ([]persistence.AttendanceRecord, error) {
	var out []persistence.AttendanceRecord
	for _, record := range s.records {
		if record.TenantID == tenantID && record.SessionID == sessionID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *stubAttendanceStore) ListAttendanceBySubject(_ context.Context, tenantID, subjectID string) ([]persistence.AttendanceRecord, error) {
	var out []persistence.AttendanceRecord
	for _, record := range s.records {
		if record.TenantID == tenantID && record.SubjectID == subjectID {
			out = append(out, record)
		}
	}
	return out, nil
}

type stubLocationStore struct {
	locations map[string]persistence.Location
}

func newStubLocationStore() *stubLocationStore {
	return &stubLocationStore{locations: make(map[string]persistence.Location)}
}

func (s *stubLocationStore) CreateLocation(_ context.Context, location persistence.Location) error {
	key := summaryKey(location.TenantID, location.ID)
	if _, ok := s.locations[key]; ok {
		return persistence.ErrDuplicate
	}
	s.locations[key] = location
	return nil
}

func (s *stubLocationStore) GetLocation(_ context.Context, tenantID, id string) (persistence.Location, error) {
	location, ok := s.locations[summaryKey(tenantID, id)]
	if !ok {
		return persistence.Location{}, persistence.ErrNotFound
	}
	return location, nil
}

func (s *stubLocationStore) UpdateLocation(_ context.Context, location persistence.Location) error {
	key := summaryKey(location.TenantID, location.ID)
	if _, ok := s.locations[key]; !ok {
		return persistence.ErrNotFound
	}
	s.locations[key] = location
	return nil
}

func (s *stubLocationStore) DeleteLocation(_ context.Context, tenantID, id string) error {
	key := summaryKey(tenantID, id)
	if _, ok := s.locations[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.locations, key)
	return nil
}

func (s *stubLocationStore) ListLocations(_ context.Context, tenantID string) ([]persistence.Location, error) {
	var out []persistence.Location
	for _, location := range s.locations {
		if location.TenantID == tenantID {
			out = append(out, location)
		}
	}
	return out, nil
}

// sequentialIDs returns an id generator yielding prefix1, prefix2, ...
func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s%d", prefix, counter)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
