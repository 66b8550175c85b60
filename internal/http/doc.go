// Package http provides the HTTP handlers and middleware for the scheduling API.
//
// All routes live under /scheduling and identify resources through query
// parameters or body fields rather than path segments:
//   - GET/POST/PATCH/DELETE /scheduling/programs: program catalog, exchanging
//     the `programDTO` payload defined in program_handler.go.
//   - GET/POST/PATCH/DELETE /scheduling/locations: venue catalog with GPS
//     coordinates and check-in radius, exchanging `locationDTO`.
//   - GET/POST/PATCH/DELETE /scheduling/schedules: stored time patterns with
//     optional recurrence rules, exchanging `scheduleDTO`.
//   - GET/POST/PATCH/DELETE /scheduling/exceptions: per-date overrides keyed
//     by (scheduleId, occurrenceDate), exchanging `exceptionDTO`.
//   - GET /scheduling/sessions: virtual session listing, either by sessionId
//     or by a startDate/endDate window with optional filters.
//   - GET/POST/DELETE /scheduling/bookings: booking create, cancel
//     (DELETE ?bookingId=), and listing by session or by the acting subject.
//   - GET/POST/PATCH /scheduling/attendance: GPS or manual check-in (POST),
//     administrative status override (PATCH), and listings.
//
// The middleware chain resolves the acting tenant and subject (token claims,
// then headers, then query), answers CORS preflights, and attaches a
// request-scoped logger. Request/response DTOs live alongside their handlers
// so tests and documentation share the same ground truth.
package http
