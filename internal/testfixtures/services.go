package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/studio-scheduler/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) nowFunc(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// ProgramServiceDeps captures dependencies for constructing a program service.
type ProgramServiceDeps struct {
	Programs    application.ProgramStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewProgramService builds a program service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewProgramService(deps ProgramServiceDeps) *application.ProgramService {
	return application.NewProgramService(
		deps.Programs,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// LocationServiceDeps captures dependencies for constructing a location service.
type LocationServiceDeps struct {
	Locations     application.LocationStore
	DefaultRadius float64
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewLocationService builds a location service using the supplied dependencies.
func (f *ServiceFactory) NewLocationService(deps LocationServiceDeps) *application.LocationService {
	return application.NewLocationService(
		deps.Locations,
		deps.DefaultRadius,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Schedules   application.ScheduleStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewScheduleService builds a schedule service using the supplied dependencies.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	return application.NewScheduleService(
		deps.Schedules,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// ExceptionServiceDeps captures dependencies for constructing an exception service.
type ExceptionServiceDeps struct {
	Exceptions application.ExceptionStore
	Schedules  application.ScheduleStore
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewExceptionService builds an exception service using the supplied dependencies.
func (f *ServiceFactory) NewExceptionService(deps ExceptionServiceDeps) *application.ExceptionService {
	return application.NewExceptionService(
		deps.Exceptions,
		deps.Schedules,
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// SessionServiceDeps captures dependencies for constructing a session service.
type SessionServiceDeps struct {
	Schedules    application.ScheduleStore
	Exceptions   application.ExceptionStore
	Summaries    application.SummaryStore
	MaxQueryDays int
	Logger       *slog.Logger
}

// NewSessionService builds a session service using the supplied dependencies.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	return application.NewSessionService(
		deps.Schedules,
		deps.Exceptions,
		deps.Summaries,
		deps.MaxQueryDays,
		deps.Logger,
	)
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings    application.BookingStore
	Sessions    application.SessionResolver
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	return application.NewBookingService(
		deps.Bookings,
		deps.Sessions,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// AttendanceServiceDeps captures dependencies for constructing an attendance service.
type AttendanceServiceDeps struct {
	Bookings   application.BookingStore
	Attendance application.AttendanceStore
	Locations  application.LocationStore
	Sessions   application.SessionResolver
	Config     application.AttendanceConfig
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewAttendanceService builds an attendance service using the supplied dependencies.
func (f *ServiceFactory) NewAttendanceService(deps AttendanceServiceDeps) *application.AttendanceService {
	return application.NewAttendanceService(
		deps.Bookings,
		deps.Attendance,
		deps.Locations,
		deps.Sessions,
		deps.Config,
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}
