package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/config"
	"github.com/example/studio-scheduler/internal/events"
	httptransport "github.com/example/studio-scheduler/internal/http"
	"github.com/example/studio-scheduler/internal/jobs"
	"github.com/example/studio-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	sweeper := jobs.NewNoShowSweeper(store.Bookings, store.Attendance, time.Now, logger)
	sweepRunner, err := sweeper.Schedule(cfg.NoShowSweepSpec)
	if err != nil {
		logger.Error("failed to schedule no-show sweep", "error", err)
		os.Exit(1)
	}
	defer sweepRunner.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           buildHandler(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduling API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildHandler wires the application services behind the HTTP router. The
// event worker is registered on an in-process bus so booking request events
// share the booking path with the API.
func buildHandler(cfg config.Config, store *sqlite.Store, logger *slog.Logger) http.Handler {
	idGenerator := uuid.NewString
	now := time.Now

	programService := application.NewProgramService(store.Programs, idGenerator, now, logger)
	locationService := application.NewLocationService(store.Locations, cfg.DefaultCheckInRadius, idGenerator, now, logger)
	scheduleService := application.NewScheduleService(store.Schedules, idGenerator, now, logger)
	exceptionService := application.NewExceptionService(store.Exceptions, store.Schedules, now, logger)
	sessionService := application.NewSessionService(store.Schedules, store.Exceptions, store.Summaries, cfg.MaxQueryDays, logger)
	bookingService := application.NewBookingService(store.Bookings, sessionService, idGenerator, now, logger)
	attendanceService := application.NewAttendanceService(store.Bookings, store.Attendance, store.Locations, sessionService, application.AttendanceConfig{
		WindowBefore:  cfg.CheckInWindowBefore,
		WindowAfter:   cfg.CheckInWindowAfter,
		DefaultRadius: cfg.DefaultCheckInRadius,
	}, now, logger)

	bus := events.NewBus(logger)
	worker := events.NewWorker(bookingService, sessionService, bus, logger)
	worker.Register(bus)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Programs:   httptransport.NewProgramHandler(programService, logger),
		Locations:  httptransport.NewLocationHandler(locationService, logger),
		Schedules:  httptransport.NewScheduleHandler(scheduleService, logger),
		Exceptions: httptransport.NewExceptionHandler(exceptionService, logger),
		Sessions:   httptransport.NewSessionHandler(sessionService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, logger),
		Attendance: httptransport.NewAttendanceHandler(attendanceService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(),
			httptransport.ResolveIdentity(logger),
		},
	})
}
