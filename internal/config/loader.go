package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	CheckInWindowBefore  time.Duration
	CheckInWindowAfter   time.Duration
	DefaultCheckInRadius float64
	MaxQueryDays         int
	NoShowSweepSpec      string
}

// Load parses configuration values from the current process environment.
//
// Every field has a default; variables that are set but unparsable are
// collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:scheduler.db?_foreign_keys=on",
		CheckInWindowBefore:  15 * time.Minute,
		CheckInWindowAfter:   15 * time.Minute,
		DefaultCheckInRadius: 100,
		MaxQueryDays:         90,
		NoShowSweepSpec:      "30 3 * * *",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_CHECKIN_WINDOW_BEFORE")); value != "" {
		window, err := time.ParseDuration(value)
		if err != nil || window < 0 {
			invalid = append(invalid, "SCHEDULER_CHECKIN_WINDOW_BEFORE")
		} else {
			cfg.CheckInWindowBefore = window
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_CHECKIN_WINDOW_AFTER")); value != "" {
		window, err := time.ParseDuration(value)
		if err != nil || window < 0 {
			invalid = append(invalid, "SCHEDULER_CHECKIN_WINDOW_AFTER")
		} else {
			cfg.CheckInWindowAfter = window
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_DEFAULT_CHECKIN_RADIUS_M")); value != "" {
		radius, err := strconv.ParseFloat(value, 64)
		if err != nil || radius <= 0 {
			invalid = append(invalid, "SCHEDULER_DEFAULT_CHECKIN_RADIUS_M")
		} else {
			cfg.DefaultCheckInRadius = radius
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_MAX_QUERY_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "SCHEDULER_MAX_QUERY_DAYS")
		} else {
			cfg.MaxQueryDays = days
		}
	}

	if spec := strings.TrimSpace(os.Getenv("SCHEDULER_NOSHOW_SWEEP_SPEC")); spec != "" {
		cfg.NoShowSweepSpec = spec
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
