// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks cfg and returns a *ValidationError on failure.
func Validate(cfg AppConfig) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.DataDir == "" {
		addf("dataDir must not be empty")
	}
	if cfg.ListenAddr == "" {
		addf("listenAddr must not be empty")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		addf("logLevel %q is not a known level", cfg.LogLevel)
	}

	if cfg.WatchList.MaxAgeDays < 0 {
		addf("watchList.maxAgeDays must be >= 0, got %d", cfg.WatchList.MaxAgeDays)
	}
	if cfg.WatchList.BlackoutDays < 0 {
		addf("watchList.blackoutDays must be >= 0, got %d", cfg.WatchList.BlackoutDays)
	}
	if cfg.WatchList.RefreshInterval <= 0 {
		addf("watchList.refreshInterval must be positive, got %s", cfg.WatchList.RefreshInterval)
	}

	if cfg.Redis.DB < 0 {
		addf("redis.db must be >= 0, got %d", cfg.Redis.DB)
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Endpoint == "" {
			addf("telemetry.endpoint is required when telemetry is enabled")
		}
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			addf("telemetry.exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
