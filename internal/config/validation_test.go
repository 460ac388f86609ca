// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"zero max age allowed", func(c *AppConfig) { c.WatchList.MaxAgeDays = 0 }, ""},
		{"negative max age", func(c *AppConfig) { c.WatchList.MaxAgeDays = -1 }, "maxAgeDays"},
		{"negative blackout", func(c *AppConfig) { c.WatchList.BlackoutDays = -2 }, "blackoutDays"},
		{"zero interval", func(c *AppConfig) { c.WatchList.RefreshInterval = 0 }, "refreshInterval"},
		{"unknown log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"empty listen", func(c *AppConfig) { c.ListenAddr = "" }, "listenAddr"},
		{"negative redis db", func(c *AppConfig) { c.Redis.DB = -1 }, "redis.db"},
		{"telemetry without endpoint", func(c *AppConfig) { c.Telemetry.Enabled = true }, "telemetry.endpoint"},
		{"telemetry bad exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "collector:4317"
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.WatchList.MaxAgeDays = -1
	cfg.WatchList.BlackoutDays = -1

	var verr *ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.Len(t, verr.Problems, 2)
}
