// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads daemon configuration from defaults, a YAML file and
// the environment, in increasing order of precedence.
package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/watchlist/internal/watchlist"
)

const (
	DefaultDataDir         = "/var/lib/watchlist"
	DefaultListenAddr      = ":8088"
	DefaultLogLevel        = "info"
	DefaultMaxAgeDays      = 60
	DefaultBlackoutDays    = 2
	DefaultRefreshInterval = 10 * time.Minute
	DefaultOTelExporter    = "grpc"

	databaseFile = "watchlist.db"
)

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	DataDir    string
	ListenAddr string
	LogLevel   string

	WatchList WatchListConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig

	// Version is stamped from the binary, not read from config.
	Version string
}

// WatchListConfig holds the ranking parameters.
type WatchListConfig struct {
	MaxAgeDays      int
	BlackoutDays    int
	AutoExpireOnly  bool
	RefreshInterval time.Duration
}

// RedisConfig enables the shared snapshot store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled  bool
	Exporter string
	Endpoint string
}

// DatabasePath is the SQLite file inside DataDir.
func (c AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, databaseFile)
}

// Ranking returns the ranker parameters. Now is left zero for the caller.
func (c AppConfig) Ranking() watchlist.Config {
	return watchlist.Config{
		MaxAgeDays:     c.WatchList.MaxAgeDays,
		BlackoutDays:   c.WatchList.BlackoutDays,
		AutoExpireOnly: c.WatchList.AutoExpireOnly,
	}
}

// FileConfig mirrors the YAML file. Pointers distinguish absent keys from zero values.
type FileConfig struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`

	WatchList *FileWatchList `yaml:"watchList,omitempty"`
	Redis     *FileRedis     `yaml:"redis,omitempty"`
	Telemetry *FileTelemetry `yaml:"telemetry,omitempty"`
}

type FileWatchList struct {
	MaxAgeDays      *int   `yaml:"maxAgeDays,omitempty"`
	BlackoutDays    *int   `yaml:"blackoutDays,omitempty"`
	AutoExpireOnly  *bool  `yaml:"autoExpireOnly,omitempty"`
	RefreshInterval string `yaml:"refreshInterval,omitempty"`
}

type FileRedis struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       *int   `yaml:"db,omitempty"`
}

type FileTelemetry struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Exporter string `yaml:"exporter,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}
