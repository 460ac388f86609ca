// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load builds and validates the effective configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    DefaultDataDir,
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		WatchList: WatchListConfig{
			MaxAgeDays:      DefaultMaxAgeDays,
			BlackoutDays:    DefaultBlackoutDays,
			RefreshInterval: DefaultRefreshInterval,
		},
		Telemetry: TelemetryConfig{
			Exporter: DefaultOTelExporter,
		},
	}
}

// loadFile parses YAML strictly: unknown keys and trailing documents are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFile(cfg *AppConfig, f *FileConfig) error {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}

	if wl := f.WatchList; wl != nil {
		if wl.MaxAgeDays != nil {
			cfg.WatchList.MaxAgeDays = *wl.MaxAgeDays
		}
		if wl.BlackoutDays != nil {
			cfg.WatchList.BlackoutDays = *wl.BlackoutDays
		}
		if wl.AutoExpireOnly != nil {
			cfg.WatchList.AutoExpireOnly = *wl.AutoExpireOnly
		}
		if wl.RefreshInterval != "" {
			d, err := time.ParseDuration(wl.RefreshInterval)
			if err != nil {
				return fmt.Errorf("watchList.refreshInterval: %w", err)
			}
			cfg.WatchList.RefreshInterval = d
		}
	}

	if r := f.Redis; r != nil {
		if r.Addr != "" {
			cfg.Redis.Addr = r.Addr
		}
		if r.Password != "" {
			cfg.Redis.Password = r.Password
		}
		if r.DB != nil {
			cfg.Redis.DB = *r.DB
		}
	}

	if t := f.Telemetry; t != nil {
		if t.Enabled != nil {
			cfg.Telemetry.Enabled = *t.Enabled
		}
		if t.Exporter != "" {
			cfg.Telemetry.Exporter = t.Exporter
		}
		if t.Endpoint != "" {
			cfg.Telemetry.Endpoint = t.Endpoint
		}
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.ListenAddr = ParseString(EnvListenAddr, cfg.ListenAddr)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)

	cfg.WatchList.MaxAgeDays = ParseInt(EnvMaxAgeDays, cfg.WatchList.MaxAgeDays)
	cfg.WatchList.BlackoutDays = ParseInt(EnvBlackoutDays, cfg.WatchList.BlackoutDays)
	cfg.WatchList.AutoExpireOnly = ParseBool(EnvAutoExpireOnly, cfg.WatchList.AutoExpireOnly)
	cfg.WatchList.RefreshInterval = ParseDuration(EnvRefreshInterval, cfg.WatchList.RefreshInterval)

	cfg.Redis.Addr = ParseString(EnvRedisAddr, cfg.Redis.Addr)
	cfg.Redis.Password = ParseString(EnvRedisPassword, cfg.Redis.Password)
	cfg.Redis.DB = ParseInt(EnvRedisDB, cfg.Redis.DB)

	cfg.Telemetry.Enabled = ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
}
