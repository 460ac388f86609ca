// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/watchlist/internal/log"
	"github.com/ManuGH/watchlist/internal/metrics"
	"github.com/ManuGH/watchlist/internal/telemetry"
)

// Source supplies the inputs of a ranking pass. Candidates must be ordered
// most recent recording first.
type Source interface {
	ListCandidates(ctx context.Context) ([]Candidate, error)
	ListRuleMeta(ctx context.Context) (map[int]RuleMeta, error)
}

// Publisher makes a finished snapshot visible to readers.
type Publisher interface {
	Publish(ctx context.Context, snap *Snapshot) error
}

// Snapshot is one published ranking. It is never modified after Publish.
type Snapshot struct {
	RunID       string         `json:"run_id"`
	Trigger     string         `json:"trigger,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []Entry        `json:"entries"`
	Excluded    map[string]int `json:"excluded"`
}

// DefaultRefreshTimeout bounds one shared ranking pass.
const DefaultRefreshTimeout = 2 * time.Minute

// SettingsFunc returns the current ranking parameters. Now is ignored and
// stamped by the service.
type SettingsFunc func() Config

// Service gathers candidates, ranks them and publishes the result.
type Service struct {
	source    Source
	publisher Publisher
	settings  SettingsFunc
	clock     Clock
	tracer    trace.Tracer
	logger    zerolog.Logger
	timeout   time.Duration

	group singleflight.Group
}

// NewService creates a refresh service. A nil settings func uses DefaultConfig.
func NewService(source Source, publisher Publisher, settings SettingsFunc) *Service {
	if settings == nil {
		settings = func() Config { return DefaultConfig(time.Time{}) }
	}
	return &Service{
		source:    source,
		publisher: publisher,
		settings:  settings,
		clock:     RealClock{},
		tracer:    telemetry.Tracer("watchlist"),
		logger:    log.WithComponent("watchlist"),
		timeout:   DefaultRefreshTimeout,
	}
}

// WithClock replaces the clock used as the ranking reference time.
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// WithTimeout replaces the bound on one shared ranking pass.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Refresh runs one ranking pass and publishes it. Concurrent calls share a
// single pass. On error the previously published snapshot stays in place.
//
// The shared pass is detached from the cancellation of whichever caller
// started it and is bounded by the service timeout instead. A caller whose
// ctx ends stops waiting and gets ctx.Err(); the pass keeps running for the
// others.
func (s *Service) Refresh(ctx context.Context, trigger string) (*Snapshot, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.refresh(runCtx, trigger)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.logger.Debug().Str(log.FieldTrigger, trigger).Msg("refresh coalesced")
		}
		return r.Val.(*Snapshot), nil
	}
}

func (s *Service) refresh(ctx context.Context, trigger string) (*Snapshot, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithContext(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, "watchlist.refresh")
	defer span.End()

	fail := func(result string, err error) (*Snapshot, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes(result)...)
		metrics.RecordRefresh(result, time.Since(start))
		logger.Error().Err(err).Str(log.FieldTrigger, trigger).Msg("watch list refresh failed")
		return nil, err
	}

	candidates, err := s.source.ListCandidates(ctx)
	if err != nil {
		return fail("source_error", fmt.Errorf("list candidates: %w", err))
	}
	rules, err := s.source.ListRuleMeta(ctx)
	if err != nil {
		return fail("source_error", fmt.Errorf("list rule metadata: %w", err))
	}

	cfg := s.settings()
	cfg.Now = s.clock.Now()
	res := Rank(candidates, rules, cfg)

	for _, ex := range res.Excluded {
		logger.Debug().
			Str(log.FieldTitle, ex.Candidate.Title).
			Int(log.FieldChanID, ex.Candidate.Key.ChanID).
			Time(log.FieldStartTime, ex.Candidate.Key.StartTime).
			Int(log.FieldRuleID, ex.Candidate.RuleID).
			Stringer(log.FieldReason, ex.Reason).
			Int(log.FieldScore, ex.Reason.Score()).
			Msg("excluded from watch list")
	}

	counts := res.ExcludedCounts()
	excluded := make(map[string]int, len(counts))
	for _, r := range Reasons {
		excluded[r.String()] = counts[r]
	}

	snap := &Snapshot{
		RunID:       runID,
		Trigger:     trigger,
		GeneratedAt: cfg.Now,
		Entries:     res.Entries,
		Excluded:    excluded,
	}
	if err := s.publisher.Publish(ctx, snap); err != nil {
		return fail("publish_error", fmt.Errorf("publish snapshot: %w", err))
	}

	span.SetAttributes(telemetry.RefreshAttributes(runID, trigger, len(candidates), len(res.Entries), len(res.Excluded))...)
	metrics.RecordRefresh("success", time.Since(start))
	metrics.SetWatchListEntries(len(res.Entries))
	for reason, n := range excluded {
		metrics.AddExcluded(reason, n)
	}

	logger.Info().
		Str(log.FieldTrigger, trigger).
		Int(log.FieldCandidates, len(candidates)).
		Int(log.FieldEntries, len(res.Entries)).
		Int(log.FieldExcluded, len(res.Excluded)).
		Dur("duration", time.Since(start)).
		Msg("watch list refreshed")

	return snap, nil
}
