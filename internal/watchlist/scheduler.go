// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchlist

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/watchlist/internal/log"
)

// Clock abstracts time for the scheduler and service.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts time.Timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock implements Clock with the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// Refresher is the work the scheduler repeats.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*Snapshot, error)
}

// Scheduler re-ranks the watch list on an interval and on demand.
type Scheduler struct {
	refresher Refresher
	logger    zerolog.Logger

	BaseInterval time.Duration
	MaxInterval  time.Duration
	Jitter       time.Duration
	StartupDelay time.Duration

	clock   Clock
	limiter *rate.Limiter
	kick    chan string
	done    chan struct{}

	mu              sync.Mutex
	currentInterval time.Duration
}

// NewScheduler creates a scheduler that refreshes every interval.
func NewScheduler(r Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher:    r,
		logger:       log.WithComponent("watchlist.scheduler"),
		BaseInterval: interval,
		MaxInterval:  6 * interval,
		Jitter:       10 * time.Second,
		StartupDelay: 0,
		clock:        RealClock{},
		limiter:      rate.NewLimiter(rate.Every(2*time.Second), 1),
		kick:         make(chan string, 1),
		done:         make(chan struct{}),
	}
}

// WithClock replaces the scheduler clock.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// WithLimiter replaces the limiter that throttles triggered refreshes.
func (s *Scheduler) WithLimiter(l *rate.Limiter) *Scheduler {
	s.limiter = l
	return s
}

// Start runs the loop in a background goroutine until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Trigger requests a refresh soon. Requests made while one is already
// pending are folded into it.
func (s *Scheduler) Trigger(reason string) {
	select {
	case s.kick <- reason:
	default:
		s.logger.Debug().Str(log.FieldTrigger, reason).Msg("refresh already pending")
	}
}

// SetInterval changes the base interval, e.g. after a config reload.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseInterval = d
	s.MaxInterval = 6 * d
	s.currentInterval = d
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	s.logger.Info().Dur("interval", s.interval()).Msg("watch list scheduler started")

	timer := s.clock.NewTimer(s.nextDuration(true))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("watch list scheduler stopping")
			return
		case <-timer.C():
			s.run(ctx, "schedule")
		case reason := <-s.kick:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			s.run(ctx, reason)
		}
		timer.Reset(s.nextDuration(false))
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if _, err := s.refresher.Refresh(ctx, trigger); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.increaseBackoff()
		return
	}
	s.resetBackoff()
}

func (s *Scheduler) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentInterval == 0 {
		return s.BaseInterval
	}
	return s.currentInterval
}

func (s *Scheduler) nextDuration(isFirst bool) time.Duration {
	if isFirst {
		return s.StartupDelay
	}
	return s.interval() + s.jitterDuration()
}

// jitterDuration is uniform in [-Jitter, +Jitter].
func (s *Scheduler) jitterDuration() time.Duration {
	if s.Jitter <= 0 {
		return 0
	}
	ms := int64(s.Jitter / time.Millisecond)
	return time.Duration(rand.Int64N(ms*2+1)-ms) * time.Millisecond
}

func (s *Scheduler) increaseBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentInterval == 0 {
		s.currentInterval = s.BaseInterval
	}
	s.currentInterval *= 2
	if s.currentInterval > s.MaxInterval {
		s.currentInterval = s.MaxInterval
	}
	s.logger.Info().Dur("next_interval", s.currentInterval).Msg("increased scheduler backoff")
}

func (s *Scheduler) resetBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentInterval != 0 && s.currentInterval != s.BaseInterval {
		s.logger.Info().Dur("next_interval", s.BaseInterval).Msg("reset scheduler backoff")
	}
	s.currentInterval = s.BaseInterval
}
