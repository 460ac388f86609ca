// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package watchlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockClock struct {
	mu    sync.Mutex
	now   time.Time
	timer *mockTimer
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) NewTimer(time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer == nil {
		m.timer = &mockTimer{ch: make(chan time.Time, 1)}
	}
	return m.timer
}

func (m *mockClock) getTimer() *mockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer
}

type mockTimer struct {
	ch     chan time.Time
	mu     sync.Mutex
	resets []time.Duration
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }
func (t *mockTimer) Stop() bool          { return true }
func (t *mockTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets = append(t.resets, d)
	return true
}

func (t *mockTimer) fire() {
	select {
	case t.ch <- time.Now():
	default:
	}
}

type fakeRefresher struct {
	mu       sync.Mutex
	triggers []string
	err      error
	calls    chan string
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{calls: make(chan string, 16)}
}

func (f *fakeRefresher) Refresh(_ context.Context, trigger string) (*Snapshot, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	err := f.err
	f.mu.Unlock()
	f.calls <- trigger
	if err != nil {
		return nil, err
	}
	return &Snapshot{Trigger: trigger}, nil
}

func waitCall(t *testing.T, f *fakeRefresher) string {
	t.Helper()
	select {
	case trigger := <-f.calls:
		return trigger
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for refresh")
		return ""
	}
}

func waitTimer(t *testing.T, c *mockClock) *mockTimer {
	t.Helper()
	require.Eventually(t, func() bool { return c.getTimer() != nil }, 2*time.Second, 5*time.Millisecond)
	return c.getTimer()
}

func startScheduler(t *testing.T, r Refresher) (*Scheduler, *mockClock) {
	t.Helper()
	clock := &mockClock{now: testNow}
	s := NewScheduler(r, 10*time.Minute).
		WithClock(clock).
		WithLimiter(rate.NewLimiter(rate.Inf, 1))
	s.Jitter = 0

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s, clock
}

func TestScheduler_TimerTriggersRefresh(t *testing.T) {
	r := newFakeRefresher()
	_, clock := startScheduler(t, r)

	timer := waitTimer(t, clock)
	timer.fire()
	assert.Equal(t, "schedule", waitCall(t, r))

	timer.fire()
	assert.Equal(t, "schedule", waitCall(t, r))
}

func TestScheduler_TriggerRunsOnDemand(t *testing.T) {
	r := newFakeRefresher()
	s, clock := startScheduler(t, r)
	waitTimer(t, clock)

	s.Trigger("recording_deleted")
	assert.Equal(t, "recording_deleted", waitCall(t, r))
}

func TestScheduler_BackoffOnError(t *testing.T) {
	r := newFakeRefresher()
	r.err = errors.New("database locked")
	s, clock := startScheduler(t, r)

	timer := waitTimer(t, clock)
	timer.fire()
	waitCall(t, r)
	require.Eventually(t, func() bool { return s.interval() == 20*time.Minute }, 2*time.Second, 5*time.Millisecond)

	timer.fire()
	waitCall(t, r)
	require.Eventually(t, func() bool { return s.interval() == 40*time.Minute }, 2*time.Second, 5*time.Millisecond)

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	timer.fire()
	waitCall(t, r)
	require.Eventually(t, func() bool { return s.interval() == 10*time.Minute }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_BackoffCapped(t *testing.T) {
	s := NewScheduler(newFakeRefresher(), time.Minute)
	for range 10 {
		s.increaseBackoff()
	}
	assert.Equal(t, 6*time.Minute, s.interval())

	s.resetBackoff()
	assert.Equal(t, time.Minute, s.interval())
}

func TestScheduler_SetInterval(t *testing.T) {
	s := NewScheduler(newFakeRefresher(), time.Minute)
	s.increaseBackoff()

	s.SetInterval(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, s.interval())

	s.SetInterval(0)
	assert.Equal(t, 5*time.Minute, s.interval())
}

func TestScheduler_JitterBounds(t *testing.T) {
	s := NewScheduler(newFakeRefresher(), time.Minute)
	s.Jitter = 5 * time.Second
	for range 100 {
		d := s.jitterDuration()
		assert.GreaterOrEqual(t, d, -5*time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}

	s.Jitter = 0
	assert.Zero(t, s.jitterDuration())
	assert.Equal(t, time.Minute, s.nextDuration(false))
	assert.Zero(t, s.nextDuration(true))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	s := NewScheduler(newFakeRefresher(), time.Minute).WithClock(&mockClock{now: testNow})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
