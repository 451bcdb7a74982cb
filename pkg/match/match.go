// Package match is the real-time environment a routine runs in: active
// until the period runs out or the run is stopped.
package match

import (
	"context"
	"sync"
	"time"
)

type Match struct {
	ctx context.Context

	lock     sync.Mutex
	start    time.Time
	deadline time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

// New starts a match period of length period.  A zero period never runs
// out.
func New(ctx context.Context, period time.Duration) *Match {
	m := &Match{ctx: ctx, start: time.Now(), stopped: make(chan struct{})}
	if period > 0 {
		m.deadline = m.start.Add(period)
	}
	return m
}

func (m *Match) Active() bool {
	if m.ctx.Err() != nil {
		return false
	}
	select {
	case <-m.stopped:
		return false
	default:
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.deadline.IsZero() || time.Now().Before(m.deadline)
}

// Sleep waits for d, returning early if the match ends.
func (m *Match) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	var deadline <-chan time.Time
	if remaining := m.Remaining(); remaining > 0 && remaining < d {
		dt := time.NewTimer(remaining)
		defer dt.Stop()
		deadline = dt.C
	}
	select {
	case <-t.C:
	case <-deadline:
	case <-m.ctx.Done():
	case <-m.stopped:
	}
}

func (m *Match) Now() time.Time {
	return time.Now()
}

// Stop ends the match early.
func (m *Match) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

func (m *Match) Elapsed() time.Duration {
	return time.Since(m.start)
}

// Remaining returns the time left in the period, or 0 for an unlimited
// period.
func (m *Match) Remaining() time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.deadline.IsZero() {
		return 0
	}
	if r := time.Until(m.deadline); r > 0 {
		return r
	}
	return 0
}
