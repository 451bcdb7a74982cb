package hardware

import (
	"sync"
	"time"
)

// SimClock is a manual clock for running control code against a Sim
// without waiting: Sleep advances the clock and the simulation together.
type SimClock struct {
	sim *Sim

	lock   sync.Mutex
	start  time.Time
	now    time.Time
	stopAt time.Duration
}

func NewSimClock(sim *Sim) *SimClock {
	start := time.Date(2021, 3, 6, 10, 0, 0, 0, time.UTC)
	return &SimClock{sim: sim, start: start, now: start}
}

// StopAt makes Active return false once d has elapsed.  0 never stops.
func (c *SimClock) StopAt(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.stopAt = d
}

func (c *SimClock) Active() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stopAt == 0 || c.now.Sub(c.start) < c.stopAt
}

func (c *SimClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
	c.sim.Advance(d)
}

func (c *SimClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *SimClock) Elapsed() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now.Sub(c.start)
}
