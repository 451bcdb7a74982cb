package motion

import (
	"sync"
	"time"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/tracker"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

var clockStart = time.Date(2021, 3, 6, 10, 0, 0, 0, time.UTC)

// fakeEnv is a manual clock.  Sleep advances it, and the simulator with it,
// so control loops run deterministically and instantly.
type fakeEnv struct {
	lock    sync.Mutex
	now     time.Time
	stopAt  time.Duration
	sim     *hardware.Sim
	onSleep func(elapsed time.Duration)
}

func newFakeEnv(sim *hardware.Sim) *fakeEnv {
	return &fakeEnv{now: clockStart, sim: sim}
}

func (e *fakeEnv) Active() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.stopAt == 0 || e.now.Sub(clockStart) < e.stopAt
}

func (e *fakeEnv) Sleep(d time.Duration) {
	e.lock.Lock()
	e.now = e.now.Add(d)
	elapsed := e.now.Sub(clockStart)
	hook := e.onSleep
	e.lock.Unlock()
	if e.sim != nil {
		e.sim.Advance(d)
	}
	if hook != nil {
		hook(elapsed)
	}
}

func (e *fakeEnv) Now() time.Time {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.now
}

func (e *fakeEnv) Elapsed() time.Duration {
	return e.Now().Sub(clockStart)
}

// realEnv runs on the wall clock.
type realEnv struct{}

func (realEnv) Active() bool          { return true }
func (realEnv) Sleep(d time.Duration) { time.Sleep(d) }
func (realEnv) Now() time.Time        { return time.Now() }

// testConfig has equal trims so a straight drive stays straight in the
// simulator.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Drive.LeftTrim = 1
	cfg.Drive.RightTrim = 1
	return cfg
}

// instantDrive is a drivetrain whose encoders land exactly on the tracker
// target as soon as any power is applied.
type instantDrive struct {
	lock    sync.Mutex
	env     *fakeEnv
	tracker *tracker.Tracker
	pos     wheels.Set[int]
	writes  []hardware.PowerWrite
}

func (d *instantDrive) SetWheelPowers(p wheels.Set[float64]) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.writes = append(d.writes, hardware.PowerWrite{At: d.env.Elapsed(), Powers: p})
	if !p.IsZero() && d.tracker != nil {
		d.pos = d.tracker.Targets()
	}
	return nil
}

func (d *instantDrive) WheelPositions() (wheels.Set[int], error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pos, nil
}

func (d *instantDrive) Writes() []hardware.PowerWrite {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]hardware.PowerWrite(nil), d.writes...)
}

type fixedHeading float64

func (h fixedHeading) CurrentHeading() float64 { return float64(h) }

func lastWrite(writes []hardware.PowerWrite) hardware.PowerWrite {
	return writes[len(writes)-1]
}

func writeAt(writes []hardware.PowerWrite, at time.Duration) (hardware.PowerWrite, bool) {
	for _, w := range writes {
		if w.At == at {
			return w, true
		}
	}
	return hardware.PowerWrite{}, false
}
