// Package teleop drives the robot from the gamepad.  The left stick's y axis
// drives forwards and backwards, the right stick's x axis turns, and the
// d-pad's y axis runs the launcher.  The d-pad's x axis picks a tunable
// (drive or turn scale) and L1/R1 step it down/up.
package teleop

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/joystick"
	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/tunable"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

// Mix is a POV mix: drive plus turn on the left, drive minus turn on the
// right, each clipped to [-1, 1].
func Mix(drive, turn float64) (left, right float64) {
	return clip(drive + turn), clip(drive - turn)
}

func clip(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < -1 {
		return -1
	}
	return p
}

// LauncherPower maps the d-pad's y axis to launcher power: down runs the
// launcher forwards, up runs it backwards.
func LauncherPower(dPadY int16) float64 {
	switch {
	case dPadY > 0:
		return 1
	case dPadY < 0:
		return -1
	}
	return 0
}

const tunableStep = 5

// Teleop is a motion.Task, so while it runs it is the only thing writing
// wheel power.
type Teleop struct {
	accessories hardware.Accessories
	log         zerolog.Logger

	tunables *tunable.Tunables
	drivePct *tunable.Tunable
	turnPct  *tunable.Tunable

	lock  sync.Mutex // Guards state
	state joystick.State
}

func New(accessories hardware.Accessories, log zerolog.Logger) *Teleop {
	log = log.With().Str("component", "teleop").Logger()
	t := &Teleop{
		accessories: accessories,
		log:         log,
		tunables:    tunable.New(log),
	}
	t.drivePct = t.tunables.Create("Drive %", 100, 0, 100)
	t.turnPct = t.tunables.Create("Turn %", 100, 0, 100)
	return t
}

func (t *Teleop) String() string {
	return "teleop"
}

func (t *Teleop) OnJoystickEvent(event *joystick.Event) {
	switch {
	case event.Type == joystick.EventTypeAxis && event.Number == joystick.AxisDPadX:
		if event.Value > 0 {
			t.tunables.SelectNext()
		} else if event.Value < 0 {
			t.tunables.SelectPrev()
		}
	case event.Type == joystick.EventTypeButton && event.Value == 1:
		switch event.Number {
		case joystick.ButtonR1:
			t.tunables.Current().Add(tunableStep)
		case joystick.ButtonL1:
			t.tunables.Current().Add(-tunableStep)
		}
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	t.state.Apply(event)
}

// Feed applies events from the channel until it closes or ctx is done.
func (t *Teleop) Feed(ctx context.Context, events <-chan *joystick.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				t.log.Warn().Msg("Joystick events channel closed")
				return
			}
			t.OnJoystickEvent(event)
		}
	}
}

func (t *Teleop) snapshot() joystick.State {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// Execute writes the stick mix every tick until ctx is done or the match
// ends.  The launcher is switched off on return.
func (t *Teleop) Execute(ctx context.Context, c *motion.Controller) error {
	t.log.Info().Msg("Teleop started")
	defer t.log.Info().Msg("Teleop stopped")

	launcher := 0.0
	defer func() {
		if launcher != 0 {
			t.setLauncher(0)
		}
	}()

	env := c.Env()
	for ctx.Err() == nil && env.Active() {
		state := t.snapshot()
		drive := -state.Axis(joystick.AxisLStickY) * t.drivePct.Fraction()
		turn := state.Axis(joystick.AxisRStickX) * t.turnPct.Fraction()
		left, right := Mix(drive, turn)
		c.Drive(wheels.Sides(left, right))

		if p := LauncherPower(state.Axes[joystick.AxisDPadY]); p != launcher {
			t.setLauncher(p)
			launcher = p
		}

		env.Sleep(c.Tick())
	}
	return nil
}

func (t *Teleop) setLauncher(power float64) {
	if err := t.accessories.SetLauncher(power); err != nil {
		t.log.Warn().Err(err).Float64("power", power).Msg("Failed to set launcher")
	}
}
