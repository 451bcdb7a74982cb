package teleop

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/joystick"
	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

type launcherLog struct {
	*hardware.Sim
	powers []float64
}

func (l *launcherLog) SetLauncher(power float64) error {
	l.powers = append(l.powers, power)
	return l.Sim.SetLauncher(power)
}

func newSimTeleop() (*Teleop, *motion.Scheduler, *hardware.Sim, *hardware.SimClock, *launcherLog) {
	cfg := config.Default()
	cfg.Drive.LeftTrim = 1
	cfg.Drive.RightTrim = 1
	sim := hardware.NewSim(zerolog.Nop())
	clock := hardware.NewSimClock(sim)
	ctrl := motion.NewController(sim, sim, clock, cfg, zerolog.Nop())
	acc := &launcherLog{Sim: sim}
	return New(acc, zerolog.Nop()), motion.NewScheduler(ctrl, zerolog.Nop()), sim, clock, acc
}

func axis(n int, v int16) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeAxis, Number: uint8(n), Value: v}
}

func TestMix(t *testing.T) {
	for _, tc := range []struct {
		drive, turn float64
		left, right float64
	}{
		{0, 0, 0, 0},
		{1, 0, 1, 1},
		{0, 0.5, 0.5, -0.5},
		{1, 0.5, 1, 0.5},
		{-1, -0.5, -1, -0.5},
		{0.2, -1, -0.8, 1},
	} {
		left, right := Mix(tc.drive, tc.turn)
		assert.InDelta(t, tc.left, left, 1e-9, "drive %v turn %v", tc.drive, tc.turn)
		assert.InDelta(t, tc.right, right, 1e-9, "drive %v turn %v", tc.drive, tc.turn)
	}
}

func TestLauncherPower(t *testing.T) {
	assert.Equal(t, 1.0, LauncherPower(32767))
	assert.Equal(t, -1.0, LauncherPower(-32767))
	assert.Equal(t, 0.0, LauncherPower(0))
}

func TestTeleopDrivesFromSticks(t *testing.T) {
	tele, sched, sim, clock, acc := newSimTeleop()
	tele.OnJoystickEvent(axis(joystick.AxisLStickY, -32767))
	tele.OnJoystickEvent(axis(joystick.AxisRStickX, 16384))
	tele.OnJoystickEvent(axis(joystick.AxisDPadY, 32767))
	clock.StopAt(100 * time.Millisecond)

	require.NoError(t, sched.Run(context.Background(), tele))

	writes := sim.Writes()
	require.NotEmpty(t, writes)
	first := writes[0].Powers
	assert.InDelta(t, 1.0, first[wheels.FrontLeft], 1e-9)
	assert.InDelta(t, 1.0, first[wheels.BackLeft], 1e-9)
	assert.InDelta(t, 0.5, first[wheels.FrontRight], 1e-4)
	assert.InDelta(t, 0.5, first[wheels.BackRight], 1e-4)
	assert.True(t, writes[len(writes)-1].Powers.IsZero())

	assert.Equal(t, []float64{1, 0}, acc.powers)
	assert.Equal(t, 0.0, sim.Accessory("launcher"))
	// Turning right, so the heading has moved clockwise.
	assert.Greater(t, sim.CurrentHeading(), 0.0)
}

func TestTeleopEndsWhenPreempted(t *testing.T) {
	tele, sched, sim, _, _ := newSimTeleop()
	tele.OnJoystickEvent(axis(joystick.AxisLStickY, 32767))

	h := sched.Start(context.Background(), tele)
	// The sim clock never stops, so only cancelling ends the task.
	h.Cancel()
	require.NoError(t, h.Wait())
	assert.True(t, sim.Powers().IsZero())
}

func TestFeedAppliesEvents(t *testing.T) {
	tele, _, _, _, _ := newSimTeleop()
	events := make(chan *joystick.Event, 2)
	events <- axis(joystick.AxisRStickX, 32767)
	events <- &joystick.Event{Type: joystick.EventTypeButton, Number: joystick.ButtonCross, Value: 1}
	close(events)

	tele.Feed(context.Background(), events)

	state := tele.snapshot()
	assert.Equal(t, 1.0, state.Axis(joystick.AxisRStickX))
	assert.True(t, state.Buttons[joystick.ButtonCross])
}

func TestTunablesScaleDrive(t *testing.T) {
	tele, sched, sim, clock, _ := newSimTeleop()
	button := func(n int) *joystick.Event {
		return &joystick.Event{Type: joystick.EventTypeButton, Number: uint8(n), Value: 1}
	}
	// Drive % is selected first; step it down to 50.
	for i := 0; i < 10; i++ {
		tele.OnJoystickEvent(button(joystick.ButtonL1))
	}
	// Select Turn % and step it down to 0.
	tele.OnJoystickEvent(axis(joystick.AxisDPadX, 32767))
	for i := 0; i < 20; i++ {
		tele.OnJoystickEvent(button(joystick.ButtonL1))
	}
	assert.Equal(t, 50, tele.drivePct.Get())
	assert.Equal(t, 0, tele.turnPct.Get())

	tele.OnJoystickEvent(axis(joystick.AxisLStickY, -32767))
	tele.OnJoystickEvent(axis(joystick.AxisRStickX, 32767))
	clock.StopAt(50 * time.Millisecond)
	require.NoError(t, sched.Run(context.Background(), tele))

	first := sim.Writes()[0].Powers
	assert.Equal(t, wheels.Uniform(0.5), first)
}
