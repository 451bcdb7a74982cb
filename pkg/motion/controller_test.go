package motion

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/15303/UltimateGoal/pkg/angle"
	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/profile"
	"github.com/15303/UltimateGoal/pkg/telemetry"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

func newSimController(cfg config.Config) (*Controller, *hardware.Sim, *fakeEnv) {
	sim := hardware.NewSim(zerolog.Nop())
	env := newFakeEnv(sim)
	return NewController(sim, sim, env, cfg, zerolog.Nop()), sim, env
}

func newInstantController(cfg config.Config) (*Controller, *instantDrive, *fakeEnv) {
	env := newFakeEnv(nil)
	drive := &instantDrive{env: env}
	ctrl := NewController(drive, fixedHeading(0), env, cfg, zerolog.Nop())
	drive.tracker = ctrl.Tracker()
	return ctrl, drive, env
}

func TestTimedDriveRampScenario(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())

	cmd := Travel(0.8, 2000*time.Millisecond).WithRamp(1000 * time.Millisecond)
	require.NoError(t, ctrl.DriveForDuration(context.Background(), cmd))

	writes := sim.Writes()
	w, ok := writeAt(writes, 0)
	require.True(t, ok)
	assert.True(t, w.Powers.IsZero(), "power at t=0 should be 0")

	w, ok = writeAt(writes, 500*time.Millisecond)
	require.True(t, ok)
	for _, p := range w.Powers {
		assert.InDelta(t, 0.4, p, 1e-9)
	}

	w, ok = writeAt(writes, 1000*time.Millisecond)
	require.True(t, ok)
	for _, p := range w.Powers {
		assert.InDelta(t, 0.8, p, 1e-9)
	}

	w, ok = writeAt(writes, 2000*time.Millisecond)
	require.True(t, ok)
	assert.InDelta(t, 0.8, w.Powers[wheels.FrontLeft], 1e-9)

	last := lastWrite(writes)
	assert.Equal(t, 2001*time.Millisecond, last.At)
	assert.True(t, last.Powers.IsZero())
}

func TestTimedDriveAppliesTrim(t *testing.T) {
	ctrl, sim, _ := newSimController(config.Default())

	cmd := Travel(0.5, 100*time.Millisecond).WithRamp(0).Unlocked()
	require.NoError(t, ctrl.DriveForDuration(context.Background(), cmd))

	w, ok := writeAt(sim.Writes(), 0)
	require.True(t, ok)
	assert.Equal(t, wheels.Set[float64]{0.45, 0.5, 0.45, 0.5}, w.Powers)
	assert.True(t, lastWrite(sim.Writes()).Powers.IsZero())
}

func TestTimedDriveStopsWithinOneTickOfStopSignal(t *testing.T) {
	cfg := testConfig()
	ctrl, sim, env := newSimController(cfg)
	env.stopAt = 730 * time.Millisecond

	require.NoError(t, ctrl.DriveForDuration(context.Background(), Travel(0.8, 2*time.Second)))

	writes := sim.Writes()
	last := lastWrite(writes)
	assert.True(t, last.Powers.IsZero())
	assert.LessOrEqual(t, last.At, env.stopAt+cfg.Drive.TickInterval)
	for _, w := range writes {
		if w.At >= env.stopAt {
			assert.True(t, w.Powers.IsZero(), "non-zero write at %v after stop", w.At)
		}
	}
}

func TestTimedDriveStopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	ctrl, sim, env := newSimController(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.onSleep = func(elapsed time.Duration) {
		if elapsed >= 300*time.Millisecond {
			cancel()
		}
	}

	require.NoError(t, ctrl.DriveForDuration(ctx, Travel(0.8, 2*time.Second)))
	last := lastWrite(sim.Writes())
	assert.True(t, last.Powers.IsZero())
	assert.Equal(t, 300*time.Millisecond, last.At)
}

func TestResolveDefaults(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())
	sim.SetHeading(25)

	short := ctrl.Resolve(Travel(0.5, 300*time.Millisecond))
	assert.Equal(t, 300*time.Millisecond, short.Ramp)
	assert.Equal(t, 25.0, short.TargetHeading)

	long := ctrl.Resolve(Travel(0.5, 5*time.Second))
	assert.Equal(t, time.Second, long.Ramp)

	explicit := ctrl.Resolve(Travel(0.5, 5*time.Second).WithRamp(0).WithHeading(-10))
	assert.Equal(t, time.Duration(0), explicit.Ramp)
	assert.Equal(t, -10.0, explicit.TargetHeading)

	pos := ctrl.Resolve(GoTo(0.5, 100))
	assert.Equal(t, 25.0, pos.TargetHeading)
}

func TestTimedDriveHoldsHeading(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())

	// Zero linear power with a heading target turns on the spot.
	require.NoError(t, ctrl.DriveForDuration(context.Background(), Travel(0, 2*time.Second).WithHeading(30)))
	assert.InDelta(t, 30.0, sim.CurrentHeading(), 0.5)
}

func TestHeadingHoldTakesShortWayRound(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())
	sim.SetHeading(170)

	require.NoError(t, ctrl.DriveForDuration(context.Background(), Travel(0, time.Second).WithHeading(-170)))
	assert.InDelta(t, 0.0, angle.Error(sim.CurrentHeading(), -170), 0.5)

	writes := sim.Writes()
	first := writes[0].Powers
	assert.Greater(t, first[wheels.FrontLeft], 0.0, "should turn clockwise through 180")
	assert.Less(t, first[wheels.FrontRight], 0.0)
}

func TestPositionalDriveReachesTarget(t *testing.T) {
	cfg := testConfig()
	ctrl, sim, _ := newSimController(cfg)
	rec := &telemetry.Recorder{}
	ctrl.SetTelemetry(rec)

	require.NoError(t, ctrl.DriveToPosition(context.Background(), GoTo(0.5, 750)))

	pos, err := sim.WheelPositions()
	require.NoError(t, err)
	for _, w := range wheels.All {
		assert.InDelta(t, 750, pos[w], float64(cfg.Position.ToleranceTicks), "wheel %v", w)
	}
	assert.True(t, lastWrite(sim.Writes()).Powers.IsZero())
	assert.Contains(t, rec.Values("stage"), profile.Settling)
	for _, p := range rec.Values("power") {
		assert.LessOrEqual(t, p.(float64), 0.5)
	}
}

func TestPositionalDriveReverse(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())
	require.NoError(t, ctrl.DriveToPosition(context.Background(), GoTo(0.5, -400)))
	pos, err := sim.WheelPositions()
	require.NoError(t, err)
	assert.InDelta(t, -400, pos.Average(), 15)
}

func TestPositionalDriveInstantTracking(t *testing.T) {
	for _, delta := range []int{750, 1000} {
		ctrl, drive, env := newInstantController(testConfig())
		rec := &telemetry.Recorder{}
		ctrl.SetTelemetry(rec)

		require.NoError(t, ctrl.DriveToPosition(context.Background(), GoTo(0.5, delta)))

		pos, _ := drive.WheelPositions()
		assert.Equal(t, wheels.Uniform(delta), pos)

		// One tick accelerating moves the encoders, the next sees zero
		// error and enters Settling, then the dwell runs out.
		tick := testConfig().Drive.TickInterval
		dwell := testConfig().Position.SettleDwell
		settlingEntered := tick
		assert.LessOrEqual(t, env.Elapsed(), settlingEntered+dwell+tick)

		writes := drive.Writes()
		last := lastWrite(writes)
		assert.True(t, last.Powers.IsZero())
		for _, w := range writes[1:] {
			assert.True(t, w.Powers.IsZero(), "power after reaching target at %v", w.At)
		}
		assert.Equal(t, []interface{}{profile.Accelerating}, rec.Values("stage")[:1])
	}
}

func TestPositionalDriveStopSignal(t *testing.T) {
	cfg := testConfig()
	ctrl, sim, env := newSimController(cfg)
	env.stopAt = 400 * time.Millisecond

	require.NoError(t, ctrl.DriveToPosition(context.Background(), GoTo(0.5, 5000)))

	last := lastWrite(sim.Writes())
	assert.True(t, last.Powers.IsZero())
	assert.LessOrEqual(t, last.At, env.stopAt+cfg.Drive.TickInterval)
}

func TestPositionalDriveTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Position.Timeout = 500 * time.Millisecond
	ctrl, sim, env := newSimController(cfg)

	err := ctrl.DriveToPosition(context.Background(), GoTo(0.5, 5000))
	assert.ErrorIs(t, err, ErrMoveTimedOut)
	assert.Equal(t, 500*time.Millisecond, env.Elapsed())
	assert.True(t, lastWrite(sim.Writes()).Powers.IsZero())
}

func TestPositionalDriveEncoderFailure(t *testing.T) {
	ctrl, sim, env := newSimController(testConfig())
	boom := errors.New("i2c nak")
	env.onSleep = func(elapsed time.Duration) {
		if elapsed >= 100*time.Millisecond {
			sim.FailEncoders(boom)
		}
	}

	err := ctrl.DriveToPosition(context.Background(), GoTo(0.5, 5000))
	assert.ErrorIs(t, err, boom)
	assert.True(t, lastWrite(sim.Writes()).Powers.IsZero())
}

func TestWriteFailuresAreRetried(t *testing.T) {
	ctrl, sim, env := newSimController(testConfig())
	sim.FailWrites(errors.New("busy"))
	env.onSleep = func(elapsed time.Duration) {
		if elapsed >= 50*time.Millisecond {
			sim.FailWrites(nil)
		}
	}

	require.NoError(t, ctrl.DriveForDuration(context.Background(), Travel(0.5, 200*time.Millisecond).WithRamp(0)))
	writes := sim.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, 50*time.Millisecond, writes[0].At)
	assert.True(t, lastWrite(writes).Powers.IsZero())
}

func TestInvalidCommandRejected(t *testing.T) {
	ctrl, sim, _ := newSimController(testConfig())
	assert.Error(t, ctrl.DriveForDuration(context.Background(), Travel(1.5, time.Second)))
	assert.Error(t, ctrl.DriveToPosition(context.Background(), GoTo(0.5, 100).WithRamp(-time.Second)))
	assert.Empty(t, sim.Writes())
}
