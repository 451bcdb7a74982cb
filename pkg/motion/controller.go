// Package motion runs drive commands against the drivetrain: timed drives
// with a power ramp, encoder-closed positional drives, and the scheduler
// that makes sure only one of them is writing wheel power at a time.
package motion

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/heading"
	"github.com/15303/UltimateGoal/pkg/mixer"
	"github.com/15303/UltimateGoal/pkg/profile"
	"github.com/15303/UltimateGoal/pkg/telemetry"
	"github.com/15303/UltimateGoal/pkg/tracker"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

var (
	ErrMoveTimedOut = errors.New("positional move timed out")
	ErrPreempted    = errors.New("preempted by a newer command")
)

// Controller drives the wheels.  It holds no lock of its own: exactly one
// caller may use it at a time, which the Scheduler guarantees.
type Controller struct {
	drive   hardware.Drivetrain
	imu     hardware.HeadingSensor
	env     Environment
	tracker *tracker.Tracker

	mixer      mixer.Mixer
	corrector  heading.Corrector
	positional profile.Positional

	tick            time.Duration
	defaultRamp     time.Duration
	positionTimeout time.Duration

	log       zerolog.Logger
	telemetry telemetry.Sink
}

func NewController(
	drive hardware.Drivetrain,
	imu hardware.HeadingSensor,
	env Environment,
	cfg config.Config,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		drive:   drive,
		imu:     imu,
		env:     env,
		tracker: tracker.New(drive),

		mixer:     mixer.New(cfg.Drive.LeftTrim, cfg.Drive.RightTrim),
		corrector: heading.New(cfg.Drive.HeadingGain, cfg.Drive.WrapHeadingError),
		positional: profile.Positional{
			ToleranceTicks: cfg.Position.ToleranceTicks,
			SettleDwell:    cfg.Position.SettleDwell,
			DecelTicks:     cfg.Position.DecelTicks,
			AccelOffset:    cfg.Position.AccelOffset,
			AccelPerSecond: cfg.Position.AccelPerSecond,
			AccelFloor:     cfg.Position.AccelFloor,
			SettleFloor:    cfg.Position.SettleFloor,
		},

		tick:            cfg.Drive.TickInterval,
		defaultRamp:     cfg.Drive.DefaultRamp,
		positionTimeout: cfg.Position.Timeout,

		log:       log.With().Str("component", "motion").Logger(),
		telemetry: telemetry.Nop{},
	}
}

func (c *Controller) SetTelemetry(sink telemetry.Sink) {
	c.telemetry = sink
}

func (c *Controller) Env() Environment {
	return c.env
}

// Tick is the control loop period.
func (c *Controller) Tick() time.Duration {
	return c.tick
}

func (c *Controller) Tracker() *tracker.Tracker {
	return c.tracker
}

// Resolve fills in the parts of cmd that default from configuration and the
// current robot state: the ramp is min(DefaultRamp, duration) and the
// target heading is the heading right now.
func (c *Controller) Resolve(cmd Command) Command {
	if !cmd.rampSet {
		cmd.Ramp = c.defaultRamp
		if cmd.Kind == KindTimed && cmd.Duration < cmd.Ramp {
			cmd.Ramp = cmd.Duration
		}
		cmd.rampSet = true
	}
	if cmd.HeadingLocked && !cmd.headingSet {
		cmd.TargetHeading = c.imu.CurrentHeading()
		cmd.headingSet = true
	}
	return cmd
}

func (c *Controller) active(ctx context.Context) bool {
	return ctx.Err() == nil && c.env.Active()
}

func (c *Controller) correction(cmd Command) float64 {
	if !cmd.HeadingLocked {
		return 0
	}
	return c.corrector.Correction(c.imu.CurrentHeading(), cmd.TargetHeading)
}

func (c *Controller) write(powers wheels.Set[float64]) {
	if err := c.drive.SetWheelPowers(powers); err != nil {
		// The next tick writes again.
		c.log.Warn().Err(err).Msg("Failed to set wheel powers")
	}
}

// Drive writes a raw per-wheel command through the side trims.
func (c *Controller) Drive(raw wheels.Set[float64]) {
	c.write(c.mixer.Apply(raw))
}

// Stop writes zero power to every wheel.
func (c *Controller) Stop() {
	if err := c.drive.SetWheelPowers(wheels.Set[float64]{}); err != nil {
		c.log.Error().Err(err).Msg("Failed to zero wheel powers")
	}
}

// DriveForDuration runs a timed drive.  It returns nil when the duration
// has elapsed or the match or ctx has been stopped; wheel power is zero on
// return either way.
func (c *Controller) DriveForDuration(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	cmd = c.Resolve(cmd)
	log := c.log.With().Stringer("cmd", cmd).Logger()
	log.Info().Msg("Timed drive starting")
	defer c.Stop()

	start := c.env.Now()
	for c.active(ctx) {
		elapsed := c.env.Now().Sub(start)
		if elapsed > cmd.Duration {
			log.Info().Dur("elapsed", elapsed).Msg("Timed drive finished")
			return nil
		}
		power := profile.Ramp(elapsed, cmd.Ramp, cmd.Power)
		corr := c.correction(cmd)
		c.write(c.mixer.Mix(power, corr))

		c.telemetry.AddData("mode", cmd.Kind)
		c.telemetry.AddData("power", power)
		c.telemetry.AddData("correction", corr)
		c.telemetry.Update()
		log.Debug().Dur("elapsed", elapsed).Float64("power", power).Float64("corr", corr).Msg("tick")

		// Wake just after the end so the final zero isn't a whole tick late.
		sleep := c.tick
		if remaining := cmd.Duration - elapsed + time.Millisecond; remaining < sleep {
			sleep = remaining
		}
		c.env.Sleep(sleep)
	}
	log.Info().Msg("Timed drive stopped")
	return nil
}

// DriveToPosition runs a positional drive of cmd.DeltaTicks from the current
// encoder positions.  It returns nil on reaching the target or on a stop
// signal, ErrMoveTimedOut if the configured timeout expires first, or an
// error if the encoders can't be read.  Wheel power is zero on return.
func (c *Controller) DriveToPosition(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	cmd = c.Resolve(cmd)
	log := c.log.With().Stringer("cmd", cmd).Logger()
	defer c.Stop()

	targets, err := c.tracker.SetRelativeTarget(cmd.DeltaTicks)
	if err != nil {
		return err
	}
	log.Info().Ints("targets", targets[:]).Msg("Positional drive starting")

	start := c.env.Now()
	stage := profile.Accelerating
	stageStart := start
	for c.active(ctx) {
		now := c.env.Now()
		if c.positionTimeout > 0 && now.Sub(start) >= c.positionTimeout {
			log.Warn().Dur("timeout", c.positionTimeout).Msg("Positional drive timed out")
			return ErrMoveTimedOut
		}
		errTicks, err := c.tracker.Error()
		if err != nil {
			return err
		}

		next := c.positional.Next(stage, errTicks, now.Sub(stageStart))
		if next != stage {
			log.Debug().Stringer("from", stage).Stringer("to", next).Int("error", errTicks).Msg("Stage change")
			stage = next
			stageStart = now
		}
		if stage == profile.Done {
			log.Info().Int("error", errTicks).Dur("elapsed", now.Sub(start)).Msg("Positional drive done")
			return nil
		}

		power := c.positional.Power(cmd.Power, errTicks, now.Sub(start), stage)
		corr := c.correction(cmd)
		c.write(c.mixer.Mix(power, corr))

		c.telemetry.AddData("mode", cmd.Kind)
		c.telemetry.AddData("stage", stage)
		c.telemetry.AddData("error", errTicks)
		c.telemetry.AddData("power", power)
		c.telemetry.AddData("correction", corr)
		c.telemetry.Update()
		log.Debug().Stringer("stage", stage).Int("error", errTicks).Float64("power", power).Msg("tick")

		c.env.Sleep(c.tick)
	}
	log.Info().Stringer("stage", stage).Msg("Positional drive stopped")
	return nil
}
