package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/joystick"
	"github.com/15303/UltimateGoal/pkg/match"
	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/rings"
	"github.com/15303/UltimateGoal/pkg/routine"
	"github.com/15303/UltimateGoal/pkg/sound"
	"github.com/15303/UltimateGoal/pkg/teleop"
	"github.com/15303/UltimateGoal/pkg/vision"
)

type AutoCmd struct {
	Routine  string `help:"Routine to run." enum:"basic,red-left" default:"basic"`
	SimLabel string `help:"Stack label the simulated camera reports." enum:"None,Single,Quad" default:"None"`
}

func (c *AutoCmd) Run(rt *Runtime) error {
	run, err := routine.Lookup(c.Routine)
	if err != nil {
		return err
	}
	if err := rt.open(); err != nil {
		return err
	}
	defer rt.close()

	var camera routine.Camera
	if rt.sim {
		camera = staticCamera(c.SimLabel)
	} else if c.Routine == "red-left" {
		det, err := vision.Open(rt.cfg.Hardware.Camera, rt.cfg.Rings)
		if err != nil {
			return err
		}
		defer det.Close()
		camera = det
	}

	m := match.New(rt.ctx, rt.cfg.Match.AutonomousPeriod)
	defer m.Stop()
	rt.robot.PlaySound(sound.Start)
	result, err := run(rt.ctx, &routine.Robot{
		Scheduler:  rt.scheduler(m),
		Hardware:   rt.robot,
		Env:        m,
		Classifier: rings.NewClassifier(rt.cfg.Rings),
		Camera:     camera,
		Rings:      rt.cfg.Rings,
		Telemetry:  rt.sink,
		Log:        rt.log,
	})
	rt.log.Info().
		Str("routine", c.Routine).
		Stringer("count", result.Count).
		Str("label", result.Label).
		Dur("elapsed", m.Elapsed()).
		Msg("Autonomous done")
	return err
}

// staticCamera always sees the same stack.
type staticCamera string

func (c staticCamera) See() ([]rings.Detection, error) {
	if string(c) == rings.LabelNone {
		return nil, nil
	}
	return []rings.Detection{{Label: string(c), Confidence: 1}}, nil
}

type TeleopCmd struct {
	Device string `help:"Joystick device; defaults to hardware.joystick."`
}

func (c *TeleopCmd) Run(rt *Runtime) error {
	device := c.Device
	if device == "" {
		device = rt.cfg.Hardware.Joystick
	}
	j, err := joystick.Open(device)
	if err != nil {
		return err
	}
	defer j.Close()

	if err := rt.open(); err != nil {
		return err
	}
	defer rt.close()

	events := make(chan *joystick.Event, 1)
	go func() {
		if err := j.Loop(rt.ctx, events, rt.log); err != nil {
			rt.log.Error().Err(err).Msg("Joystick failed")
		}
	}()
	tele := teleop.New(rt.robot, rt.log)
	go tele.Feed(rt.ctx, events)

	m := match.New(rt.ctx, rt.cfg.Match.TeleopPeriod)
	defer m.Stop()
	rt.robot.PlaySound(sound.Start)
	return rt.scheduler(m).Run(rt.ctx, tele)
}

type JoyCmd struct {
	Device string `help:"Joystick device; defaults to hardware.joystick."`
}

func (c *JoyCmd) Run(rt *Runtime) error {
	device := c.Device
	if device == "" {
		device = rt.cfg.Hardware.Joystick
	}
	j, err := joystick.Open(device)
	if err != nil {
		return err
	}
	defer j.Close()

	events := make(chan *joystick.Event)
	errC := make(chan error, 1)
	go func() { errC <- j.Loop(rt.ctx, events, rt.log) }()
	for event := range events {
		rt.log.Info().Stringer("event", event).Msg("Event from joystick")
	}
	return <-errC
}

type moveFlags struct {
	Heading  string `help:"Target heading in degrees; unset holds the heading at the start of the move."`
	Unlocked bool   `help:"Don't hold a heading."`
}

func (f moveFlags) apply(cmd motion.Command) (motion.Command, error) {
	if f.Unlocked {
		if f.Heading != "" {
			return cmd, errors.New("--heading and --unlocked are exclusive")
		}
		return cmd.Unlocked(), nil
	}
	if f.Heading == "" {
		return cmd, nil
	}
	deg, err := strconv.ParseFloat(f.Heading, 64)
	if err != nil {
		return cmd, errors.Wrapf(err, "bad heading %q", f.Heading)
	}
	return cmd.WithHeading(deg), nil
}

type TimedCmd struct {
	Power    float64       `arg:"" help:"Drive power in [-1, 1]."`
	Duration time.Duration `arg:"" help:"How long to drive, e.g. 2s."`
	Ramp     time.Duration `help:"Ramp length; unset uses min(drive.defaultRamp, duration)."`
	Move     moveFlags     `embed:""`
}

func (c *TimedCmd) command() (motion.Command, error) {
	cmd := motion.Travel(c.Power, c.Duration)
	if c.Ramp > 0 {
		cmd = cmd.WithRamp(c.Ramp)
	}
	return c.Move.apply(cmd)
}

func (c *TimedCmd) Run(rt *Runtime) error {
	cmd, err := c.command()
	if err != nil {
		return err
	}
	return runMove(rt, cmd)
}

type GotoCmd struct {
	Power float64   `arg:"" help:"Peak drive power in (0, 1]."`
	Ticks int       `arg:"" help:"Encoder ticks to travel; negative drives backwards."`
	Move  moveFlags `embed:""`
}

func (c *GotoCmd) command() (motion.Command, error) {
	return c.Move.apply(motion.GoTo(c.Power, c.Ticks))
}

func (c *GotoCmd) Run(rt *Runtime) error {
	cmd, err := c.command()
	if err != nil {
		return err
	}
	return runMove(rt, cmd)
}

func runMove(rt *Runtime, cmd motion.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := rt.open(); err != nil {
		return err
	}
	defer rt.close()

	m := match.New(rt.ctx, 0)
	defer m.Stop()
	sched := rt.scheduler(m)
	start := time.Now()
	err := sched.Run(rt.ctx, cmd)

	pos, posErr := rt.robot.WheelPositions()
	rt.log.Info().
		Stringer("cmd", cmd).
		Dur("took", time.Since(start)).
		Stringer("positions", pos).
		AnErr("encoderErr", posErr).
		Float64("heading", rt.robot.CurrentHeading()).
		Msg("Move done")
	return err
}

type RingsCmd struct {
	Samples  int           `help:"Number of readings to take." default:"1"`
	Interval time.Duration `help:"Time between readings." default:"500ms"`
	Camera   bool          `help:"Also look with the camera."`
}

func (c *RingsCmd) Run(rt *Runtime) error {
	if err := rt.open(); err != nil {
		return err
	}
	defer rt.close()

	var det *vision.Detector
	if c.Camera && !rt.sim {
		var err error
		det, err = vision.Open(rt.cfg.Hardware.Camera, rt.cfg.Rings)
		if err != nil {
			return err
		}
		defer det.Close()
	}

	classifier := rings.NewClassifier(rt.cfg.Rings)
	for i := 0; i < c.Samples && rt.ctx.Err() == nil; i++ {
		if i > 0 {
			time.Sleep(c.Interval)
		}
		reading, err := rt.robot.ReadRing()
		if err != nil {
			return errors.Wrap(err, "failed to read ring sensor")
		}
		label, seen := "", 0
		if det != nil {
			detections, err := det.See()
			if err != nil {
				return err
			}
			label, seen = rings.BestLabel(detections), len(detections)
		}
		rt.log.Info().
			Stringer("reading", reading).
			Bool("orange", classifier.IsOrange(reading)).
			Stringer("count", classifier.Classify(reading)).
			Str("label", label).
			Int("detections", seen).
			Msg("Ring sample")
	}
	return nil
}

type ConfigCmd struct {
	Defaults bool   `help:"Print the built-in defaults instead of the config in use."`
	Out      string `help:"Write to this file instead of stdout." type:"path"`
}

func (c *ConfigCmd) Run(rt *Runtime) error {
	cfg := rt.cfg
	if c.Defaults {
		cfg = config.Default()
	}
	if c.Out != "" {
		return config.Write(c.Out, cfg)
	}
	raw, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, string(raw))
	return err
}
