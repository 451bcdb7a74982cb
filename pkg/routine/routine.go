// Package routine holds the scripted autonomous routines.  Routines only
// move the robot through blocking scheduler calls, so each step finishes
// (and zeros the wheels) before the next one starts.
package routine

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/rings"
	"github.com/15303/UltimateGoal/pkg/sound"
	"github.com/15303/UltimateGoal/pkg/telemetry"
)

// Camera reports the labelled stack detections in the current frame.
type Camera interface {
	See() ([]rings.Detection, error)
}

// Robot is everything a routine may use.
type Robot struct {
	Scheduler  *motion.Scheduler
	Hardware   hardware.Robot
	Env        motion.Environment
	Classifier rings.Classifier
	// Camera may be nil; routines that need it fail without it.
	Camera    Camera
	Rings     config.Rings
	Telemetry telemetry.Sink
	Log       zerolog.Logger
}

// Result is what a routine saw of the starter stack.
type Result struct {
	Count rings.Count
	Label string
}

type Routine func(ctx context.Context, r *Robot) (Result, error)

var routines = map[string]Routine{
	"basic":    Basic,
	"red-left": RedLeft,
}

func Lookup(name string) (Routine, error) {
	rt, ok := routines[name]
	if !ok {
		return nil, errors.Errorf("unknown routine %q (have %v)", name, Names())
	}
	return rt, nil
}

func Names() []string {
	var names []string
	for n := range routines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// steps runs a routine's steps in order.  The first error, or the match
// ending, skips everything after it.
type steps struct {
	ctx context.Context
	r   *Robot
	log zerolog.Logger
	err error
}

func newSteps(ctx context.Context, r *Robot, name string) *steps {
	if r.Telemetry == nil {
		r.Telemetry = telemetry.Nop{}
	}
	return &steps{
		ctx: ctx,
		r:   r,
		log: r.Log.With().Str("component", "routine").Str("routine", name).Logger(),
	}
}

func (s *steps) ok() bool {
	return s.err == nil && s.ctx.Err() == nil && s.r.Env.Active()
}

func (s *steps) run(cmd motion.Command) {
	if !s.ok() {
		return
	}
	s.log.Debug().Stringer("cmd", cmd).Msg("Step")
	if err := s.r.Scheduler.Run(s.ctx, cmd); err != nil {
		s.err = errors.Wrapf(err, "%v failed", cmd)
	}
}

func (s *steps) sleep(d time.Duration) {
	if !s.ok() {
		return
	}
	s.r.Env.Sleep(d)
}

func (s *steps) accessory(name string, set func(float64) error, power float64) {
	if !s.ok() {
		return
	}
	if err := set(power); err != nil {
		s.err = errors.Wrapf(err, "failed to set %s", name)
	}
}

func (s *steps) grab(p float64) { s.accessory("grabber", s.r.Hardware.SetGrabber, p) }
func (s *steps) lift(p float64) { s.accessory("lift", s.r.Hardware.SetLift, p) }

// readRings samples the ring sensor once and classifies it.  The caller
// waits for the reading to settle first.
func (s *steps) readRings() rings.Count {
	if !s.ok() {
		return rings.Zero
	}
	reading, err := s.r.Hardware.ReadRing()
	if err != nil {
		s.err = errors.Wrap(err, "failed to read ring sensor")
		return rings.Zero
	}
	count := s.r.Classifier.Classify(reading)
	s.log.Info().Stringer("reading", reading).Stringer("count", count).Msg("Rings counted")
	s.r.Telemetry.AddData("rings", count)
	s.r.Telemetry.Update()
	s.r.Hardware.PlaySound(sound.RingsSeen)
	return count
}

// see returns the most confident stack label in view.
func (s *steps) see() string {
	if !s.ok() {
		return rings.LabelNone
	}
	if s.r.Camera == nil {
		s.err = errors.New("routine needs a camera")
		return rings.LabelNone
	}
	detections, err := s.r.Camera.See()
	if err != nil {
		s.err = err
		return rings.LabelNone
	}
	label := rings.BestLabel(detections)
	s.log.Info().Str("label", label).Int("detections", len(detections)).Msg("Stack seen")
	s.r.Telemetry.AddData("label", label)
	s.r.Telemetry.Update()
	s.r.Hardware.PlaySound(sound.RingsSeen)
	return label
}

// finish zeros the drive, intake and arm whatever happened.
func (s *steps) finish() error {
	s.r.Scheduler.Stop()
	if err := s.r.Hardware.Off(); err != nil && s.err == nil {
		s.err = err
	}
	if err := s.r.Hardware.SetLift(0); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop lift")
	}
	if s.err != nil {
		s.log.Error().Err(s.err).Msg("Routine failed")
		return s.err
	}
	s.r.Hardware.PlaySound(sound.Finished)
	s.log.Info().Msg("Routine finished")
	return nil
}
