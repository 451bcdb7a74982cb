package routine

import (
	"context"
	"time"

	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/rings"
)

const pause = 500 * time.Millisecond

// turn rotates on the spot to an absolute heading.
func turn(deg float64, d time.Duration) motion.Command {
	return motion.Travel(0, d).WithHeading(deg)
}

// RedLeft starts on the left red line holding the wobble goal, looks at
// the stack with the camera, delivers the goal to the matching zone and
// comes back to park.
func RedLeft(ctx context.Context, r *Robot) (Result, error) {
	s := newSteps(ctx, r, "red-left")

	s.grab(-0.5) // hold the wobble goal
	s.sleep(250 * time.Millisecond)

	// Point the camera at the stack.
	s.run(motion.GoTo(0.5, 250))
	s.sleep(pause)
	s.run(turn(30, pause))

	s.sleep(time.Second)
	label := s.see()

	s.run(turn(0, pause))
	s.sleep(pause)
	s.run(motion.GoTo(0.5, 2000).WithHeading(0))
	s.sleep(pause)

	switch label {
	case rings.LabelNone:
		s.run(motion.GoTo(0.5, 100))
		s.run(turn(-45, 750*time.Millisecond))
	case rings.LabelSingle:
		s.run(motion.GoTo(0.5, 750).WithHeading(0))
		s.sleep(pause)
		s.run(turn(30, 750*time.Millisecond))
		s.sleep(pause)
		s.run(motion.GoTo(0.5, 250).WithHeading(30))
	case rings.LabelQuad:
		s.run(motion.GoTo(0.5, 1750).WithHeading(0))
		s.sleep(pause)
		s.run(turn(-45, 750*time.Millisecond))
	}
	s.sleep(pause)

	// Lower the goal and let go of it.
	s.lift(-0.5)
	s.sleep(time.Second)
	s.lift(0)
	s.grab(1)
	s.sleep(200 * time.Millisecond)
	s.grab(0)

	switch label {
	case rings.LabelSingle:
		s.run(turn(0, pause))
		s.sleep(pause)
		s.run(motion.GoTo(0.5, -600).WithHeading(0))
	case rings.LabelQuad:
		s.run(turn(0, 750*time.Millisecond))
		s.sleep(pause)
		s.run(motion.GoTo(0.5, -1700).WithHeading(0))
	}
	s.sleep(pause)

	s.lift(0.5)
	s.sleep(1250 * time.Millisecond)
	s.lift(0)

	return Result{Label: label}, s.finish()
}
