package motion

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindTimed Kind = iota
	KindPositional
)

func (k Kind) String() string {
	switch k {
	case KindTimed:
		return "timed"
	case KindPositional:
		return "positional"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one drive request.  Build it with Travel or GoTo and adjust
// it with the With* methods, which return modified copies.  Anything left
// unset is resolved from configuration and the robot state when the
// command starts, not when it is built.
type Command struct {
	Kind  Kind
	Power float64

	// Duration applies to timed commands.
	Duration time.Duration
	// DeltaTicks applies to positional commands.
	DeltaTicks int

	Ramp          time.Duration
	HeadingLocked bool
	TargetHeading float64

	rampSet    bool
	headingSet bool
}

// Travel is a timed drive: power for d, ramped up and heading-locked to the
// heading at the time it starts.
func Travel(power float64, d time.Duration) Command {
	return Command{
		Kind:          KindTimed,
		Power:         power,
		Duration:      d,
		HeadingLocked: true,
	}
}

// GoTo is a positional drive of deltaTicks, heading-locked to the heading
// at the time it starts.
func GoTo(power float64, deltaTicks int) Command {
	return Command{
		Kind:          KindPositional,
		Power:         power,
		DeltaTicks:    deltaTicks,
		HeadingLocked: true,
	}
}

func (c Command) WithRamp(ramp time.Duration) Command {
	c.Ramp = ramp
	c.rampSet = true
	return c
}

// WithHeading locks the heading to deg instead of the starting heading.
func (c Command) WithHeading(deg float64) Command {
	c.TargetHeading = deg
	c.HeadingLocked = true
	c.headingSet = true
	return c
}

// Unlocked turns heading correction off.
func (c Command) Unlocked() Command {
	c.HeadingLocked = false
	c.headingSet = false
	return c
}

func (c Command) RampSet() bool {
	return c.rampSet
}

func (c Command) HeadingSet() bool {
	return c.headingSet
}

func (c Command) Validate() error {
	if math.IsNaN(c.Power) || c.Power < -1 || c.Power > 1 {
		return errors.Errorf("power %v out of range [-1, 1]", c.Power)
	}
	if c.Ramp < 0 {
		return errors.Errorf("negative ramp %v", c.Ramp)
	}
	switch c.Kind {
	case KindTimed:
		if c.Duration < 0 {
			return errors.Errorf("negative duration %v", c.Duration)
		}
	case KindPositional:
	default:
		return errors.Errorf("unknown command kind %v", c.Kind)
	}
	return nil
}

func (c Command) String() string {
	var s string
	switch c.Kind {
	case KindTimed:
		s = fmt.Sprintf("travel(%.2f, %v", c.Power, c.Duration)
		if c.rampSet {
			s += fmt.Sprintf(", ramp=%v", c.Ramp)
		}
	case KindPositional:
		s = fmt.Sprintf("goto(%.2f, %d", c.Power, c.DeltaTicks)
	default:
		s = fmt.Sprintf("%v(%.2f", c.Kind, c.Power)
	}
	switch {
	case !c.HeadingLocked:
		s += ", unlocked"
	case c.headingSet:
		s += fmt.Sprintf(", heading=%.1f", c.TargetHeading)
	}
	return s + ")"
}

// Execute runs the command on the controller.
func (c Command) Execute(ctx context.Context, ctrl *Controller) error {
	switch c.Kind {
	case KindPositional:
		return ctrl.DriveToPosition(ctx, c)
	default:
		return ctrl.DriveForDuration(ctx, c)
	}
}
