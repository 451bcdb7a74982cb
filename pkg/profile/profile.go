// Package profile generates commanded power magnitudes for drive moves.
//
// Ramp covers timed moves.  Positional covers encoder moves: it clamps the
// requested power by distance remaining (deceleration) and time since the
// start (acceleration), with a per-stage floor so the robot doesn't stall
// short of the target.
package profile

import (
	"fmt"
	"math"
	"time"
)

// Ramp returns the power to command elapsed into a timed move that ramps
// linearly from zero to target over ramp.  The result keeps target's sign
// and never exceeds its magnitude.  A zero ramp means full power at once.
func Ramp(elapsed, ramp time.Duration, target float64) float64 {
	if ramp <= 0 {
		return target
	}
	if elapsed <= 0 {
		return 0
	}
	p := elapsed.Seconds() / ramp.Seconds() * math.Abs(target)
	return math.Copysign(math.Min(p, math.Abs(target)), target)
}

type Stage int

const (
	Accelerating Stage = iota
	Settling
	Done
)

func (s Stage) String() string {
	switch s {
	case Accelerating:
		return "accelerating"
	case Settling:
		return "settling"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Positional holds the tuning for encoder moves.
type Positional struct {
	// ToleranceTicks is the error band that counts as "at the target".
	ToleranceTicks int
	// SettleDwell is how long the error has to stay inside the band.
	SettleDwell time.Duration

	// DecelTicks is the error, in ticks, at which the deceleration clamp
	// allows full power: power <= |err|/DecelTicks - AccelOffset.
	DecelTicks  float64
	AccelOffset float64
	// AccelPerSecond bounds power by time since the move started.
	AccelPerSecond float64

	AccelFloor  float64
	SettleFloor float64
}

// Power returns the signed power for the given encoder error (target minus
// current) and time since the move started.
func (p Positional) Power(maxPower float64, errTicks int, sinceStart time.Duration, stage Stage) float64 {
	if errTicks == 0 || stage == Done {
		return 0
	}
	limit := math.Abs(maxPower)
	power := limit
	if p.DecelTicks > 0 {
		power = math.Min(power, math.Abs(float64(errTicks))/p.DecelTicks-p.AccelOffset)
	}
	if p.AccelPerSecond > 0 {
		power = math.Min(power, sinceStart.Seconds()*p.AccelPerSecond)
	}

	floor := p.AccelFloor
	if stage == Settling {
		floor = p.SettleFloor
	}
	floor = math.Min(floor, limit)
	if power < floor {
		power = floor
	}

	if errTicks < 0 {
		return -power
	}
	return power
}

// Next returns the stage after observing errTicks.  stageAge is how long
// the move has been in the current stage.
func (p Positional) Next(stage Stage, errTicks int, stageAge time.Duration) Stage {
	inBand := abs(errTicks) <= p.ToleranceTicks
	switch stage {
	case Accelerating:
		if inBand {
			return Settling
		}
	case Settling:
		if !inBand {
			return Accelerating
		}
		if stageAge >= p.SettleDwell {
			return Done
		}
	}
	return stage
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
