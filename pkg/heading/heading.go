package heading

import "github.com/15303/UltimateGoal/pkg/angle"

// DefaultGain is the empirical gain from the competition robot: a 40 degree
// heading error produces a full unit of differential power.
const DefaultGain = 40.0

// Corrector turns a heading error into a differential power term.  A
// smaller Gain gives a stronger correction.
type Corrector struct {
	Gain float64
	// Wrap normalises the error into (-180, 180] before applying the gain.
	// With Wrap off the raw difference is used, so a robot at 179 degrees
	// holding -179 sees a 358 degree error and spins the long way round.
	Wrap bool
}

func New(gain float64, wrap bool) Corrector {
	return Corrector{Gain: gain, Wrap: wrap}
}

// Correction returns (current-target)/Gain.  Headings increase clockwise,
// so a positive correction means the robot has turned clockwise of the
// target and the right side needs more power.
func (c Corrector) Correction(currentDeg, targetDeg float64) float64 {
	e := currentDeg - targetDeg
	if c.Wrap {
		e = angle.Error(currentDeg, targetDeg)
	}
	return e / c.Gain
}
