// Package mixer combines a linear drive command and a heading correction
// into four wheel powers.
package mixer

import (
	"math"

	"github.com/15303/UltimateGoal/pkg/wheels"
)

// DefaultLeftTrim compensates for the left side of the competition chassis
// running faster than the right at the same commanded power.
const DefaultLeftTrim = 0.9

type Mixer struct {
	LeftTrim  float64
	RightTrim float64
}

func New(leftTrim, rightTrim float64) Mixer {
	return Mixer{LeftTrim: leftTrim, RightTrim: rightTrim}
}

// Mix returns FL = BL = (linear-correction)*LeftTrim and
// FR = BR = (linear+correction)*RightTrim, each clipped to [-1, 1].
func (m Mixer) Mix(linear, correction float64) wheels.Set[float64] {
	return m.Apply(wheels.Sides(linear-correction, linear+correction))
}

// Apply trims and clips a raw per-wheel command.
func (m Mixer) Apply(raw wheels.Set[float64]) wheels.Set[float64] {
	return wheels.Map(raw, func(w wheels.Wheel, p float64) float64 {
		if w.IsLeft() {
			p *= m.LeftTrim
		} else {
			p *= m.RightTrim
		}
		return clip(p)
	})
}

func clip(p float64) float64 {
	return math.Max(-1, math.Min(1, p))
}
