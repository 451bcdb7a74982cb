package angle

import "math"

// PlusMinus180 is a heading in degrees held in the range (-180, 180].
// Every constructor and operation wraps its result back into range.
type PlusMinus180 float64

// FromFloat wraps a heading of any magnitude into (-180, 180].
func FromFloat(deg float64) PlusMinus180 {
	d := math.Mod(deg, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return PlusMinus180(d)
}

func (a PlusMinus180) Float() float64 {
	return float64(a)
}

func (a PlusMinus180) Add(b PlusMinus180) PlusMinus180 {
	return FromFloat(float64(a) + float64(b))
}

func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return FromFloat(float64(a) - float64(b))
}

func (a PlusMinus180) AddFloat(deg float64) PlusMinus180 {
	return FromFloat(float64(a) + deg)
}

// Error returns current-target as the shortest signed rotation, in
// (-180, 180].  A robot at 179 degrees aiming for -179 is 2 degrees away,
// not 358.
func Error(current, target float64) float64 {
	return FromFloat(current - target).Float()
}
