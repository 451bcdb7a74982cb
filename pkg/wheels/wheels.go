// Package wheels holds per-wheel values for the four-wheel drivetrain.
//
// The index order is fixed: FrontLeft, FrontRight, BackLeft, BackRight.  All
// averaging and mixing code indexes through the Wheel constants rather than
// raw integers.
package wheels

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	BackLeft
	BackRight

	NumWheels = 4
)

var All = [NumWheels]Wheel{FrontLeft, FrontRight, BackLeft, BackRight}

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "front-left"
	case FrontRight:
		return "front-right"
	case BackLeft:
		return "back-left"
	case BackRight:
		return "back-right"
	default:
		return fmt.Sprintf("wheel(%d)", int(w))
	}
}

// IsLeft reports whether the wheel is on the left-hand side of the chassis.
func (w Wheel) IsLeft() bool {
	return w == FrontLeft || w == BackLeft
}

type Number interface {
	constraints.Integer | constraints.Float
}

// Set is one value per wheel, indexed by Wheel.
type Set[T Number] [NumWheels]T

func Uniform[T Number](v T) Set[T] {
	return Set[T]{v, v, v, v}
}

// Sides builds a set with the same value on each wheel of a side.
func Sides[T Number](left, right T) Set[T] {
	var s Set[T]
	for _, w := range All {
		if w.IsLeft() {
			s[w] = left
		} else {
			s[w] = right
		}
	}
	return s
}

func (s Set[T]) Get(w Wheel) T {
	return s[w]
}

func (s Set[T]) Add(o Set[T]) Set[T] {
	for w := range s {
		s[w] += o[w]
	}
	return s
}

func (s Set[T]) AddScalar(v T) Set[T] {
	for w := range s {
		s[w] += v
	}
	return s
}

func (s Set[T]) Sub(o Set[T]) Set[T] {
	for w := range s {
		s[w] -= o[w]
	}
	return s
}

func (s Set[T]) Sum() T {
	var sum T
	for _, v := range s {
		sum += v
	}
	return sum
}

// Average returns the mean of the four values.  For integer sets the result
// truncates towards zero, the same as the encoder averaging on the hub.
func (s Set[T]) Average() T {
	return s.Sum() / NumWheels
}

func (s Set[T]) IsZero() bool {
	return s == Set[T]{}
}

func Map[T, U Number](s Set[T], f func(Wheel, T) U) Set[U] {
	var out Set[U]
	for _, w := range All {
		out[w] = f(w, s[w])
	}
	return out
}

func (s Set[T]) String() string {
	return fmt.Sprintf("FL=%v FR=%v BL=%v BR=%v", s[FrontLeft], s[FrontRight], s[BackLeft], s[BackRight])
}
