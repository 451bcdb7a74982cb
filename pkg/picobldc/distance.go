package picobldc

import "github.com/15303/UltimateGoal/pkg/wheels"

type distanceProvider interface {
	RawDistancesTraveled() (wheels.Set[int16], error)
}

// DistanceTracker widens the board's wrapping 16-bit counters into 64-bit
// totals.  Poll must run at least once per half counter period (32768 ticks
// of travel) or a wrap is misread.
type DistanceTracker struct {
	pico distanceProvider

	doneFirstPoll bool
	lastRawValues wheels.Set[int16]

	accumulator [wheels.NumWheels]int64
}

func NewDistanceTracker(pico distanceProvider) *DistanceTracker {
	return &DistanceTracker{
		pico: pico,
	}
}

func (d *DistanceTracker) Poll() error {
	raw, err := d.pico.RawDistancesTraveled()
	if err != nil {
		return err
	}

	if d.doneFirstPoll {
		for w, newD := range raw {
			// int16 subtraction wraps, which is what makes the counter
			// roll-over come out right.
			delta := newD - d.lastRawValues[w]
			d.accumulator[w] += int64(delta)
		}
	}

	d.lastRawValues = raw
	d.doneFirstPoll = true
	return nil
}

func (d *DistanceTracker) Accumulated() wheels.Set[int64] {
	return wheels.Set[int64](d.accumulator)
}

func (d *DistanceTracker) Zero() {
	d.accumulator = [wheels.NumWheels]int64{}
}
