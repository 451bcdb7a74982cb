// Package tracker reduces the four wheel encoders to a single position and
// holds the target for the current positional move.
package tracker

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/15303/UltimateGoal/pkg/wheels"
)

type EncoderReader interface {
	WheelPositions() (wheels.Set[int], error)
}

type Tracker struct {
	encoders EncoderReader

	lock   sync.Mutex
	target wheels.Set[int]
}

func New(encoders EncoderReader) *Tracker {
	return &Tracker{encoders: encoders}
}

// SetRelativeTarget snapshots the current encoder positions and sets each
// wheel's target to its own position plus delta.  The same delta goes to all
// four wheels, so this only describes straight moves.
func (t *Tracker) SetRelativeTarget(delta int) (wheels.Set[int], error) {
	current, err := t.encoders.WheelPositions()
	if err != nil {
		return wheels.Set[int]{}, errors.Wrap(err, "failed to snapshot encoders")
	}
	target := current.AddScalar(delta)

	t.lock.Lock()
	t.target = target
	t.lock.Unlock()
	return target, nil
}

func (t *Tracker) Targets() wheels.Set[int] {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.target
}

func (t *Tracker) Target() int {
	return t.Targets().Average()
}

func (t *Tracker) Current() (int, error) {
	current, err := t.encoders.WheelPositions()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read encoders")
	}
	return current.Average(), nil
}

// Error returns the averaged target minus the averaged current position.
func (t *Tracker) Error() (int, error) {
	current, err := t.Current()
	if err != nil {
		return 0, err
	}
	return t.Target() - current, nil
}
