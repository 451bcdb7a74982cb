// Package tunable holds integer knobs that can be adjusted from the gamepad
// while the robot is running.
package tunable

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Tunable struct {
	Name     string
	Min, Max int64

	value int64
	log   zerolog.Logger
}

// Add moves the value by delta, clamped to [Min, Max].
func (t *Tunable) Add(delta int) {
	for {
		old := atomic.LoadInt64(&t.value)
		newV := old + int64(delta)
		if newV < t.Min {
			newV = t.Min
		}
		if newV > t.Max {
			newV = t.Max
		}
		if atomic.CompareAndSwapInt64(&t.value, old, newV) {
			t.log.Info().Str("tunable", t.Name).Int64("value", newV).Msg("Tunable changed")
			return
		}
	}
}

func (t *Tunable) Get() int {
	return int(atomic.LoadInt64(&t.value))
}

// Fraction is the value as a fraction of Max.
func (t *Tunable) Fraction() float64 {
	if t.Max == 0 {
		return 0
	}
	return float64(t.Get()) / float64(t.Max)
}

type Tunables struct {
	log zerolog.Logger

	lock     sync.Mutex
	all      []*Tunable
	selected int
}

func New(log zerolog.Logger) *Tunables {
	return &Tunables{log: log}
}

func (t *Tunables) Create(name string, value, min, max int) *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	newTunable := &Tunable{
		Name:  name,
		Min:   int64(min),
		Max:   int64(max),
		value: int64(value),
		log:   t.log,
	}
	t.all = append(t.all, newTunable)
	return newTunable
}

func (t *Tunables) SelectNext() {
	t.move(1)
}

func (t *Tunables) SelectPrev() {
	t.move(-1)
}

func (t *Tunables) move(delta int) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.all) == 0 {
		return
	}
	t.selected = (t.selected + delta + len(t.all)) % len(t.all)
	cur := t.all[t.selected]
	t.log.Info().Str("tunable", cur.Name).Int("value", cur.Get()).Msg("Tunable selected")
}

func (t *Tunables) Current() *Tunable {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.all[t.selected]
}
