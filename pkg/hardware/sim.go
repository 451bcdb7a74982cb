package hardware

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/angle"
	"github.com/15303/UltimateGoal/pkg/rings"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

const (
	// DefaultSimTicksPerSecond is the encoder rate of a wheel at full power.
	DefaultSimTicksPerSecond = 1200
	// DefaultSimTurnRate is degrees per second per unit of left/right
	// power difference.
	DefaultSimTurnRate = 90
)

// PowerWrite is one call to SetWheelPowers as seen by the simulator.
type PowerWrite struct {
	At     time.Duration
	Powers wheels.Set[float64]
}

// Sim is a kinematic stand-in for the robot: wheel ticks integrate
// commanded power and the heading integrates the left/right difference.
// Time only moves when Advance is called.
type Sim struct {
	TicksPerSecond float64
	TurnRate       float64

	log zerolog.Logger

	lock        sync.Mutex
	elapsed     time.Duration
	powers      wheels.Set[float64]
	ticks       wheels.Set[float64]
	heading     float64
	writes      []PowerWrite
	accessories map[string]float64
	ring        rings.Reading
	sounds      []string

	writeErr   error
	encoderErr error
}

var _ Robot = (*Sim)(nil)

func NewSim(log zerolog.Logger) *Sim {
	return &Sim{
		TicksPerSecond: DefaultSimTicksPerSecond,
		TurnRate:       DefaultSimTurnRate,
		log:            log.With().Str("component", "sim").Logger(),
		accessories:    map[string]float64{},
	}
}

// Advance moves simulated time forward by dt at the current powers.
func (s *Sim) Advance(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	secs := dt.Seconds()
	for w, p := range s.powers {
		s.ticks[w] += p * s.TicksPerSecond * secs
	}
	left := (s.powers[wheels.FrontLeft] + s.powers[wheels.BackLeft]) / 2
	right := (s.powers[wheels.FrontRight] + s.powers[wheels.BackRight]) / 2
	s.heading = angle.FromFloat(s.heading + (left-right)*s.TurnRate*secs).Float()
	s.elapsed += dt
}

// Loop advances the simulation in real time until ctx is done.
func (s *Sim) Loop(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
		}
	}
}

func (s *Sim) Elapsed() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.elapsed
}

func (s *Sim) SetWheelPowers(powers wheels.Set[float64]) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.powers = powers
	s.writes = append(s.writes, PowerWrite{At: s.elapsed, Powers: powers})
	return nil
}

func (s *Sim) WheelPositions() (wheels.Set[int], error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.encoderErr != nil {
		return wheels.Set[int]{}, s.encoderErr
	}
	return wheels.Map(s.ticks, func(_ wheels.Wheel, t float64) int {
		return int(math.Round(t))
	}), nil
}

func (s *Sim) CurrentHeading() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.heading
}

func (s *Sim) SetHeading(deg float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.heading = angle.FromFloat(deg).Float()
}

func (s *Sim) Powers() wheels.Set[float64] {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.powers
}

// Writes returns a copy of every wheel power write so far.
func (s *Sim) Writes() []PowerWrite {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]PowerWrite(nil), s.writes...)
}

// FailWrites makes SetWheelPowers return err until called with nil.
func (s *Sim) FailWrites(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.writeErr = err
}

// FailEncoders makes WheelPositions return err until called with nil.
func (s *Sim) FailEncoders(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.encoderErr = err
}

func (s *Sim) setAccessory(name string, power float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accessories[name] = math.Max(-1, math.Min(1, power))
	return nil
}

// Accessory returns the last power set on the named accessory.
func (s *Sim) Accessory(name string) float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.accessories[name]
}

func (s *Sim) SetIntake(power float64) error   { return s.setAccessory("intake", power) }
func (s *Sim) SetConveyor(power float64) error { return s.setAccessory("conveyor", power) }
func (s *Sim) SetLauncher(power float64) error { return s.setAccessory("launcher", power) }
func (s *Sim) SetLift(power float64) error     { return s.setAccessory("lift", power) }
func (s *Sim) SetGrabber(power float64) error  { return s.setAccessory("grabber", power) }

func (s *Sim) Off() error {
	if err := s.SetWheelPowers(wheels.Set[float64]{}); err != nil {
		return err
	}
	return s.SetIntake(0)
}

func (s *Sim) SetRing(r rings.Reading) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ring = r
}

func (s *Sim) ReadRing() (rings.Reading, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ring, nil
}

func (s *Sim) PlaySound(name string) {
	s.log.Info().Str("sound", name).Msg("Playing sound")
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sounds = append(s.sounds, name)
}

func (s *Sim) Sounds() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.sounds...)
}
