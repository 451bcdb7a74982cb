package picobldc

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/io/i2c"

	"github.com/15303/UltimateGoal/pkg/wheels"
)

const DefaultAddr = 0x42

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegMot0V
	RegMot1V
	RegMot2V
	RegMot3V

	// Free-running 16-bit encoder counters, one per motor channel.
	RegMot0Enc
	RegMot1Enc
	RegMot2Enc
	RegMot3Enc

	RegBattV // LSB=4mV
)

const BattVLSB = 0.004

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlDoCalib
	RegCtrlReset
	RegCtrlWatchdogEnable
)

// The board's motor channels are wired back-to-front relative to the
// drivetrain's wheel order.
var channelForWheel = wheels.Set[int]{
	wheels.FrontLeft:  2,
	wheels.FrontRight: 1,
	wheels.BackLeft:   3,
	wheels.BackRight:  0,
}

// Right-hand motors are mounted mirrored; positive power on the chassis
// means negative on those channels.
var directionForWheel = wheels.Set[float64]{1, -1, 1, -1}

const motorFullRange = 0x1000

type port interface {
	Write(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Close() error
}

// PicoBLDC drives the four wheel motors and reads their encoders over I2C.
// It is safe for concurrent use; the motion scheduler makes sure only one
// control loop writes powers at a time.
type PicoBLDC struct {
	lock sync.Mutex
	bus  string
	addr int
	dev  port
	log  zerolog.Logger

	lastConfigWord uint16
	lastConfigTime time.Time

	encoders *DistanceTracker
}

func New(bus string, addr int, log zerolog.Logger) (*PicoBLDC, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Pico-BLDC on %s@%#x", bus, addr)
	}
	p := &PicoBLDC{bus: bus, addr: addr, dev: dev, log: log.With().Str("component", "pico").Logger()}
	p.encoders = NewDistanceTracker(p)
	if err := p.encoders.Poll(); err != nil {
		_ = dev.Close()
		return nil, errors.Wrap(err, "Pico-BLDC not responding")
	}
	return p, nil
}

// SetWheelPowers writes one power in [-1, 1] per wheel.
func (p *PicoBLDC) SetWheelPowers(powers wheels.Set[float64]) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	enable := !powers.IsZero()
	if err := p.maybeConfigure(false, enable); err != nil {
		return err
	}
	for _, w := range wheels.All {
		v := ScaleMotorOutput(powers[w]*directionForWheel[w], motorFullRange)
		if err := p.writeReg(RegMot0V+Register(channelForWheel[w]), uint16(v)); err != nil {
			return err
		}
	}
	return nil
}

// WheelPositions returns the accumulated encoder ticks since start-up, in
// drivetrain order with forward positive.
func (p *PicoBLDC) WheelPositions() (wheels.Set[int], error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.encoders.Poll(); err != nil {
		return wheels.Set[int]{}, err
	}
	acc := p.encoders.Accumulated()
	return wheels.Map(acc, func(w wheels.Wheel, v int64) int {
		return int(v) * int(directionForWheel[w])
	}), nil
}

// RawDistancesTraveled reads the free-running counters, in drivetrain order.
func (p *PicoBLDC) RawDistancesTraveled() (raw wheels.Set[int16], err error) {
	for _, w := range wheels.All {
		v, err := p.readReg(RegMot0Enc + Register(channelForWheel[w]))
		if err != nil {
			return raw, err
		}
		raw[w] = int16(v)
	}
	return raw, nil
}

func (p *PicoBLDC) BattVolts() (float64, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	raw, err := p.readReg(RegBattV)
	if err != nil {
		return 0, err
	}
	return float64(raw) * BattVLSB, nil
}

func (p *PicoBLDC) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	_ = p.maybeConfigure(true, false)
	return p.dev.Close()
}

func (p *PicoBLDC) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	configWord := RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < 100*time.Millisecond {
		// Skip writing config if we've done it recently.
		return nil
	}
	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}
	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord &^ RegCtrlReset
	return nil
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	data := []byte{byte(reg), byte(value >> 8), byte(value)}
	var err error
	for tries := 0; tries < 5; tries++ {
		if err = p.dev.Write(data); err == nil {
			return nil
		}
		p.log.Warn().Err(err).Int("try", tries).Msg("Failed to write to Pico-BLDC")
		time.Sleep(time.Millisecond)
	}
	return errors.Wrapf(err, "failed to write Pico-BLDC register %d", reg)
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	if err := p.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, errors.Wrapf(err, "failed to read Pico-BLDC register %d", reg)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ScaleMotorOutput converts a power in [-1, 1] to the board's signed range,
// saturating at the int16 limits.
func ScaleMotorOutput(value, multiplier float64) int16 {
	multiplied := value * multiplier
	if multiplied <= math.MinInt16 {
		return math.MinInt16
	}
	if multiplied >= math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(multiplied)
}
