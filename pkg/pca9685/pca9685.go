// Package pca9685 drives the 16-channel PWM board that runs the accessory
// motor controllers and servos.
package pca9685

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.
	RegTestMode = 0xff

	NumPorts = 16

	PWMPeriod = 20 * time.Millisecond

	ServoMinPulseDuration = 1000 * time.Microsecond
	ServoMaxPulseDuration = 2000 * time.Microsecond

	PWMMax = 4095

	ServoMinPWM = float64(PWMMax * ServoMinPulseDuration / PWMPeriod)
	ServoMaxPWM = float64(PWMMax * ServoMaxPulseDuration / PWMPeriod)
)

var ErrBadPort = errors.New("PWM port out of range")

type Interface interface {
	Configure() error
	SetServo(port int, value float64) error
	SetThrottle(port int, value float64) error
	SetPWM(port int, value float64) error
	Close() error
}

type port interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev port
}

func New(deviceFile string, addr int) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open PWM board on %s", deviceFile)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

func (p *PCA9685) Configure() (err error) {
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return errors.Wrap(err, "failed to put PWM board to sleep")
	}
	// Update pre-scaler for 50Hz.
	err = p.dev.WriteReg(RegPreScale, []byte{0x79})
	if err != nil {
		return errors.Wrap(err, "failed to set PWM prescaler")
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return errors.Wrap(err, "failed to reset PWM board")
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return errors.Wrap(err, "failed to enable PWM board")
}

// SetServo sets a servo position; value is clamped to [0, 1].
func (p *PCA9685) SetServo(port int, value float64) error {
	value = clamp(value, 0, 1)
	return p.write(port, uint16(ServoMinPWM+value*(ServoMaxPWM-ServoMinPWM)))
}

// SetThrottle drives a bidirectional motor controller or continuous
// rotation servo; value is clamped to [-1, 1] with 0 at the 1.5ms neutral
// pulse.
func (p *PCA9685) SetThrottle(port int, value float64) error {
	return p.SetServo(port, (clamp(value, -1, 1)+1)/2)
}

func (p *PCA9685) SetPWM(port int, value float64) error {
	value = clamp(value, 0, 1)
	return p.write(port, uint16(PWMMax*value))
}

func (p *PCA9685) write(port int, pwmValue uint16) error {
	if port < 0 || port >= NumPorts {
		return errors.Wrapf(ErrBadPort, "port %d", port)
	}
	addr := RegLEDBase + port*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
