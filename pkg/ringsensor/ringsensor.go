// Package ringsensor reads the APDS-9151 colour and proximity sensor that
// looks down at the starter stack.
package ringsensor

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/15303/UltimateGoal/pkg/rings"
)

const (
	DefaultAddr = 0x52

	RegMainCtrl = 0x00
	RegPSRate   = 0x03
	RegLSGain   = 0x05
	RegPartID   = 0x06
	RegPSData   = 0x08 // 11 bits, 2 bytes
	RegIRData   = 0x0a // 18 bits, 3 bytes
	RegGreen    = 0x0d
	RegBlue     = 0x10
	RegRed      = 0x13

	// Proximity, light sensor and RGB mode enabled.
	mainCtrlEnable = 0x07

	partID = 0xc2
)

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type Sensor struct {
	lock sync.Mutex
	dev  port
}

func New(bus string, addr int) (*Sensor, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ring sensor on %s", bus)
	}
	s := &Sensor{dev: dev}
	if err := s.configure(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sensor) configure() error {
	var id [1]byte
	if err := s.dev.ReadReg(RegPartID, id[:]); err != nil {
		return errors.Wrap(err, "failed to read ring sensor part ID")
	}
	if id[0] != partID {
		return errors.Errorf("unexpected ring sensor part ID %#x", id[0])
	}
	if err := s.dev.WriteReg(RegMainCtrl, []byte{mainCtrlEnable}); err != nil {
		return errors.Wrap(err, "failed to enable ring sensor")
	}
	// 11-bit proximity at 100ms, gain 3.
	if err := s.dev.WriteReg(RegPSRate, []byte{0x5d}); err != nil {
		return errors.Wrap(err, "failed to set proximity rate")
	}
	return errors.Wrap(s.dev.WriteReg(RegLSGain, []byte{0x01}), "failed to set light gain")
}

// ReadRing takes one colour and proximity sample.
func (s *Sensor) ReadRing() (rings.Reading, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var buf [9]byte
	if err := s.dev.ReadReg(RegGreen, buf[:]); err != nil {
		return rings.Reading{}, errors.Wrap(err, "failed to read colour")
	}
	var ps [2]byte
	if err := s.dev.ReadReg(RegPSData, ps[:]); err != nil {
		return rings.Reading{}, errors.Wrap(err, "failed to read proximity")
	}
	return rings.Reading{
		Green:      read20(buf[0:3]),
		Blue:       read20(buf[3:6]),
		Red:        read20(buf[6:9]),
		DistanceMM: DistanceMM(uint16(ps[0]) | uint16(ps[1]&0x07)<<8),
	}, nil
}

func (s *Sensor) Close() error {
	return s.dev.Close()
}

func read20(b []byte) uint32 {
	return (uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16) & 0xfffff
}

type calPoint struct {
	counts uint16
	mm     float64
}

// Measured against a ring at increasing heights above the sensor.
var calibration = []calPoint{
	{2047, 5},
	{1400, 20},
	{900, 40},
	{500, 60},
	{260, 80},
	{120, 100},
	{40, 150},
}

// DistanceMM converts a raw proximity count into millimetres by
// interpolating the calibration table.  Counts rise as the target gets
// closer.
func DistanceMM(counts uint16) float64 {
	if counts >= calibration[0].counts {
		return calibration[0].mm
	}
	for i := 1; i < len(calibration); i++ {
		hi, lo := calibration[i-1], calibration[i]
		if counts >= lo.counts {
			frac := float64(counts-lo.counts) / float64(hi.counts-lo.counts)
			return lo.mm + frac*(hi.mm-lo.mm)
		}
	}
	return calibration[len(calibration)-1].mm
}
