// Package ina219 reads the current/voltage monitor on the accessory power
// rail.
package ina219

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x41

	RegConfig      = 0
	RegShuntV      = 1
	RegBusV        = 2
	RegPower       = 3
	RegCurrent     = 4
	RegCalibration = 5

	BusVoltageLSB = 0.004

	// Shunt fitted to the accessory rail.
	ShuntOhms  = 0.1
	MaxCurrent = 3.2
)

type Interface interface {
	Configure(shuntOhms float64, maxCurrent float64) error
	ReadBusVoltage() (float64, error)
	ReadCurrent() (float64, error)
	ReadPower() (float64, error)
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) (err error)
}

type INA219 struct {
	currentLSB float64
	dev        port
}

func NewI2C(deviceFile string, addr int) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open power sensor at %#x", addr)
	}
	return &INA219{
		dev: dev,
	}, nil
}

func (m *INA219) Configure(shuntOhms float64, maxCurrent float64) error {
	m.currentLSB = maxCurrent / (1 << 15)
	cval := CalculateCalibrationValue(m.currentLSB, shuntOhms)
	err := m.dev.WriteReg(RegCalibration, []byte{byte(cval >> 8), byte(cval)})
	return errors.Wrap(err, "failed to write power sensor calibration")
}

func (m *INA219) ReadBusVoltage() (float64, error) {
	raw, err := m.Read16(RegBusV)
	shifted := raw >> 3
	return float64(shifted) * BusVoltageLSB, err
}

func (m *INA219) ReadCurrent() (float64, error) {
	raw, err := m.Read16(RegCurrent)
	return float64(int16(raw)) * m.currentLSB, err
}

func (m *INA219) ReadPower() (float64, error) {
	raw, err := m.Read16(RegPower)
	return float64(raw) * m.currentLSB * 20, err
}

func (m *INA219) Read16(reg byte) (uint16, error) {
	var buf [2]byte
	err := m.dev.ReadReg(reg, buf[:])
	return uint16(buf[0])<<8 | uint16(buf[1]), errors.Wrapf(err, "failed to read register %d", reg)
}

func CalculateCalibrationValue(currentLSB float64, shuntOhms float64) int16 {
	return int16(0.04096 / (currentLSB * shuntOhms))
}
