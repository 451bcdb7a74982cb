package ringsensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	regs   map[byte][]byte
	writes map[byte][]byte
}

func newFakePort() *fakePort {
	return &fakePort{regs: map[byte][]byte{RegPartID: {partID}}, writes: map[byte][]byte{}}
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	copy(buf, f.regs[reg])
	return nil
}

func (f *fakePort) WriteReg(reg byte, buf []byte) error {
	f.writes[reg] = append([]byte(nil), buf...)
	return nil
}

func (f *fakePort) Close() error { return nil }

func TestConfigureEnablesSensor(t *testing.T) {
	fp := newFakePort()
	s := &Sensor{dev: fp}
	require.NoError(t, s.configure())
	assert.Equal(t, []byte{mainCtrlEnable}, fp.writes[RegMainCtrl])
}

func TestConfigureRejectsWrongPart(t *testing.T) {
	fp := newFakePort()
	fp.regs[RegPartID] = []byte{0x11}
	s := &Sensor{dev: fp}
	assert.Error(t, s.configure())
}

func TestReadRing(t *testing.T) {
	fp := newFakePort()
	fp.regs[RegGreen] = []byte{
		0x90, 0x01, 0x00, // green 400
		0x64, 0x00, 0x00, // blue 100
		0x84, 0x03, 0x01, // red 0x10384
	}
	fp.regs[RegPSData] = []byte{0x84, 0xfb} // only the low 3 bits of the high byte count
	s := &Sensor{dev: fp}

	r, err := s.ReadRing()
	require.NoError(t, err)
	assert.Equal(t, uint32(400), r.Green)
	assert.Equal(t, uint32(100), r.Blue)
	assert.Equal(t, uint32(0x10384), r.Red)
	assert.InDelta(t, 40.0, r.DistanceMM, 1e-9)
}

func TestDistanceMM(t *testing.T) {
	assert.Equal(t, 5.0, DistanceMM(2047))
	assert.Equal(t, 150.0, DistanceMM(0))
	assert.InDelta(t, 40.0, DistanceMM(900), 1e-9)
	assert.InDelta(t, 50.0, DistanceMM(700), 1e-9)
	assert.True(t, DistanceMM(1000) < DistanceMM(800))
}
