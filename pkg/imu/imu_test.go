package imu

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	regs map[byte][]byte
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	copy(buf, f.regs[reg])
	return nil
}

func (f *fakePort) WriteReg(reg byte, buf []byte) error {
	f.regs[reg] = append([]byte(nil), buf...)
	return nil
}

func TestReadFIFODecodesBigEndian(t *testing.T) {
	fp := &fakePort{regs: map[byte][]byte{
		RegFIFOCount: {0x00, 0x04},
		RegFIFORW:    {0x01, 0x00, 0xff, 0xfe},
	}}
	m := &IMU{dev: fp}
	samples, err := m.ReadFIFO()
	require.NoError(t, err)
	assert.Equal(t, []int16{256, -2}, samples)
}

func TestReadFIFOEmpty(t *testing.T) {
	m := &IMU{dev: &fakePort{regs: map[byte][]byte{}}}
	samples, err := m.ReadFIFO()
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestGyroIntegratesAndWraps(t *testing.T) {
	m := &IMU{dev: &fakePort{regs: map[byte][]byte{}}}
	g := NewGyro(m, zerolog.Nop())

	// One second at +90 deg/s.
	lsb := int16(90 / m.DegreesPerLSB())
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = lsb
	}
	g.Integrate(samples)
	assert.InDelta(t, 90.0, g.CurrentHeading(), 0.05)

	g.Integrate(samples)
	g.Integrate(samples)
	assert.InDelta(t, -90.0, g.CurrentHeading(), 0.1)
}
