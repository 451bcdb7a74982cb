package picobldc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/15303/UltimateGoal/pkg/wheels"
)

type scriptedCounters struct {
	readings []wheels.Set[int16]
}

func (s *scriptedCounters) RawDistancesTraveled() (wheels.Set[int16], error) {
	r := s.readings[0]
	s.readings = s.readings[1:]
	return r, nil
}

func TestDistanceTrackerAccumulates(t *testing.T) {
	src := &scriptedCounters{readings: []wheels.Set[int16]{
		{100, 100, 100, 100},
		{200, 150, 90, 100},
		{math.MaxInt16, 150, -10, 100},
		{math.MinInt16 + 9, 150, -10, 100},
	}}
	d := NewDistanceTracker(src)

	require.NoError(t, d.Poll())
	assert.Equal(t, wheels.Set[int64]{}, d.Accumulated(), "first poll only sets the baseline")

	require.NoError(t, d.Poll())
	assert.Equal(t, wheels.Set[int64]{100, 50, -10, 0}, d.Accumulated())

	require.NoError(t, d.Poll())
	require.NoError(t, d.Poll())
	assert.Equal(t, int64(100+(math.MaxInt16-200)+10), d.Accumulated()[wheels.FrontLeft], "counter wrap is carried")
	assert.Equal(t, int64(-110), d.Accumulated()[wheels.BackLeft])

	d.Zero()
	assert.Equal(t, wheels.Set[int64]{}, d.Accumulated())
}

func TestScaleMotorOutput(t *testing.T) {
	assert.Equal(t, int16(0), ScaleMotorOutput(0, motorFullRange))
	assert.Equal(t, int16(motorFullRange/2), ScaleMotorOutput(0.5, motorFullRange))
	assert.Equal(t, int16(-motorFullRange), ScaleMotorOutput(-1, motorFullRange))
	assert.Equal(t, int16(math.MaxInt16), ScaleMotorOutput(100, motorFullRange))
	assert.Equal(t, int16(math.MinInt16), ScaleMotorOutput(-100, motorFullRange))
}

type fakePort struct {
	regs   map[byte]uint16
	writes [][]byte
}

func (f *fakePort) Write(buf []byte) error {
	f.writes = append(f.writes, append([]byte(nil), buf...))
	f.regs[buf[0]] = uint16(buf[1])<<8 | uint16(buf[2])
	return nil
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	v := f.regs[reg]
	buf[0], buf[1] = byte(v>>8), byte(v)
	return nil
}

func (f *fakePort) Close() error { return nil }

func newTestPico() (*PicoBLDC, *fakePort) {
	fp := &fakePort{regs: map[byte]uint16{}}
	p := &PicoBLDC{dev: fp}
	p.encoders = NewDistanceTracker(p)
	return p, fp
}

func TestSetWheelPowersMapsChannels(t *testing.T) {
	p, fp := newTestPico()
	require.NoError(t, p.SetWheelPowers(wheels.Set[float64]{0.5, 0.5, 0.25, 0.25}))

	assert.Equal(t, RegCtrlEnableI2CControl|RegCtrlRun, fp.regs[byte(RegCtrl)])
	assert.Equal(t, uint16(0x800), fp.regs[byte(RegMot2V)], "front-left")
	assert.Equal(t, uint16(0xf800), fp.regs[byte(RegMot1V)], "front-right is mirrored")
	assert.Equal(t, uint16(0x400), fp.regs[byte(RegMot3V)], "back-left")
	assert.Equal(t, uint16(0xfc00), fp.regs[byte(RegMot0V)], "back-right is mirrored")
}

func TestWheelPositionsFollowDirection(t *testing.T) {
	p, fp := newTestPico()
	_, err := p.WheelPositions()
	require.NoError(t, err)

	fp.regs[byte(RegMot2Enc)] = 750
	fp.regs[byte(RegMot1Enc)] = uint16(0x10000 - 750)
	fp.regs[byte(RegMot3Enc)] = 750
	fp.regs[byte(RegMot0Enc)] = uint16(0x10000 - 750)

	pos, err := p.WheelPositions()
	require.NoError(t, err)
	assert.Equal(t, wheels.Uniform(750), pos)
}
