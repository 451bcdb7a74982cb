package hardware

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeBattery struct {
	volts float64
	err   error
}

func (f fakeBattery) BattVolts() (float64, error) { return f.volts, f.err }

type fakeDisplay struct {
	volts   float64
	warning bool
	set     bool
}

func (f *fakeDisplay) SetBusVoltage(v float64) {
	f.volts = v
	f.set = true
}

func (f *fakeDisplay) SetWarning(w bool) { f.warning = w }

func TestPollPower(t *testing.T) {
	d := &fakeDisplay{}
	pollPower(fakeBattery{volts: 12.4}, nil, d, zerolog.Nop())
	assert.Equal(t, 12.4, d.volts)
	assert.False(t, d.warning)

	pollPower(fakeBattery{volts: 10.1}, nil, d, zerolog.Nop())
	assert.True(t, d.warning)

	d = &fakeDisplay{}
	pollPower(fakeBattery{err: errors.New("nak")}, nil, d, zerolog.Nop())
	assert.False(t, d.set)
}
