package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, events ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := New(encode(t,
		rawEvent{Time: 1000, Value: -32767, Type: uint8(EventTypeAxis) | eventTypeInit, Number: AxisLStickY},
		rawEvent{Time: 1250, Value: 1, Type: uint8(EventTypeButton), Number: ButtonR2},
	))

	first, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventTypeAxis, first.Type)
	assert.Equal(t, uint8(AxisLStickY), first.Number)
	assert.Equal(t, int16(-32767), first.Value)

	second, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventTypeButton, second.Type)
	assert.Equal(t, "button(7)=1", second.String())
	assert.Equal(t, 250*time.Millisecond, second.Time.Sub(first.Time))

	_, err = j.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLoopClosesChannelAtEOF(t *testing.T) {
	j := New(encode(t,
		rawEvent{Value: 100, Type: uint8(EventTypeAxis), Number: AxisRStickX},
	))
	events := make(chan *Event, 4)
	require.NoError(t, j.Loop(context.Background(), events, zerolog.Nop()))

	var got []*Event
	for e := range events {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.Equal(t, int16(100), got[0].Value)
}

func TestStateApply(t *testing.T) {
	var s State
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisLStickY, Value: -32767})
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisRStickX, Value: 16384})
	s.Apply(&Event{Type: EventTypeButton, Number: ButtonCross, Value: 1})
	s.Apply(&Event{Type: EventTypeAxis, Number: 42, Value: 5})

	assert.InDelta(t, -1.0, s.Axis(AxisLStickY), 1e-9)
	assert.InDelta(t, 0.5, s.Axis(AxisRStickX), 1e-4)
	assert.True(t, s.Buttons[ButtonCross])

	s.Apply(&Event{Type: EventTypeAxis, Number: AxisLStickY, Value: -32768})
	assert.Equal(t, -1.0, s.Axis(AxisLStickY))
}
