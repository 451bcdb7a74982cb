// Package joystick reads the Linux joystick API (/dev/input/jsN) for the
// gamepad used in teleop.
//
// Axis layout on the pad we drive with:
//
//	L stick  x = 0, y = 1 (up = -32767)
//	R stick  x = 3, y = 4 (up = -32767)
//	L2 = 2, R2 = 5 (unpressed = -32767)
//	D-pad    x = 6, y = 7 (up = -32767)
package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType uint8

const (
	EventTypeButton EventType = 1
	EventTypeAxis   EventType = 2

	// Set on the synthetic events the driver sends when the device opens.
	eventTypeInit = 0x80
)

const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10

	AxisLStickX = 0
	AxisLStickY = 1
	AxisL2      = 2
	AxisRStickX = 3
	AxisRStickY = 4
	AxisR2      = 5
	AxisDPadX   = 6
	AxisDPadY   = 7

	NumAxes    = 8
	NumButtons = 16

	// AxisMax is the magnitude of a fully deflected axis.
	AxisMax = 32767
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

// rawEvent is struct js_event from linux/joystick.h.
type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// Open opens a joystick device file.
func Open(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open joystick %s", device)
	}
	return New(f), nil
}

// New reads events from an already open stream.
func New(device io.ReadCloser) *Joystick {
	return &Joystick{device: device}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var raw rawEvent
	if err := binary.Read(j.device, binary.LittleEndian, &raw); err != nil {
		return nil, err
	}

	if j.wallclockEpoch.IsZero() {
		j.deviceEpoch = raw.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(raw.Time-j.deviceEpoch) * time.Millisecond),
		Value:  raw.Value,
		Type:   EventType(raw.Type &^ eventTypeInit),
		Number: raw.Number,
	}, nil
}

// Loop reads events into the channel until the context is done or a read
// fails.  The channel is closed on return.
func (j *Joystick) Loop(ctx context.Context, events chan<- *Event, log zerolog.Logger) error {
	defer close(events)
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "failed to read from joystick")
		}
		log.Debug().Stringer("event", event).Msg("Joy")
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

func (j *Joystick) Close() error {
	return j.device.Close()
}

// State is the latest value of every axis and button.
type State struct {
	Axes    [NumAxes]int16
	Buttons [NumButtons]bool
}

// Apply folds one event into the state.  Events for unknown axes or buttons
// are ignored.
func (s *State) Apply(e *Event) {
	switch e.Type {
	case EventTypeAxis:
		if int(e.Number) < len(s.Axes) {
			s.Axes[e.Number] = e.Value
		}
	case EventTypeButton:
		if int(e.Number) < len(s.Buttons) {
			s.Buttons[e.Number] = e.Value != 0
		}
	}
}

// Axis returns an axis scaled to [-1, 1].
func (s *State) Axis(n int) float64 {
	v := float64(s.Axes[n]) / AxisMax
	if v < -1 {
		return -1
	}
	return v
}
