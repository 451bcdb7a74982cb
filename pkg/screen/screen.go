// Package screen renders the driver-station status panel onto the 128x128
// RGB565 framebuffer on the robot.
package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"
)

const (
	S          = 128
	lineHeight = 12
	maxLines   = 8
)

// Screen holds the latest status lines and battery voltage.  Loop pushes
// them to the framebuffer.
type Screen struct {
	device string
	log    zerolog.Logger

	lock       sync.Mutex
	lines      map[string]string
	busVoltage float64
	warning    bool
}

func New(device string, log zerolog.Logger) *Screen {
	return &Screen{
		device: device,
		log:    log.With().Str("component", "screen").Logger(),
		lines:  map[string]string{},
	}
}

func (s *Screen) SetLine(key, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lines[key] = value
}

func (s *Screen) SetBusVoltage(v float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.busVoltage = v
}

func (s *Screen) SetWarning(w bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.warning = w
}

// Snapshot returns the status lines sorted by key.
func (s *Screen) Snapshot() (lines []string, voltage float64, warning bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	keys := make([]string, 0, len(s.lines))
	for k := range s.lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+": "+s.lines[k])
	}
	return lines, s.busVoltage, s.warning
}

func (s *Screen) Render() image.Image {
	lines, voltage, warning := s.Snapshot()
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)
	for i, l := range lines {
		if i >= maxLines {
			break
		}
		dc.DrawString(l, 2, float64(lineHeight*(i+1)))
	}

	dc.Push()
	dc.Translate(96, 0)
	drawPowerBar(dc, voltage)
	dc.Pop()

	if warning {
		dc.Push()
		dc.Translate(110, 112)
		DrawWarning(dc)
		dc.Pop()
	}
	return dc.Image()
}

// Encode565 converts the image into the panel's rotated RGB565 layout.
func Encode565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			c := img.At(x, y)
			r, g, b, _ := c.RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+(x)*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+(x)*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func (s *Screen) Loop(ctx context.Context) {
	f, err := os.OpenFile(s.device, os.O_RDWR, 0666)
	if err != nil {
		s.log.Info().Err(err).Msg("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = writeFrame(f, make([]byte, S*S*2))
			return
		case <-ticker.C:
		}
		if err := writeFrame(f, Encode565(s.Render())); err != nil {
			s.log.Warn().Err(err).Msg("Screen failure")
			return
		}
	}
}

func writeFrame(f io.WriteSeeker, buf []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < S; i++ {
		if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

const (
	minCellVoltage = 3
	maxCellVoltage = 4.2
)

// ChargeFraction estimates the pack charge from its voltage, guessing the
// cell count from the voltage.
func ChargeFraction(voltage float64) float64 {
	var cellVoltage float64
	if voltage > 9 {
		// assume the 3-cell pack
		cellVoltage = voltage / 3
	} else {
		// assume the 2-cell pack
		cellVoltage = voltage / 2
	}
	return (cellVoltage - minCellVoltage) / (maxCellVoltage - minCellVoltage)
}

func drawPowerBar(dc *gg.Context, voltage float64) {
	charge := ChargeFraction(voltage)

	// Draw the larger power bar at the bottom. Colour depends on charge level.
	if charge < 0.1 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(0, 70, 30, 10)
	for n := 2; n < 13; n++ {
		if charge >= (float64(n) / 13) {
			dc.DrawRectangle(2, 75-float64(n)*5, 26, 3)
		}
	}
	dc.Fill()
	dc.DrawString(fmt.Sprintf("%.1fv", voltage), -2, 93)
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}
