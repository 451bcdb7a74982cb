package screen

import (
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotSortsLines(t *testing.T) {
	s := New("/dev/null", zerolog.Nop())
	s.SetLine("stage", "settling")
	s.SetLine("error", "12")
	s.SetLine("stage", "done")

	lines, _, _ := s.Snapshot()
	assert.Equal(t, []string{"error: 12", "stage: done"}, lines)
}

func TestRenderSize(t *testing.T) {
	s := New("/dev/null", zerolog.Nop())
	s.SetBusVoltage(12.1)
	s.SetWarning(true)
	img := s.Render()
	assert.Equal(t, image.Rect(0, 0, S, S), img.Bounds())
}

func TestEncode565(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, S, S))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	buf := Encode565(img)
	assert.Len(t, buf, S*S*2)
	// Pixel (0,0) lands at the end of the first column in the rotated layout.
	assert.Equal(t, byte(0xf8), buf[(S-1)*2+1])
	assert.Equal(t, byte(0x00), buf[(S-1)*2])
}

func TestChargeFraction(t *testing.T) {
	assert.InDelta(t, 1.0, ChargeFraction(12.6), 1e-9)
	assert.InDelta(t, 0.0, ChargeFraction(6.0), 1e-9)
}
