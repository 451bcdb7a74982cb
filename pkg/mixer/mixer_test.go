package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/15303/UltimateGoal/pkg/wheels"
)

func TestMixNoCorrection(t *testing.T) {
	m := New(DefaultLeftTrim, 1)
	for _, linear := range []float64{-1, -0.5, 0, 0.3, 0.8, 1} {
		out := m.Mix(linear, 0)
		assert.InDelta(t, linear*0.9, out[wheels.FrontLeft], 1e-9)
		assert.InDelta(t, linear*0.9, out[wheels.BackLeft], 1e-9)
		assert.InDelta(t, linear, out[wheels.FrontRight], 1e-9)
		assert.InDelta(t, linear, out[wheels.BackRight], 1e-9)
	}
}

func TestMixTurnInPlaceIsAntisymmetric(t *testing.T) {
	m := New(1, 1)
	out := m.Mix(0, 0.25)
	assert.InDelta(t, -0.25, out[wheels.FrontLeft], 1e-9)
	assert.InDelta(t, -0.25, out[wheels.BackLeft], 1e-9)
	assert.InDelta(t, 0.25, out[wheels.FrontRight], 1e-9)
	assert.InDelta(t, 0.25, out[wheels.BackRight], 1e-9)
	assert.InDelta(t, 0, out[wheels.FrontLeft]+out[wheels.FrontRight], 1e-9)

	// With trim the magnitudes differ by the trim, signs stay opposite.
	trimmed := New(DefaultLeftTrim, 1).Mix(0, 0.5)
	assert.InDelta(t, -0.45, trimmed[wheels.FrontLeft], 1e-9)
	assert.InDelta(t, 0.5, trimmed[wheels.FrontRight], 1e-9)
}

func TestMixClips(t *testing.T) {
	m := New(1, 1)
	out := m.Mix(1, -0.5)
	assert.Equal(t, 1.0, out[wheels.FrontLeft])
	assert.InDelta(t, 0.5, out[wheels.FrontRight], 1e-9)

	out = m.Mix(-1, 0.5)
	assert.Equal(t, -1.0, out[wheels.FrontLeft])
}

func TestApply(t *testing.T) {
	m := New(0.5, 2)
	out := m.Apply(wheels.Set[float64]{0.4, 0.4, -0.4, -0.6})
	assert.Equal(t, wheels.Set[float64]{0.2, 0.8, -0.2, -1}, out)
}
