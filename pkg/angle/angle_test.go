package angle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFloat(t *testing.T) {
	expectWrapped(t, 0, 0)
	expectWrapped(t, 179, 179)
	expectWrapped(t, -179, -179)
	expectWrapped(t, 180, 180)
	expectWrapped(t, -180, 180)
	expectWrapped(t, 360, 0)
	expectWrapped(t, 361, 1)
	expectWrapped(t, 359, -1)
	expectWrapped(t, 720+180, 180)
	expectWrapped(t, -540, 180)
	expectWrapped(t, -181, 179)
}

func expectWrapped(t *testing.T, in, expected float64) {
	t.Helper()
	got := FromFloat(in).Float()
	assert.InDelta(t, expected, got, 1e-9, "FromFloat(%v)", in)
	assert.True(t, got > -180 && got <= 180, "FromFloat(%v) = %v out of range", in, got)
}

func TestError(t *testing.T) {
	assert.InDelta(t, 0.0, Error(30, 30), 1e-9)
	assert.InDelta(t, 10.0, Error(40, 30), 1e-9)
	assert.InDelta(t, -10.0, Error(20, 30), 1e-9)
	assert.InDelta(t, -2.0, Error(179, -179), 1e-9)
	assert.InDelta(t, 2.0, Error(-179, 179), 1e-9)
	assert.InDelta(t, 15.0, Error(-30, -45), 1e-9)
}

func TestArithmeticWraps(t *testing.T) {
	assert.InDelta(t, -170.0, FromFloat(170).AddFloat(20).Float(), 1e-9)
	assert.InDelta(t, 170.0, FromFloat(-170).Sub(FromFloat(20)).Float(), 1e-9)
	assert.InDelta(t, 0.0, FromFloat(90).Add(FromFloat(-90)).Float(), 1e-9)
}
