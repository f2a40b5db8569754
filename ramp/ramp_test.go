package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformTarget(t *testing.T) {
	for _, tc := range []struct {
		speed uint8
		want  uint16
	}{
		{1, 8065},
		{2, 5444},
		{3, 2823},
		{4, MinCompare},
		{10, MinCompare},
		{0, 10686},
	} {
		assert.Equal(t, tc.want, PlatformTarget(tc.speed), "speed %d", tc.speed)
	}
}

func TestTiltPeriod(t *testing.T) {
	for _, tc := range []struct {
		speed uint8
		want  int16
	}{
		{1, 158},
		{5, 94},
		{10, 15},
		{11, 0},
		// Truncates toward zero like the board does.
		{12, -15},
	} {
		assert.Equal(t, tc.want, TiltPeriod(tc.speed), "speed %d", tc.speed)
	}
}

func TestRampMonotonicAndFloored(t *testing.T) {
	for speed := uint8(1); speed <= 6; speed++ {
		r := New()
		r.Reset(speed)
		require.Equal(t, uint16(StartCompare), r.Compare())
		prev := r.Compare()
		for i := 0; i < 1000; i++ {
			c, _ := r.Tick()
			require.LessOrEqual(t, c, prev, "speed %d tick %d", speed, i)
			require.GreaterOrEqual(t, c, uint16(MinCompare), "speed %d tick %d", speed, i)
			prev = c
		}
		// Target reached, possibly passed by less than a step.
		assert.LessOrEqual(t, prev, r.Target())
		assert.Greater(t, prev+Step, r.Target())
	}
}

func TestRampSlowSpeedDoesNotChange(t *testing.T) {
	r := New()
	r.Reset(1)
	c, changed := r.Tick()
	assert.False(t, changed)
	assert.Equal(t, uint16(StartCompare), c)
}

func TestRampFirstTicks(t *testing.T) {
	r := New()
	r.Reset(4)
	c, changed := r.Tick()
	assert.True(t, changed)
	assert.Equal(t, uint16(8045), c)
	c, _ = r.Tick()
	assert.Equal(t, uint16(8025), c)
}

func TestRampStopsAtFloor(t *testing.T) {
	r := New()
	r.Reset(4)
	for i := 0; i < 400; i++ {
		r.Tick()
	}
	assert.Equal(t, uint16(MinCompare), r.Compare())
}
