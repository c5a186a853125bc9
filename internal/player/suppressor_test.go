package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressorWindow(t *testing.T) {
	clock := newManualClock()
	s := NewSuppressor(clock.Now)
	assert.False(t, s.Active())
	assert.True(t, s.Until().IsZero())

	s.Suppress(time.Second)
	assert.True(t, s.Active())
	assert.Equal(t, clock.Now().Add(time.Second), s.Until())

	clock.Advance(time.Second)
	assert.False(t, s.Active())
}

func TestSuppressorKeepsLatestExpiry(t *testing.T) {
	clock := newManualClock()
	s := NewSuppressor(clock.Now)

	s.Suppress(time.Second)
	clock.Advance(100 * time.Millisecond)
	s.Suppress(500 * time.Millisecond)
	clock.Advance(700 * time.Millisecond)
	assert.True(t, s.Active(), "shorter window must not cut the longer one")

	clock.Advance(300 * time.Millisecond)
	assert.False(t, s.Active())

	s.Suppress(time.Second)
	s.Reset()
	assert.False(t, s.Active())
}

func TestSuppressorActiveAt(t *testing.T) {
	clock := newManualClock()
	s := NewSuppressor(clock.Now)
	start := clock.Now()

	s.Suppress(500 * time.Millisecond)
	clock.Advance(time.Second)

	assert.False(t, s.Active())
	assert.True(t, s.ActiveAt(start.Add(400*time.Millisecond)))
	assert.False(t, s.ActiveAt(start.Add(500*time.Millisecond)))
}
