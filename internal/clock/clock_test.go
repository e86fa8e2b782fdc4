package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfMonth(t *testing.T) {
	at := time.Date(2026, time.March, 17, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(at))
}

func TestEndOfDay(t *testing.T) {
	at := time.Date(2026, time.March, 17, 1, 0, 0, 0, time.UTC)
	end := EndOfDay(at)
	assert.Equal(t, 17, end.Day())
	assert.True(t, end.Add(time.Nanosecond).Equal(time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC)))
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(2 * time.Hour)
	assert.Equal(t, time.February, c.Now().Month())

	var _ Clock = c
	var _ Clock = New()
}
