package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = ParseClock("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, 840, m)

	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 1440, m)

	for _, raw := range []string{"", "9:30", "09:60", "24:01", "ab:cd", "10:00:30", "10", "-0:30", "+9:00", "09:+5", "09:30:-0", " 9:30"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseClockRange(t *testing.T) {
	r, err := ParseClockRange("10:00", "11:30")
	require.NoError(t, err)
	assert.Equal(t, "10:00-11:30", r.String())

	_, err = ParseClockRange("11:00", "11:00")
	assert.Error(t, err)
	_, err = ParseClockRange("12:00", "11:00")
	assert.Error(t, err)
}

func TestClockRangeOverlapAndContain(t *testing.T) {
	window := ClockRange{Start: 9 * 60, End: 12 * 60}
	slot := ClockRange{Start: 10 * 60, End: 11 * 60}

	assert.True(t, window.Contains(slot))
	assert.True(t, window.Overlaps(slot))
	assert.False(t, slot.Contains(window))
	assert.False(t, ClockRange{Start: 11 * 60, End: 12 * 60}.Overlaps(slot))
	assert.True(t, ClockRange{Start: 10*60 + 30, End: 12 * 60}.Overlaps(slot))
}

func TestNormalizeClock(t *testing.T) {
	out, err := NormalizeClock("08:15:00")
	require.NoError(t, err)
	assert.Equal(t, "08:15", out)
}
