package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayName(t *testing.T) {
	name, err := WeekdayName("2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", name)

	_, err = WeekdayName("11/03/2025")
	assert.Error(t, err)
}

func TestDayAllowed(t *testing.T) {
	days := []string{"Monday", "wednesday"}

	ok, err := DayAllowed("2025-03-10", days)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = DayAllowed("2025-03-11", days)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = DayAllowed("2025-03-12", days)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanonicalWeekdays(t *testing.T) {
	out, err := CanonicalWeekdays([]string{"fri", "Monday", "MONDAY", "wed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Wednesday", "Friday"}, out)

	_, err = CanonicalWeekdays([]string{"Funday"})
	assert.Error(t, err)
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	monday := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(monday))
}
