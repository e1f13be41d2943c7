package dish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDayForHour(t *testing.T) {
	tests := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Dinner},
		{4, Dinner},
		{5, Breakfast},
		{10, Breakfast},
		{11, Lunch},
		{16, Lunch},
		{17, Dinner},
		{23, Dinner},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeOfDayForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestCurrentTimeOfDay(t *testing.T) {
	at := func(hour int) func() time.Time {
		return func() time.Time { return time.Date(2024, 3, 1, hour, 30, 0, 0, time.Local) }
	}
	assert.Equal(t, Breakfast, CurrentTimeOfDay(at(7)))
	assert.Equal(t, Lunch, CurrentTimeOfDay(at(13)))
	assert.Equal(t, Dinner, CurrentTimeOfDay(at(20)))
	assert.True(t, CurrentTimeOfDay(nil).Valid())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay(" lunch ")
	require.NoError(t, err)
	assert.Equal(t, Lunch, got)

	_, err = ParseTimeOfDay("brunch")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("")
	assert.Error(t, err)
}

func TestNewOutcome(t *testing.T) {
	ok := NewOutcome(&SuggestionResponse{DishName: "Poha"}, nil)
	assert.False(t, ok.Failed())
	assert.Equal(t, "Poha", ok.Suggestion.DishName)

	failed := NewOutcome(nil, newError(ServiceUnavailable, "generation service call failed", assert.AnError))
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Suggestion)
	assert.Equal(t, ServiceUnavailable, failed.Kind)
	assert.Contains(t, failed.Error, "Failed to get suggestion: generation service call failed")
}
