package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("09:05")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 9, Minute: 5}, ct)
	assert.Equal(t, "09:05", ct.String())

	ct, err = ParseClockTime("7:30")
	require.NoError(t, err)
	assert.Equal(t, "07:30", ct.String())

	for _, bad := range []string{"", "24:00", "12:60", "12", "12:5", "ab:cd", "123:00"} {
		_, err := ParseClockTime(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestTimeParseErrorMatching(t *testing.T) {
	err := error(&TimeParseError{Input: "in 5x", Hint: TimeFormatHint, Err: ErrInvalidTimezone})
	assert.True(t, errors.Is(err, ErrTimeParse))
	assert.True(t, errors.Is(err, ErrInvalidTimezone))

	var tpe *TimeParseError
	require.ErrorAs(t, err, &tpe)
	assert.Equal(t, TimeFormatHint, tpe.Hint)
}

func TestUserSummaryTime(t *testing.T) {
	u := User{ChatID: 1}
	_, ok := u.SummaryTime()
	assert.False(t, ok)

	s := "09:00"
	u.DailySummaryTime = &s
	ct, ok := u.SummaryTime()
	require.True(t, ok)
	assert.Equal(t, ClockTime{Hour: 9}, ct)
}
