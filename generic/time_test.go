package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
)

func d(y int, m time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(y, m, day)
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		from   generic.TimePoint
		months int
		want   generic.TimePoint
	}{
		{d(2023, time.August, 31), 6, d(2024, time.February, 29)},
		{d(2022, time.August, 31), 6, d(2023, time.February, 28)},
		{d(2023, time.January, 15), 6, d(2023, time.July, 15)},
		{d(2023, time.January, 31), 1, d(2023, time.February, 28)},
		{d(2023, time.December, 15), 1, d(2024, time.January, 15)},
		{d(2024, time.March, 31), -1, d(2024, time.February, 29)},
		{d(2024, time.January, 10), -2, d(2023, time.November, 10)},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, tt.from.AddMonths(tt.months), "%s + %d months", tt.from, tt.months)
	}
}

func TestAddYears_LeapDay(t *testing.T) {
	assert.Equal(t, d(2025, time.February, 28), d(2024, time.February, 29).AddYears(1))
	assert.Equal(t, d(2028, time.February, 29), d(2024, time.February, 29).AddYears(4))
}

func TestDaysInclusive(t *testing.T) {
	assert.Equal(t, 1, generic.DaysInclusive(d(2024, time.May, 1), d(2024, time.May, 1)))
	assert.Equal(t, 184, generic.DaysInclusive(d(2023, time.July, 1), d(2023, time.December, 31)))
	assert.Equal(t, 366, generic.DaysInclusive(d(2024, time.January, 1), d(2024, time.December, 31)))
	assert.Equal(t, 0, generic.DaysInclusive(d(2024, time.May, 2), d(2024, time.May, 1)))
}

func TestCompletedYears(t *testing.T) {
	hire := d(2020, time.March, 10)
	assert.Equal(t, 0, generic.CompletedYears(hire, d(2021, time.March, 9)))
	assert.Equal(t, 1, generic.CompletedYears(hire, d(2021, time.March, 10)))
	assert.Equal(t, 4, generic.CompletedYears(hire, d(2024, time.December, 31)))
	assert.Equal(t, 0, generic.CompletedYears(hire, d(2019, time.January, 1)))
}

func TestDateOf_UsesTimestampLocation(t *testing.T) {
	taipei := time.FixedZone("UTC+8", 8*3600)
	assert.Equal(t, d(2024, time.February, 1), generic.DateOf(time.Date(2024, time.February, 1, 23, 30, 0, 0, taipei)))
}

func TestParseDate_AndText(t *testing.T) {
	tp, err := generic.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", tp.String())

	_, err = generic.ParseDate("2023-02-29")
	assert.Error(t, err)

	var back generic.TimePoint
	require.NoError(t, back.UnmarshalText([]byte("2023-07-01")))
	assert.Equal(t, d(2023, time.July, 1), back)
}

func TestPeriod(t *testing.T) {
	p, err := generic.NewPeriod(d(2024, time.January, 15), d(2025, time.January, 14))
	require.NoError(t, err)
	assert.True(t, p.Contains(d(2024, time.January, 15)))
	assert.True(t, p.Contains(d(2025, time.January, 14)))
	assert.False(t, p.Contains(d(2025, time.January, 15)))
	assert.Equal(t, 366, p.Days())

	_, err = generic.NewPeriod(d(2024, time.January, 2), d(2024, time.January, 1))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestParseCalculationMode(t *testing.T) {
	m, err := generic.ParseCalculationMode("")
	require.NoError(t, err)
	assert.Equal(t, generic.ModeAnniversary, m)

	m, err = generic.ParseCalculationMode(" Calendar ")
	require.NoError(t, err)
	assert.Equal(t, generic.ModeCalendar, m)

	_, err = generic.ParseCalculationMode("fiscal")
	assert.ErrorIs(t, err, generic.ErrInvalidCalculationMode)
	assert.True(t, generic.IsClientError(err))
}
