package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"year first", "2024-01-05", "05-01-2024", true},
		{"slash day first", "05/01/2024", "05-01-2024", true},
		{"dash day first", "05-01-2024", "05-01-2024", true},
		{"unpadded", "5/1/2024", "05-01-2024", true},
		{"year first unpadded", "2024-1-5", "05-01-2024", true},
		{"with time", "2024-01-05 09:15:00", "05-01-2024", true},
		{"leading spaces", "  05-01-2024 14:00", "05-01-2024", true},
		{"month first read day first", "01/13/2024", "01-13-2024", true},
		{"two digit year kept", "5/1/24", "05-01-24", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"two parts", "05-01", "", false},
		{"four parts", "1/2/3/4", "", false},
		{"serial as text", "45296", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDateSerial(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
		ok   bool
	}{
		{"first day", 1, "01-01-1900", true},
		{"before leap bug", 59, "28-02-1900", true},
		{"fictitious leap day", 60, "29-02-1900", true},
		{"after leap bug", 61, "01-03-1900", true},
		{"modern date", 45296, "05-01-2024", true},
		{"with time of day", 45296.5, "05-01-2024", true},
		{"time rounds into next day", 45296.999999999, "06-01-2024", true},
		{"zero", 0, "", false},
		{"negative", -1, "", false},
		{"past year 9999", 3000000, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDateNil(t *testing.T) {
	_, ok := NormalizeDate(nil)
	assert.False(t, ok)
}

func TestNormalizeDateIsIdempotent(t *testing.T) {
	inputs := []any{
		"2024-01-05", "05/01/2024", "5-1-2024", "2024-12-31 23:59", "1/2/24",
		45296.0, 60.0, 1.0, 45296.75, "ab-cd-efgh",
	}

	for _, in := range inputs {
		once, ok := NormalizeDate(in)
		require.True(t, ok, "input %v", in)
		twice, ok := NormalizeDate(once)
		require.True(t, ok, "input %v", in)
		assert.Equal(t, once, twice, "input %v", in)
	}
}

func TestParseDay(t *testing.T) {
	want := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-01-05", "05-01-2024", "05/01/2024", " 2024-01-05 "} {
		got, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDay("January 5th")
	assert.Error(t, err)
}

func TestDateSelectionRange(t *testing.T) {
	sel := DateSelection{
		Mode:  ModeRange,
		Start: time.Date(2024, time.January, 30, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []string{"30-01-2024", "31-01-2024", "01-02-2024", "02-02-2024"}, sel.Expand())
}

func TestDateSelectionSingleDay(t *testing.T) {
	sel := DateSelection{Start: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, []string{"29-02-2024"}, sel.Expand())
}

func TestDateSelectionEmpty(t *testing.T) {
	assert.Empty(t, DateSelection{}.Expand())

	backwards := DateSelection{
		Start: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Empty(t, backwards.Expand())
}

func TestDateSelectionMultiple(t *testing.T) {
	sel := DateSelection{
		Dates: []time.Time{
			time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC),
		},
	}
	assert.Equal(t, []string{"08-03-2024", "05-01-2024"}, sel.Expand())
}

func TestPreconditions(t *testing.T) {
	day := DateSelection{Start: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)}

	_, err := Preconditions("", day)
	assert.ErrorIs(t, err, ErrNoDateColumn)

	_, err = Preconditions("Date/Time", DateSelection{})
	assert.ErrorIs(t, err, ErrNoDates)

	dates, err := Preconditions("Date/Time", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"05-01-2024"}, dates)
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection("", "2024-01-05", "07-01-2024", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"05-01-2024", "06-01-2024", "07-01-2024"}, sel.Expand())

	sel, err = ParseSelection("Multiple", "", "", []string{"2024-01-09", " ", "05/01/2024"})
	require.NoError(t, err)
	assert.Equal(t, ModeMultiple, sel.Mode)
	assert.Equal(t, []string{"09-01-2024", "05-01-2024"}, sel.Expand())

	_, err = ParseSelection("weekly", "", "", nil)
	assert.Error(t, err)

	_, err = ParseSelection("range", "2024-13-40", "", nil)
	assert.Error(t, err)
}

func TestParseDayRejectsYearsBefore1900(t *testing.T) {
	_, err := ParseDay("0001-01-01")
	assert.Error(t, err)

	_, err = ParseSelection("range", "0001-01-01", "", nil)
	assert.Error(t, err)
}

func TestSelectionSpanIsCapped(t *testing.T) {
	_, err := ParseSelection("range", "1900-01-01", "9999-12-31", nil)
	assert.ErrorIs(t, err, ErrTooManyDates)

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	atLimit := DateSelection{Start: start, End: start.AddDate(0, 0, MaxSelectedDays-1)}
	require.NoError(t, atLimit.Validate())
	assert.Len(t, atLimit.Expand(), MaxSelectedDays)

	overLimit := DateSelection{Start: start, End: start.AddDate(0, 0, MaxSelectedDays)}
	_, err = Preconditions("Date/Time", overLimit)
	assert.ErrorIs(t, err, ErrTooManyDates)

	many := make([]string, MaxSelectedDays+1)
	for i := range many {
		many[i] = "2024-01-05"
	}
	_, err = ParseSelection("multiple", "", "", many)
	assert.ErrorIs(t, err, ErrTooManyDates)
}
