package handlers

import (
	"testing"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"/start", "start", []string{}, true},
		{"/book 3 2025-01-06 09:00 first visit", "book", []string{"3", "2025-01-06", "09:00", "first", "visit"}, true},
		{"/bookings@slotbook_bot 2025-01-06", "bookings", []string{"2025-01-06"}, true},
		{"/MyBookings", "mybookings", []string{}, true},
		{"  /help  ", "help", []string{}, true},
		{"hello", "", nil, false},
		{"", "", nil, false},
		{"/", "", nil, false},
		{"/@slotbook_bot", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			if tt.wantOK {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestParseCommand_BookDoesNotMatchBookings(t *testing.T) {
	name, _, ok := ParseCommand("/bookings")
	require.True(t, ok)
	assert.Equal(t, "bookings", name)
	assert.NotEqual(t, "book", name)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = ParseID("#7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"0", "-1", "abc", "", "1.5"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, model.ErrValidation, bad)
	}
}

func TestParseCatalogArgs(t *testing.T) {
	tests := []struct {
		args      []string
		wantPage  int
		wantQuery string
	}{
		{nil, 1, ""},
		{[]string{"2"}, 2, ""},
		{[]string{"3", "beard", "trim"}, 3, "beard trim"},
		{[]string{"маникюр"}, 1, "маникюр"},
		{[]string{"0", "spa"}, 1, "0 spa"},
		{[]string{"spa", "2"}, 1, "spa 2"},
	}

	for _, tt := range tests {
		page, query := ParseCatalogArgs(tt.args)
		assert.Equal(t, tt.wantPage, page, tt.args)
		assert.Equal(t, tt.wantQuery, query, tt.args)
	}
}

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	d, err := ParseDate("2025-01-06", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 6, 0, 0, 0, 0, loc).Equal(d))
	assert.Equal(t, loc, d.Location())

	d, err = ParseDate("06.01.2025", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 6, 0, 0, 0, 0, loc).Equal(d))

	_, err = ParseDate("2025-13-01", loc)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = ParseDate("tomorrow", loc)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in   string
		want []time.Weekday
	}{
		{"1,3,5", []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{"mon,wed", []time.Weekday{time.Monday, time.Wednesday}},
		{"пн,ср", []time.Weekday{time.Monday, time.Wednesday}},
		{"1-5", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{"пн-пт", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{"7", []time.Weekday{time.Sunday}},
		{"0,sun,7", []time.Weekday{time.Sunday}},
		{"5,1,1", []time.Weekday{time.Monday, time.Friday}},
		{"MON, Fri", []time.Weekday{time.Monday, time.Friday}},
		{"5-7", []time.Weekday{time.Sunday, time.Friday, time.Saturday}},
		{"сб-вс", []time.Weekday{time.Sunday, time.Saturday}},
		{"fri-sun", []time.Weekday{time.Sunday, time.Friday, time.Saturday}},
		{"0-2", []time.Weekday{time.Sunday, time.Monday, time.Tuesday}},
		{"1-7", []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekdays(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWeekdays_Invalid(t *testing.T) {
	for _, in := range []string{"", ",", "8", "-1", "monday", "5-1", "sat-fri", "mon-xyz"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseWeekdays(in)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("09:00", "24:00")
	require.NoError(t, err)
	assert.Equal(t, model.NewTimeOfDay(9, 0), start)
	assert.Equal(t, model.NewTimeOfDay(24, 0), end)

	_, _, err = parseTimeRange("9:00", "10:00")
	assert.ErrorIs(t, err, model.ErrValidation)
}
