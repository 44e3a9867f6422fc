package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.January, 10), d)
	assert.Equal(t, "2024-01-10", d.String())

	_, err = ParseDate("10/01/2024")
	assert.Error(t, err)
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2024, time.January, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-10", DateOf(instant.In(kolkata)).String())
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-05", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-06T00:00:00Z")))
	assert.Equal(t, "2024-03-06", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{NewDate(2024, 1, 10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-01-10"}`, string(b))

	var out struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-02-29"}`), &out))
	assert.Equal(t, NewDate(2024, 2, 29), out.D)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"09:30", NewClock(9, 30), false},
		{"09:30:15", NewClock(9, 30) + 15, false},
		{"17:00:00.000000", NewClock(17, 0), false},
		{"25:00", 0, true},
		{"nine", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockFormatting(t *testing.T) {
	c := NewClock(9, 5) + 7
	assert.Equal(t, "09:05", c.String())
	assert.Equal(t, "09:05:07", c.Long())

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "09:05:07", v)
}

func TestDateAt(t *testing.T) {
	at := NewDate(2024, 1, 10).At(NewClock(9, 30), time.UTC)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), at)
}

func TestDoctorCoversIsInclusive(t *testing.T) {
	d := &Doctor{ScheduleStart: NewClock(9, 0), ScheduleEnd: NewClock(17, 0)}
	assert.True(t, d.Covers(NewClock(9, 0)))
	assert.True(t, d.Covers(NewClock(17, 0)))
	assert.False(t, d.Covers(NewClock(8, 59)))
	assert.False(t, d.Covers(NewClock(17, 0)+1))
}
