package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDeparture(t *testing.T) {
	tt := NewTimetable()
	tt.Add(Departure{LineId: 1, TripId: 12, DepartureSecs: 900, ArrivalSecs: 1000})
	tt.Add(Departure{LineId: 1, TripId: 10, DepartureSecs: 300, ArrivalSecs: 400})
	tt.Add(Departure{LineId: 1, TripId: 11, DepartureSecs: 600, ArrivalSecs: 700})
	tt.Add(Departure{LineId: 2, TripId: 20, DepartureSecs: 100, ArrivalSecs: 200})

	tests := []struct {
		name   string
		line   uint32
		secs   float64
		wantOk bool
		trip   uint32
	}{
		{"before first", 1, 0, true, 10},
		{"exact departure", 1, 600, true, 11},
		{"between", 1, 601, true, 12},
		{"after last", 1, 901, false, 0},
		{"other line", 2, 50, true, 20},
		{"unknown line", 3, 0, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := tt.NextDeparture(tc.line, tc.secs)
			assert.Equal(t, tc.wantOk, ok)
			if ok {
				assert.Equal(t, tc.trip, d.TripId)
			}
		})
	}
}

func TestTripDeparture(t *testing.T) {
	tt := NewTimetable()
	tt.Add(Departure{LineId: 1, TripId: 10, DepartureSecs: 300, ArrivalSecs: 400})
	tt.Add(Departure{LineId: 1, TripId: 11, DepartureSecs: 300, ArrivalSecs: 420})
	tt.Add(Departure{LineId: 1, TripId: 10, DepartureSecs: 1300, ArrivalSecs: 1400})

	d, ok := tt.TripDeparture(1, 11, 300)
	require.True(t, ok)
	assert.Equal(t, 120.0, d.RideSecs())

	d, ok = tt.TripDeparture(1, 10, 301)
	require.True(t, ok)
	assert.Equal(t, 1300.0, d.DepartureSecs)

	_, ok = tt.TripDeparture(1, 11, 301)
	assert.False(t, ok)
}

func TestReadCSV(t *testing.T) {
	data := "line_id,trip_id,departure_secs,arrival_secs\n7,1,3600,3900\n7,2,7200,7500\n"
	tt, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, tt.LineCount())

	d, ok := tt.NextDeparture(7, 3601)
	require.True(t, ok)
	assert.Equal(t, uint32(2), d.TripId)

	_, err = ReadCSV(strings.NewReader("7,1,3900,3600\n"))
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = ReadCSV(strings.NewReader("7,x,3600,3900\n"))
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
