package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// meters in one degree of a great circle
const degreeMeters = 111195.08

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, degreeMeters, DistanceMeters(NewCoordinate(0, 0), NewCoordinate(1, 0)), 1)
	assert.InDelta(t, degreeMeters, DistanceMeters(NewCoordinate(0, 0), NewCoordinate(0, 1)), 1)
	assert.Equal(t, 0.0, DistanceMeters(NewCoordinate(-7.8, 110.4), NewCoordinate(-7.8, 110.4)))
}

func TestProject(t *testing.T) {
	a, b := NewCoordinate(0, 0), NewCoordinate(0, 0.01)

	tests := []struct {
		name    string
		p       Coordinate
		wantLon float64
		wantPct float64
	}{
		{"beside the middle", NewCoordinate(0.001, 0.005), 0.005, 0.5},
		{"on the start", a, 0, 0},
		{"past the end", NewCoordinate(0, 0.02), 0.01, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj, pct := Project(a, b, tt.p)
			assert.InDelta(t, 0, proj.Lat, 1e-6)
			assert.InDelta(t, tt.wantLon, proj.Lon, 1e-6)
			assert.InDelta(t, tt.wantPct, pct, 1e-4)
		})
	}

	// degenerate segment
	_, pct := Project(a, a, b)
	assert.Equal(t, 0.0, pct)
}

func TestInterpolate(t *testing.T) {
	mid := Interpolate(NewCoordinate(0, 0), NewCoordinate(0, 0.002), 0.5)
	assert.InDelta(t, 0, mid.Lat, 1e-9)
	assert.InDelta(t, 0.001, mid.Lon, 1e-9)
}

func TestBearingTo(t *testing.T) {
	o := NewCoordinate(0, 0)
	assert.InDelta(t, 0, BearingTo(o, NewCoordinate(1, 0)), 1e-9)
	assert.InDelta(t, 90, BearingTo(o, NewCoordinate(0, 1)), 1e-9)
	assert.InDelta(t, 180, BearingTo(o, NewCoordinate(-1, 0)), 1e-9)
	assert.InDelta(t, 270, BearingTo(o, NewCoordinate(0, -1)), 1e-9)
}

func TestHeadingDelta(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{350, 10, 20},
		{10, 350, 20},
		{90, 270, 180},
		{45, 45, 0},
		{0, 181, 179},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, HeadingDelta(tt.a, tt.b), 1e-9, "%v vs %v", tt.a, tt.b)
	}
}

func TestGetDestinationPoint(t *testing.T) {
	lat, lon := GetDestinationPoint(0, 0, 90, degreeMeters)
	assert.InDelta(t, 0, lat, 1e-6)
	assert.InDelta(t, 1, lon, 1e-6)

	// crosses the antimeridian
	lat, lon = GetDestinationPoint(0, 179.5, 90, degreeMeters)
	assert.InDelta(t, 0, lat, 1e-6)
	assert.InDelta(t, -179.5, lon, 1e-6)
}

func TestPolyline(t *testing.T) {
	coords := []Coordinate{NewCoordinate(-7.79, 110.36), NewCoordinate(-7.7905, 110.3612)}
	decoded, err := DecodePolyline(EncodePolyline(coords))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range coords {
		assert.InDelta(t, coords[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, coords[i].Lon, decoded[i].Lon, 1e-5)
	}

	_, err = DecodePolyline("\x7f")
	assert.Error(t, err)
}
