package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"github.com/twpayne/go-polyline"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func (c Coordinate) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

const (
	earthRadiusMeters = 6371008.8
)

// DistanceMeters. great-circle distance in meters.
func DistanceMeters(a, b Coordinate) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * earthRadiusMeters
}

// Project projects p onto segment (a,b). returns the projected point and its fraction along the segment.
func Project(a, b, p Coordinate) (Coordinate, float64) {
	pa := s2.PointFromLatLng(a.latLng())
	pb := s2.PointFromLatLng(b.latLng())
	pp := s2.PointFromLatLng(p.latLng())

	proj := s2.Project(pp, pa, pb)
	ll := s2.LatLngFromPoint(proj)
	projected := NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())

	segLen := DistanceMeters(a, b)
	if segLen <= 0 {
		return projected, 0
	}
	return projected, util.Clamp(DistanceMeters(a, projected)/segLen, 0.0, 1.0)
}

// Interpolate returns the point at fraction t along segment (a,b).
func Interpolate(a, b Coordinate, t float64) Coordinate {
	pa := s2.PointFromLatLng(a.latLng())
	pb := s2.PointFromLatLng(b.latLng())
	ll := s2.LatLngFromPoint(s2.Interpolate(t, pa, pb))
	return NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

/*
BearingTo. initial bearing in degrees [0,360) for segment (p1,p2).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1, p2 Coordinate) float64 {
	dLon := util.DegreeToRadians(p2.Lon - p1.Lon)

	lat1 := util.DegreeToRadians(p1.Lat)
	lat2 := util.DegreeToRadians(p2.Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)
}

// HeadingDelta. absolute difference between two headings, in [0,180].
func HeadingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// GetDestinationPoint returns the point reached from (lat1,lon1) after dist meters on the given bearing.
func GetDestinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {
	dr := dist / earthRadiusMeters

	bearing = util.DegreeToRadians(bearing)
	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dr) + math.Cos(lat1)*math.Sin(dr)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(math.Sin(bearing)*math.Sin(dr)*math.Cos(lat1), math.Cos(dr)-math.Sin(lat1)*math.Sin(lat2))

	return util.RadiansToDegree(lat2), normalizeLongitude(util.RadiansToDegree(lon2))
}

func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}

// EncodePolyline encodes coords with precision 5.
func EncodePolyline(coords []Coordinate) string {
	pts := make([][]float64, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(pts))
}

func DecodePolyline(s string) ([]Coordinate, error) {
	pts, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, 0, len(pts))
	for _, p := range pts {
		coords = append(coords, NewCoordinate(p[0], p[1]))
	}
	return coords, nil
}
