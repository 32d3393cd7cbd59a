package datastructure

import (
	"github.com/lintang-b-s/tiledroute/pkg/geo"
)

// PathEdge. one correlation of a location onto a directed edge.
type PathEdge struct {
	Id           GraphId
	PercentAlong float64 // [0,1] from the start of the edge
	Distance     float64 // meters between the location and its projection
	Projected    geo.Coordinate
}

// Location. a request endpoint plus its candidate edges.
type Location struct {
	Coordinate geo.Coordinate
	Heading    *float64
	// DateTime is seconds after midnight, negative when unset.
	DateTime float64
	Edges    []PathEdge
}

func NewLocation(lat, lon float64) Location {
	return Location{Coordinate: geo.NewCoordinate(lat, lon), DateTime: -1}
}

func (l Location) HasEdge(id GraphId) bool {
	for _, e := range l.Edges {
		if e.Id == id {
			return true
		}
	}
	return false
}
