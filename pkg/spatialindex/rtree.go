package spatialindex

import (
	"errors"
	"math"

	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var ErrNoCandidates = errors.New("no edge candidates near location")

// EdgeSegment. a directed edge with the coordinates of both its nodes.
type EdgeSegment struct {
	Id    da.GraphId
	Start geo.Coordinate
	End   geo.Coordinate
}

type Rtree struct {
	tr   *rtree.RTreeG[EdgeSegment]
	size int
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[EdgeSegment]
	return &Rtree{
		tr: &tr,
	}
}

func (rt *Rtree) Len() int {
	return rt.size
}

// Build. index every edge of tiles with a bounding box padded by boundingBoxRadius (meters).
// Transition edges and edges without access in either direction are skipped.
func (rt *Rtree) Build(reader da.GraphReader, tiles []*da.Tile, boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("tiles", len(tiles)))
	for _, t := range tiles {
		for i := 0; i < t.NodeCount(); i++ {
			from := t.Node(uint32(i)).Coordinate()
			t.ForOutEdges(uint32(i), func(id da.GraphId, e *da.DirectedEdge) {
				if e.IsTransition() || e.ForwardAccess() == da.NO_ACCESS {
					return
				}
				endInfo, _ := da.GetNodeInfo(reader, e.EndNode())
				if endInfo == nil {
					return
				}
				to := endInfo.Coordinate()
				lowerFromLat, lowerFromLon := geo.GetDestinationPoint(from.Lat, from.Lon, 225, boundingBoxRadius)
				upperFromLat, upperFromLon := geo.GetDestinationPoint(from.Lat, from.Lon, 45, boundingBoxRadius)
				lowerToLat, lowerToLon := geo.GetDestinationPoint(to.Lat, to.Lon, 225, boundingBoxRadius)
				upperToLat, upperToLon := geo.GetDestinationPoint(to.Lat, to.Lon, 45, boundingBoxRadius)

				minLat := math.Min(lowerFromLat, lowerToLat)
				minLon := math.Min(lowerFromLon, lowerToLon)
				maxLat := math.Max(upperFromLat, upperToLat)
				maxLon := math.Max(upperFromLon, upperToLon)

				rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat},
					EdgeSegment{Id: id, Start: from, End: to})
				rt.size++
			})
		}
	}
	log.Info("R-tree spatial index built.", zap.Int("edges", rt.size))
}

// SearchWithinRadius returns the indexed edges whose boxes intersect the square of side 2*radius (meters)
// around the query point.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []EdgeSegment {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]EdgeSegment, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data EdgeSegment) bool {
			results = append(results, data)
			return true
		})
	return results
}

// Correlator snaps coordinates onto the edges of the index.
type Correlator struct {
	tree             *Rtree
	reader           da.GraphReader
	searchRadius     float64 // meters
	headingTolerance float64 // degrees
	maxCandidates    int
	// candidates at most this far behind the closest one are kept
	tieDistance float64
}

func NewCorrelator(tree *Rtree, reader da.GraphReader, searchRadius, headingTolerance float64,
	maxCandidates int) *Correlator {
	return &Correlator{
		tree:             tree,
		reader:           reader,
		searchRadius:     searchRadius,
		headingTolerance: headingTolerance,
		maxCandidates:    maxCandidates,
		tieDistance:      5,
	}
}

/*
Correlate. candidate edges of (lat, lon) within the search radius, closest first. allowed filters edges,
nil allows every edge. With a heading, edges whose direction differs by more than the heading tolerance
are dropped.
*/
func (c *Correlator) Correlate(lat, lon float64, heading *float64,
	allowed func(*da.DirectedEdge) bool) (da.Location, error) {
	loc := da.NewLocation(lat, lon)
	loc.Heading = heading

	candidates := make([]da.PathEdge, 0)
	for _, seg := range c.tree.SearchWithinRadius(lat, lon, c.searchRadius) {
		edge, _ := da.GetDirectedEdge(c.reader, seg.Id)
		if edge == nil || (allowed != nil && !allowed(edge)) {
			continue
		}
		if heading != nil && geo.HeadingDelta(*heading, edge.BeginHeading()) > c.headingTolerance {
			continue
		}
		projected, pct := geo.Project(seg.Start, seg.End, loc.Coordinate)
		dist := geo.DistanceMeters(loc.Coordinate, projected)
		if dist > c.searchRadius {
			continue
		}
		candidates = append(candidates, da.PathEdge{Id: seg.Id, PercentAlong: pct, Distance: dist, Projected: projected})
	}
	if len(candidates) == 0 {
		return loc, ErrNoCandidates
	}

	slices.SortStableFunc(candidates, func(a, b da.PathEdge) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	best := candidates[0].Distance
	for _, pe := range candidates {
		if pe.Distance > best+c.tieDistance || (c.maxCandidates > 0 && len(loc.Edges) >= c.maxCandidates) {
			break
		}
		loc.Edges = append(loc.Edges, pe)
	}
	return loc, nil
}
