package routing

import (
	"context"
	"math"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"go.uber.org/zap"
)

const (
	ASTAR         = "astar"
	BIDIRECTIONAL = "bidirectional_astar"
	MULTIMODAL    = "multimodal"
)

// PathInfo. one edge of a computed path with the cumulative elapsed time and cost at its end.
type PathInfo struct {
	Mode        da.TravelMode
	ElapsedTime float64
	Cost        float64
	EdgeId      da.GraphId
	TripId      uint32
}

// ModeCostings maps a travel mode to the costing used while traveling in it.
type ModeCostings map[da.TravelMode]*costing.Costing

/*
Capabilities. what an algorithm declares to the retry policy.
RelaxFactor and ExpansionWithinFactor are applied to the hierarchy limits before the relaxed pass.
*/
type Capabilities struct {
	RelaxFactor                float64
	ExpansionWithinFactor      float64
	SupportsDisableTransitions bool
}

type Stats struct {
	Iterations          int
	Labels              int
	ScheduleUnavailable int
	// Interrupted is set when the deadline or the iteration budget ended the pass.
	Interrupted bool
}

type PathAlgorithm interface {
	Name() string
	// GetBestPath returns the path from origin to destination, or nil when the pass found none.
	GetBestPath(ctx context.Context, origin, destination *da.Location, reader da.GraphReader,
		costings ModeCostings, mode da.TravelMode) []PathInfo
	// Clear drops every label and queued entry. It must run between passes.
	Clear()
	Capabilities() Capabilities
	Stats() Stats
}

type Direction uint8

const (
	FORWARD Direction = iota
	REVERSE
)

// Expansion is reported for every settled label.
type Expansion struct {
	Direction Direction
	EdgeId    da.GraphId
	PredEdge  da.GraphId
	Cost      float64
	SortCost  float64
}

type ExpansionCallback func(Expansion)

type Options struct {
	Adjacency     da.AdjacencyOptions
	MaxIterations int // zero means no budget
}

func DefaultOptions() Options {
	return Options{Adjacency: da.DefaultAdjacencyOptions()}
}

// target is the point a heuristic measures towards. slack is the largest correlation distance of the
// location, subtracted so the estimate stays a lower bound towards every candidate edge.
type target struct {
	ll    geo.Coordinate
	slack float64
}

func newTarget(loc *da.Location) target {
	t := target{ll: loc.Coordinate}
	for _, e := range loc.Edges {
		t.slack = math.Max(t.slack, e.Distance)
	}
	return t
}

func (t target) distance(c geo.Coordinate) float64 {
	return math.Max(0, geo.DistanceMeters(c, t.ll)-t.slack)
}

// searchState. labels, edge status and adjacency list of one search direction.
type searchState struct {
	labels     *da.EdgeLabelStore
	edgeStatus *da.EdgeStatus
	adjacency  da.AdjacencyList
}

func newSearchState() searchState {
	return searchState{
		labels:     da.NewEdgeLabelStore(1024),
		edgeStatus: da.NewEdgeStatus(),
	}
}

func (s *searchState) init(opts da.AdjacencyOptions, minCost float64) {
	s.adjacency = da.NewAdjacencyList(opts, minCost, s.labels.SortCost)
}

func (s *searchState) clear() {
	s.labels.Clear()
	s.edgeStatus.Clear()
	if s.adjacency != nil {
		s.adjacency.Clear()
		s.adjacency = nil
	}
}

// add labels an edge and queues it. tile is the tile holding the edge, nil skips the edge status.
func (s *searchState) add(l da.EdgeLabel, tile *da.Tile) uint32 {
	idx := s.labels.Add(l)
	if tile != nil {
		s.edgeStatus.Set(l.EdgeId, da.Temporary, idx, tile)
	}
	return idx
}

// improve lowers the cost of a queued label. Returns false if the label is not improved.
func (s *searchState) improve(idx, predIdx uint32, cost, secs float64, ec, tc costing.Cost, pathDist float64) bool {
	l := s.labels.Get(idx)
	if cost >= l.Cost {
		return false
	}
	sortCost := l.SortCost - (l.Cost - cost)
	s.adjacency.Decrease(idx, sortCost)
	l.Update(predIdx, cost, secs, sortCost, ec.Cost, ec.Secs, tc.Cost, tc.Secs, pathDist)
	return true
}

// pop settles the next label. The returned label is a copy.
func (s *searchState) pop() (da.EdgeLabel, uint32, bool) {
	idx, ok := s.adjacency.Pop()
	if !ok {
		return da.EdgeLabel{}, da.InvalidLabel, false
	}
	l := *s.labels.Get(idx)
	if st := s.edgeStatus.Get(l.EdgeId); st.Set == da.Temporary && st.LabelIdx == idx {
		s.edgeStatus.Update(l.EdgeId, da.Permanent)
	}
	return l, idx, true
}

// formPath follows predecessors from idx back to an origin label.
func (s *searchState) formPath(idx uint32) []PathInfo {
	path := make([]PathInfo, 0)
	for idx != da.InvalidLabel {
		l := s.labels.Get(idx)
		path = append(path, PathInfo{
			Mode:        l.Mode,
			ElapsedTime: l.Secs,
			Cost:        l.Cost,
			EdgeId:      l.EdgeId,
			TripId:      l.TripId,
		})
		idx = l.PredIdx
	}
	return util.ReverseG(path)
}

// interrupted polls the deadline and the iteration budget.
func interrupted(ctx context.Context, stats *Stats, maxIterations int) bool {
	if maxIterations > 0 && stats.Iterations >= maxIterations {
		stats.Interrupted = true
		return true
	}
	if util.StopConcurrentOperation(ctx) {
		stats.Interrupted = true
		return true
	}
	return false
}

func levelLimits(limits []da.HierarchyLimits, id da.GraphId) *da.HierarchyLimits {
	level := int(id.Level())
	if level >= len(limits) {
		return nil
	}
	return &limits[level]
}

func logInterrupted(log *zap.Logger, name string, stats Stats) {
	if log == nil || !stats.Interrupted {
		return
	}
	log.Debug("search interrupted", zap.String("algorithm", name), zap.Int("iterations", stats.Iterations))
}
