package routing

import (
	"context"
	"math"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/schedule"
	"go.uber.org/zap"
)

/*
MultiModal. forward search that walks on streets and rides scheduled transit lines. Each label
carries its mode and trip; walking edges use the pedestrian costing, line edges are priced from the
next departure after the label's clock. A line edge without a departure inside the schedule horizon
is not labeled. The search never moves up to coarser hierarchy levels.
*/
type MultiModal struct {
	opts     Options
	log      *zap.Logger
	provider schedule.Provider

	reader     da.GraphReader
	costings   ModeCostings
	walking    *costing.Costing
	transit    *costing.Costing
	startMode  da.TravelMode
	startSecs  float64
	costPerMtr float64
	limits     []da.HierarchyLimits

	state        searchState
	destinations map[da.GraphId]float64
	target       target

	stats    Stats
	onExpand ExpansionCallback
}

func NewMultiModal(opts Options, provider schedule.Provider, log *zap.Logger) *MultiModal {
	if log == nil {
		log = zap.NewNop()
	}
	return &MultiModal{
		opts:         opts,
		log:          log,
		provider:     provider,
		state:        newSearchState(),
		destinations: make(map[da.GraphId]float64),
	}
}

func (m *MultiModal) Name() string { return MULTIMODAL }

func (m *MultiModal) Capabilities() Capabilities {
	return Capabilities{RelaxFactor: 1, ExpansionWithinFactor: 1}
}

func (m *MultiModal) Stats() Stats {
	s := m.stats
	s.Labels = m.state.labels.Len()
	return s
}

func (m *MultiModal) SetExpansionCallback(fn ExpansionCallback) {
	m.onExpand = fn
}

func (m *MultiModal) Clear() {
	m.state.clear()
	clear(m.destinations)
	m.stats = Stats{}
	m.reader = nil
	m.costings = nil
	m.walking, m.transit = nil, nil
	m.limits = nil
}

// heuristic uses the cheapest cost per meter of every mode the search may switch to.
func (m *MultiModal) heuristic(dist float64) float64 {
	return dist * m.costPerMtr
}

func (m *MultiModal) GetBestPath(ctx context.Context, origin, destination *da.Location, reader da.GraphReader,
	costings ModeCostings, mode da.TravelMode) []PathInfo {
	m.walking = costings[da.PEDESTRIAN]
	m.transit = costings[da.TRANSIT]
	if m.walking == nil || m.transit == nil || m.provider == nil {
		return nil
	}
	m.reader = reader
	m.costings = costings
	m.startMode = mode
	m.startSecs = math.Max(0, origin.DateTime)
	m.limits = m.walking.HierarchyLimits()
	m.target = newTarget(destination)
	m.costPerMtr = math.Inf(1)
	for _, c := range costings {
		if c != nil {
			m.costPerMtr = math.Min(m.costPerMtr, c.MinCostPerMeter())
		}
	}

	for _, pe := range destination.Edges {
		m.destinations[pe.Id] = pe.PercentAlong
	}
	seeds := m.seedOrigin(origin)
	if len(seeds) == 0 {
		return nil
	}
	m.state.init(m.opts.Adjacency, minSortCost(m.state.labels, seeds))
	for _, s := range seeds {
		m.state.adjacency.Add(s, m.state.labels.SortCost(s))
	}

	for {
		if interrupted(ctx, &m.stats, m.opts.MaxIterations) {
			logInterrupted(m.log, m.Name(), m.stats)
			return nil
		}
		pred, predIdx, ok := m.state.pop()
		if !ok {
			if m.stats.ScheduleUnavailable > 0 {
				m.log.Debug("no departure within the schedule horizon",
					zap.Int("pruned", m.stats.ScheduleUnavailable))
			}
			return nil
		}
		m.stats.Iterations++
		if m.onExpand != nil {
			prev := da.InvalidGraphId
			if pred.PredIdx != da.InvalidLabel {
				prev = m.state.labels.Get(pred.PredIdx).EdgeId
			}
			m.onExpand(Expansion{Direction: FORWARD, EdgeId: pred.EdgeId, PredEdge: prev, Cost: pred.Cost,
				SortCost: pred.SortCost})
		}
		if pred.Destination {
			return m.state.formPath(predIdx)
		}
		if lim := levelLimits(m.limits, pred.EndNode); lim != nil && lim.StopExpanding(pred.Distance) {
			continue
		}
		m.expand(pred.EndNode, &pred, predIdx, false)
	}
}

func (m *MultiModal) seedOrigin(origin *da.Location) []uint32 {
	seeds := make([]uint32, 0, len(origin.Edges))
	for _, pe := range origin.Edges {
		edge, tile := da.GetDirectedEdge(m.reader, pe.Id)
		if edge == nil || !m.walking.Allowed(edge) {
			continue
		}
		endInfo, _ := da.GetNodeInfo(m.reader, edge.EndNode())
		if endInfo == nil {
			continue
		}
		ec := m.walking.EdgeCost(edge)
		if pd, ok := m.destinations[pe.Id]; ok && pd >= pe.PercentAlong {
			cost := ec.Scale(pd - pe.PercentAlong)
			seeds = append(seeds, m.state.add(da.EdgeLabel{
				EdgeId: pe.Id, EndNode: edge.EndNode(), PredIdx: da.InvalidLabel,
				Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost, EdgeCost: cost.Cost, EdgeSecs: cost.Secs,
				PathDistance: edge.Length() * (pd - pe.PercentAlong), Mode: m.startMode,
				Origin: true, Destination: true,
			}, tile))
			continue
		}
		cost := ec.Scale(1 - pe.PercentAlong)
		dist := m.target.distance(endInfo.Coordinate())
		l := da.EdgeLabel{
			EdgeId: pe.Id, EndNode: edge.EndNode(), PredIdx: da.InvalidLabel,
			Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost + m.heuristic(dist),
			EdgeCost: cost.Cost, EdgeSecs: cost.Secs, Distance: dist,
			PathDistance: edge.Length() * (1 - pe.PercentAlong), Mode: m.startMode, Origin: true,
		}
		if _, ok := m.destinations[pe.Id]; ok {
			seeds = append(seeds, m.state.add(l, nil))
			continue
		}
		seeds = append(seeds, m.state.add(l, tile))
	}
	return seeds
}

// ride prices a line edge from the label's clock. ok is false when no departure fits the horizon.
func (m *MultiModal) ride(pred *da.EdgeLabel, edge *da.DirectedEdge) (wait, ride costing.Cost, tripId uint32,
	ok bool) {
	clock := m.startSecs + pred.Secs
	var dep schedule.Departure
	found := false
	if pred.Mode == da.TRANSIT && pred.TripId != 0 {
		dep, found = m.provider.TripDeparture(edge.LineId(), pred.TripId, clock)
	}
	if !found {
		dep, found = m.provider.NextDeparture(edge.LineId(), clock)
	}
	if !found || dep.DepartureSecs-clock > m.transit.ScheduleHorizon() {
		return costing.Cost{}, costing.Cost{}, 0, false
	}
	transfer := pred.Mode == da.TRANSIT && pred.TripId != 0 && dep.TripId != pred.TripId
	wait = m.transit.TransitCost(dep.DepartureSecs-clock, 0, transfer, edge.Use())
	ride = m.transit.TransitCost(0, dep.RideSecs(), false, edge.Use())
	return wait, ride, dep.TripId, true
}

func (m *MultiModal) expand(node da.GraphId, pred *da.EdgeLabel, predIdx uint32, fromTransition bool) {
	nodeInfo, tile := da.GetNodeInfo(m.reader, node)
	if nodeInfo == nil {
		return
	}
	var from *da.DirectedEdge
	if !fromTransition && pred.Mode != da.TRANSIT {
		from, _ = da.GetDirectedEdge(m.reader, pred.EdgeId)
	}

	for i := uint32(0); i < nodeInfo.EdgeCount(); i++ {
		edgeId := tile.EdgeId(nodeInfo.EdgeIndex() + i)
		edge := tile.Edge(nodeInfo.EdgeIndex() + i)

		if edge.IsTransition() {
			if fromTransition || edge.TransUp() {
				continue
			}
			if lim := levelLimits(m.limits, edge.EndNode()); lim != nil && !lim.StopExpanding(pred.Distance) {
				m.expand(edge.EndNode(), pred, predIdx, true)
			}
			continue
		}

		status := m.state.edgeStatus.Get(edgeId)
		if status.Set == da.Permanent {
			continue
		}

		var tc, ec costing.Cost
		mode := da.PEDESTRIAN
		tripId := uint32(0)
		pd, isDest := m.destinations[edgeId]
		if edge.Use().IsTransitLine() {
			if !m.transit.Allowed(edge) {
				continue
			}
			var ok bool
			tc, ec, tripId, ok = m.ride(pred, edge)
			if !ok {
				m.stats.ScheduleUnavailable++
				continue
			}
			mode = da.TRANSIT
			isDest = false
		} else {
			if !m.walking.Allowed(edge) || !m.walking.AllowedNode(nodeInfo) {
				continue
			}
			tc = m.walking.TransitionCost(from, edge, nodeInfo)
			if tc.IsExcluded() {
				continue
			}
			ec = m.walking.EdgeCost(edge)
			if isDest {
				ec = ec.Scale(pd)
			}
		}

		cost := pred.Cost + tc.Cost + ec.Cost
		secs := pred.Secs + tc.Secs + ec.Secs
		pathDist := pred.PathDistance + edge.Length()
		if isDest {
			pathDist = pred.PathDistance + edge.Length()*pd
		}

		if status.Set == da.Temporary {
			if m.state.improve(status.LabelIdx, predIdx, cost, secs, ec, tc, pathDist) {
				l := m.state.labels.Get(status.LabelIdx)
				l.Mode, l.TripId = mode, tripId
			}
			continue
		}

		dist, sortCost := 0.0, cost
		if !isDest {
			endInfo, _ := da.GetNodeInfo(m.reader, edge.EndNode())
			if endInfo == nil {
				continue
			}
			dist = m.target.distance(endInfo.Coordinate())
			sortCost = cost + m.heuristic(dist)
		}
		idx := m.state.add(da.EdgeLabel{
			EdgeId: edgeId, EndNode: edge.EndNode(), PredIdx: predIdx,
			Cost: cost, Secs: secs, SortCost: sortCost,
			EdgeCost: ec.Cost, EdgeSecs: ec.Secs, TransitionCost: tc.Cost, TransitionSecs: tc.Secs,
			Distance: dist, PathDistance: pathDist, Mode: mode, TripId: tripId,
			Restrictions: edge.Restrictions(), Destination: isDest,
		}, tile)
		m.state.adjacency.Add(idx, sortCost)
	}
}
