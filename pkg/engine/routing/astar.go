package routing

import (
	"context"
	"math"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"go.uber.org/zap"
)

/*
AStar. forward best-first search over directed edges from the origin candidates to the destination
candidates. Origin labels carry the remainder of their edge past the correlated point, destination
labels only the part of their edge up to it, so the first settled destination label ends the search.
*/
type AStar struct {
	opts Options
	log  *zap.Logger

	reader  da.GraphReader
	costing *costing.Costing
	mode    da.TravelMode
	limits  []da.HierarchyLimits

	state        searchState
	destinations map[da.GraphId]float64 // edge id -> percent along
	target       target

	stats    Stats
	onExpand ExpansionCallback
}

func NewAStar(opts Options, log *zap.Logger) *AStar {
	if log == nil {
		log = zap.NewNop()
	}
	return &AStar{
		opts:         opts,
		log:          log,
		state:        newSearchState(),
		destinations: make(map[da.GraphId]float64),
	}
}

func (a *AStar) Name() string { return ASTAR }

func (a *AStar) Capabilities() Capabilities {
	return Capabilities{RelaxFactor: 16, ExpansionWithinFactor: 4, SupportsDisableTransitions: true}
}

func (a *AStar) Stats() Stats {
	s := a.stats
	s.Labels = a.state.labels.Len()
	return s
}

func (a *AStar) SetExpansionCallback(fn ExpansionCallback) {
	a.onExpand = fn
}

func (a *AStar) Clear() {
	a.state.clear()
	clear(a.destinations)
	a.stats = Stats{}
	a.limits = nil
	a.reader = nil
	a.costing = nil
}

func (a *AStar) GetBestPath(ctx context.Context, origin, destination *da.Location, reader da.GraphReader,
	costings ModeCostings, mode da.TravelMode) []PathInfo {
	c, ok := costings[mode]
	if !ok || c == nil {
		return nil
	}
	a.reader = reader
	a.costing = c
	a.mode = mode
	a.limits = c.HierarchyLimits()
	a.target = newTarget(destination)

	for _, pe := range destination.Edges {
		a.destinations[pe.Id] = pe.PercentAlong
	}
	seeds := a.seedOrigin(origin)
	if len(seeds) == 0 {
		return nil
	}
	minCost := math.Inf(1)
	for _, s := range seeds {
		minCost = math.Min(minCost, a.state.labels.SortCost(s))
	}
	a.state.init(a.opts.Adjacency, minCost)
	for _, s := range seeds {
		a.state.adjacency.Add(s, a.state.labels.SortCost(s))
	}

	for {
		if interrupted(ctx, &a.stats, a.opts.MaxIterations) {
			logInterrupted(a.log, a.Name(), a.stats)
			return nil
		}
		pred, predIdx, ok := a.state.pop()
		if !ok {
			return nil
		}
		a.stats.Iterations++
		if a.onExpand != nil {
			a.onExpand(Expansion{Direction: FORWARD, EdgeId: pred.EdgeId, PredEdge: a.predEdge(pred),
				Cost: pred.Cost, SortCost: pred.SortCost})
		}

		if pred.Destination {
			return a.state.formPath(predIdx)
		}

		if lim := levelLimits(a.limits, pred.EndNode); lim != nil && lim.StopExpanding(pred.Distance) {
			continue
		}
		a.expandForward(pred.EndNode, &pred, predIdx, false)
	}
}

func (a *AStar) predEdge(l da.EdgeLabel) da.GraphId {
	if l.PredIdx == da.InvalidLabel {
		return da.InvalidGraphId
	}
	return a.state.labels.Get(l.PredIdx).EdgeId
}

// seedOrigin labels the origin candidates and returns their label indices.
func (a *AStar) seedOrigin(origin *da.Location) []uint32 {
	seeds := make([]uint32, 0, len(origin.Edges))
	for _, pe := range origin.Edges {
		edge, tile := da.GetDirectedEdge(a.reader, pe.Id)
		if edge == nil || !a.costing.Allowed(edge) {
			continue
		}
		endInfo, _ := da.GetNodeInfo(a.reader, edge.EndNode())
		if endInfo == nil {
			continue
		}
		ec := a.costing.EdgeCost(edge)

		if pd, ok := a.destinations[pe.Id]; ok && pd >= pe.PercentAlong {
			// origin and destination on the same edge, destination ahead
			cost := ec.Scale(pd - pe.PercentAlong)
			seeds = append(seeds, a.state.add(da.EdgeLabel{
				EdgeId: pe.Id, EndNode: edge.EndNode(), PredIdx: da.InvalidLabel,
				Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost, EdgeCost: cost.Cost, EdgeSecs: cost.Secs,
				PathDistance: edge.Length() * (pd - pe.PercentAlong), Mode: a.mode,
				Restrictions: edge.Restrictions(), Origin: true, Destination: true,
			}, tile))
			continue
		}

		cost := ec.Scale(1 - pe.PercentAlong)
		dist := a.target.distance(endInfo.Coordinate())
		l := da.EdgeLabel{
			EdgeId: pe.Id, EndNode: edge.EndNode(), PredIdx: da.InvalidLabel,
			Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost + a.costing.Heuristic(dist),
			EdgeCost: cost.Cost, EdgeSecs: cost.Secs, Distance: dist,
			PathDistance: edge.Length() * (1 - pe.PercentAlong), Mode: a.mode,
			Restrictions: edge.Restrictions(), Origin: true,
		}
		if _, ok := a.destinations[pe.Id]; ok {
			// destination behind the origin: the edge must stay reachable through the graph
			seeds = append(seeds, a.state.add(l, nil))
			continue
		}
		seeds = append(seeds, a.state.add(l, tile))
	}
	return seeds
}

func (a *AStar) expandForward(node da.GraphId, pred *da.EdgeLabel, predIdx uint32, fromTransition bool) {
	nodeInfo, tile := da.GetNodeInfo(a.reader, node)
	if nodeInfo == nil || !a.costing.AllowedNode(nodeInfo) {
		return
	}
	var from *da.DirectedEdge
	if !fromTransition {
		from, _ = da.GetDirectedEdge(a.reader, pred.EdgeId)
	}

	for i := uint32(0); i < nodeInfo.EdgeCount(); i++ {
		edgeId := tile.EdgeId(nodeInfo.EdgeIndex() + i)
		edge := tile.Edge(nodeInfo.EdgeIndex() + i)

		if edge.IsTransition() {
			if fromTransition {
				continue
			}
			if edge.TransUp() {
				lim := levelLimits(a.limits, node)
				if lim == nil || !lim.AllowUpTransition() {
					continue
				}
				lim.UpTransitionCount++
			} else if lim := levelLimits(a.limits, edge.EndNode()); lim == nil || lim.StopExpanding(pred.Distance) {
				continue
			}
			a.expandForward(edge.EndNode(), pred, predIdx, true)
			continue
		}

		status := a.state.edgeStatus.Get(edgeId)
		if status.Set == da.Permanent || !a.costing.Allowed(edge) {
			continue
		}
		tc := a.costing.TransitionCost(from, edge, nodeInfo)
		if tc.IsExcluded() {
			continue
		}
		ec := a.costing.EdgeCost(edge)
		pathDist := pred.PathDistance + edge.Length()
		pd, isDest := a.destinations[edgeId]
		if isDest {
			ec = ec.Scale(pd)
			pathDist = pred.PathDistance + edge.Length()*pd
		}
		cost := pred.Cost + tc.Cost + ec.Cost
		secs := pred.Secs + tc.Secs + ec.Secs

		if status.Set == da.Temporary {
			a.state.improve(status.LabelIdx, predIdx, cost, secs, ec, tc, pathDist)
			continue
		}

		dist, sortCost := 0.0, cost
		if !isDest {
			endInfo, _ := da.GetNodeInfo(a.reader, edge.EndNode())
			if endInfo == nil {
				continue
			}
			dist = a.target.distance(endInfo.Coordinate())
			sortCost = cost + a.costing.Heuristic(dist)
		}
		idx := a.state.add(da.EdgeLabel{
			EdgeId: edgeId, EndNode: edge.EndNode(), PredIdx: predIdx,
			Cost: cost, Secs: secs, SortCost: sortCost,
			EdgeCost: ec.Cost, EdgeSecs: ec.Secs, TransitionCost: tc.Cost, TransitionSecs: tc.Secs,
			Distance: dist, PathDistance: pathDist, Mode: a.mode,
			Restrictions: edge.Restrictions(), Destination: isDest,
		}, tile)
		a.state.adjacency.Add(idx, sortCost)
	}
}
