package routing

import (
	"context"
	"math"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"go.uber.org/zap"
)

/*
BidirectionalAStar. a forward search from the origin and a reverse search from the destination over
the same edges.

forward label of edge x: cost from the origin to the end of x.
reverse label of edge x: cost from the end of x to the destination, turn onto the successor included.
Destination seeds are negative: the destination lies (1-pd) of the edge before its end.

Both directions order their labels with the balanced potential p(v) = (h_dest(v) - h_origin(v)) / 2,
forward adds it and reverse subtracts it, both measured at the end node of the labeled edge. A meeting
at x costs forward(x) + reverse(x), and the search stops once the two smallest keys sum past the best
meeting. With a HeapQueue the result is the least cost path.
*/
type BidirectionalAStar struct {
	opts Options
	log  *zap.Logger

	reader  da.GraphReader
	costing *costing.Costing
	mode    da.TravelMode

	forward, reverse             searchState
	limitsForward, limitsReverse []da.HierarchyLimits

	origin, destination target
	originPercent       map[da.GraphId]float64
	destPercent         map[da.GraphId]float64

	bestCost   float64
	bestFwdIdx uint32
	bestRevIdx uint32

	stats    Stats
	onExpand ExpansionCallback
}

func NewBidirectionalAStar(opts Options, log *zap.Logger) *BidirectionalAStar {
	if log == nil {
		log = zap.NewNop()
	}
	return &BidirectionalAStar{
		opts:          opts,
		log:           log,
		forward:       newSearchState(),
		reverse:       newSearchState(),
		originPercent: make(map[da.GraphId]float64),
		destPercent:   make(map[da.GraphId]float64),
		bestCost:      2 * pkg.INF_WEIGHT,
		bestFwdIdx:    da.InvalidLabel,
		bestRevIdx:    da.InvalidLabel,
	}
}

func (b *BidirectionalAStar) Name() string { return BIDIRECTIONAL }

func (b *BidirectionalAStar) Capabilities() Capabilities {
	return Capabilities{RelaxFactor: 8, ExpansionWithinFactor: 2}
}

func (b *BidirectionalAStar) Stats() Stats {
	s := b.stats
	s.Labels = b.forward.labels.Len() + b.reverse.labels.Len()
	return s
}

func (b *BidirectionalAStar) SetExpansionCallback(fn ExpansionCallback) {
	b.onExpand = fn
}

func (b *BidirectionalAStar) Clear() {
	b.forward.clear()
	b.reverse.clear()
	clear(b.originPercent)
	clear(b.destPercent)
	b.bestCost = 2 * pkg.INF_WEIGHT
	b.bestFwdIdx, b.bestRevIdx = da.InvalidLabel, da.InvalidLabel
	b.stats = Stats{}
	b.limitsForward, b.limitsReverse = nil, nil
	b.reader = nil
	b.costing = nil
}

// potential is positive where the destination is farther than the origin.
func (b *BidirectionalAStar) potential(c geo.Coordinate) float64 {
	return (b.costing.Heuristic(b.destination.distance(c)) - b.costing.Heuristic(b.origin.distance(c))) / 2
}

func (b *BidirectionalAStar) GetBestPath(ctx context.Context, origin, destination *da.Location,
	reader da.GraphReader, costings ModeCostings, mode da.TravelMode) []PathInfo {
	c, ok := costings[mode]
	if !ok || c == nil {
		return nil
	}
	b.reader = reader
	b.costing = c
	b.mode = mode
	b.limitsForward = c.HierarchyLimits()
	b.limitsReverse = c.HierarchyLimits()
	b.origin = newTarget(origin)
	b.destination = newTarget(destination)
	for _, pe := range origin.Edges {
		b.originPercent[pe.Id] = pe.PercentAlong
	}
	for _, pe := range destination.Edges {
		b.destPercent[pe.Id] = pe.PercentAlong
	}

	fwdSeeds := b.seedOrigin(origin)
	revSeeds := b.seedDestination(destination)
	if len(fwdSeeds) == 0 || len(revSeeds) == 0 {
		return nil
	}
	b.forward.init(b.opts.Adjacency, minSortCost(b.forward.labels, fwdSeeds))
	b.reverse.init(b.opts.Adjacency, minSortCost(b.reverse.labels, revSeeds))
	for _, s := range fwdSeeds {
		b.forward.adjacency.Add(s, b.forward.labels.SortCost(s))
	}
	for _, s := range revSeeds {
		b.reverse.adjacency.Add(s, b.reverse.labels.SortCost(s))
		b.checkMeeting(b.reverse.labels.Get(s).EdgeId)
	}

	for {
		if interrupted(ctx, &b.stats, b.opts.MaxIterations) {
			logInterrupted(b.log, b.Name(), b.stats)
			return nil
		}
		fwdMin, revMin := b.forward.adjacency.MinCost(), b.reverse.adjacency.MinCost()
		if b.bestCost < pkg.INF_WEIGHT && fwdMin+revMin > b.bestCost {
			return b.formPath()
		}
		if b.forward.adjacency.Size() == 0 || b.reverse.adjacency.Size() == 0 {
			if b.bestCost < pkg.INF_WEIGHT {
				return b.formPath()
			}
			return nil
		}

		if fwdMin <= revMin {
			pred, predIdx, ok := b.forward.pop()
			if !ok {
				continue
			}
			b.stats.Iterations++
			b.report(FORWARD, &b.forward, pred)
			if lim := levelLimits(b.limitsForward, pred.EndNode); lim != nil && lim.StopExpanding(pred.Distance) {
				continue
			}
			b.expandForward(pred.EndNode, &pred, predIdx, false)
		} else {
			pred, predIdx, ok := b.reverse.pop()
			if !ok {
				continue
			}
			b.stats.Iterations++
			b.report(REVERSE, &b.reverse, pred)
			if lim := levelLimits(b.limitsReverse, pred.EndNode); lim != nil && lim.StopExpanding(pred.Distance) {
				continue
			}
			b.expandReverse(pred.EndNode, &pred, predIdx, false)
		}
	}
}

func (b *BidirectionalAStar) report(dir Direction, s *searchState, l da.EdgeLabel) {
	if b.onExpand == nil {
		return
	}
	pred := da.InvalidGraphId
	if l.PredIdx != da.InvalidLabel {
		pred = s.labels.Get(l.PredIdx).EdgeId
	}
	b.onExpand(Expansion{Direction: dir, EdgeId: l.EdgeId, PredEdge: pred, Cost: l.Cost, SortCost: l.SortCost})
}

func minSortCost(labels *da.EdgeLabelStore, idx []uint32) float64 {
	m := math.Inf(1)
	for _, i := range idx {
		m = math.Min(m, labels.SortCost(i))
	}
	return m
}

func (b *BidirectionalAStar) seedOrigin(origin *da.Location) []uint32 {
	seeds := make([]uint32, 0, len(origin.Edges))
	for _, pe := range origin.Edges {
		edge, tile := da.GetDirectedEdge(b.reader, pe.Id)
		if edge == nil || !b.costing.Allowed(edge) {
			continue
		}
		endInfo, _ := da.GetNodeInfo(b.reader, edge.EndNode())
		if endInfo == nil {
			continue
		}
		cost := b.costing.EdgeCost(edge).Scale(1 - pe.PercentAlong)
		seeds = append(seeds, b.forward.add(da.EdgeLabel{
			EdgeId: pe.Id, EndNode: edge.EndNode(), PredIdx: da.InvalidLabel,
			Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost + b.potential(endInfo.Coordinate()),
			EdgeCost: cost.Cost, EdgeSecs: cost.Secs, Distance: b.destination.distance(endInfo.Coordinate()),
			PathDistance: edge.Length() * (1 - pe.PercentAlong), Mode: b.mode,
			Restrictions: edge.Restrictions(), Origin: true,
		}, tile))
	}
	return seeds
}

func (b *BidirectionalAStar) seedDestination(destination *da.Location) []uint32 {
	seeds := make([]uint32, 0, len(destination.Edges))
	for _, pe := range destination.Edges {
		edge, tile := da.GetDirectedEdge(b.reader, pe.Id)
		if edge == nil || !b.costing.Allowed(edge) {
			continue
		}
		endInfo, _ := da.GetNodeInfo(b.reader, edge.EndNode())
		start := da.GetStartNode(b.reader, pe.Id)
		startInfo, _ := da.GetNodeInfo(b.reader, start)
		if endInfo == nil || startInfo == nil {
			continue
		}
		// cost from the end of the edge back to the destination point
		cost := b.costing.EdgeCost(edge).Scale(-(1 - pe.PercentAlong))
		ec := b.costing.EdgeCost(edge)
		seeds = append(seeds, b.reverse.add(da.EdgeLabel{
			EdgeId: pe.Id, EndNode: start, PredIdx: da.InvalidLabel,
			Cost: cost.Cost, Secs: cost.Secs, SortCost: cost.Cost - b.potential(endInfo.Coordinate()),
			EdgeCost: ec.Cost, EdgeSecs: ec.Secs, Distance: b.origin.distance(startInfo.Coordinate()),
			PathDistance: -edge.Length() * (1 - pe.PercentAlong), Mode: b.mode,
			Restrictions: edge.Restrictions(), Destination: true,
		}, tile))
	}
	return seeds
}

// checkMeeting records a connection through edgeId when both directions have labeled it.
func (b *BidirectionalAStar) checkMeeting(edgeId da.GraphId) {
	fs := b.forward.edgeStatus.Get(edgeId)
	rs := b.reverse.edgeStatus.Get(edgeId)
	if fs.Set == da.Unreached || rs.Set == da.Unreached {
		return
	}
	fwd := b.forward.labels.Get(fs.LabelIdx)
	rev := b.reverse.labels.Get(rs.LabelIdx)
	if fwd.Origin && rev.Destination && b.destPercent[edgeId] < b.originPercent[edgeId] {
		// destination behind the origin on the same edge
		return
	}
	if c := fwd.Cost + rev.Cost; c < b.bestCost {
		b.bestCost = c
		b.bestFwdIdx, b.bestRevIdx = fs.LabelIdx, rs.LabelIdx
	}
}

func (b *BidirectionalAStar) expandForward(node da.GraphId, pred *da.EdgeLabel, predIdx uint32,
	fromTransition bool) {
	nodeInfo, tile := da.GetNodeInfo(b.reader, node)
	if nodeInfo == nil || !b.costing.AllowedNode(nodeInfo) {
		return
	}
	var from *da.DirectedEdge
	if !fromTransition {
		from, _ = da.GetDirectedEdge(b.reader, pred.EdgeId)
	}

	for i := uint32(0); i < nodeInfo.EdgeCount(); i++ {
		edgeId := tile.EdgeId(nodeInfo.EdgeIndex() + i)
		edge := tile.Edge(nodeInfo.EdgeIndex() + i)

		if edge.IsTransition() {
			if !fromTransition && b.allowTransition(b.limitsForward, node, edge, pred.Distance) {
				b.expandForward(edge.EndNode(), pred, predIdx, true)
			}
			continue
		}

		status := b.forward.edgeStatus.Get(edgeId)
		if status.Set == da.Permanent || !b.costing.Allowed(edge) {
			continue
		}
		tc := b.costing.TransitionCost(from, edge, nodeInfo)
		if tc.IsExcluded() {
			continue
		}
		ec := b.costing.EdgeCost(edge)
		cost := pred.Cost + tc.Cost + ec.Cost
		secs := pred.Secs + tc.Secs + ec.Secs
		pathDist := pred.PathDistance + edge.Length()

		if status.Set == da.Temporary {
			if b.forward.improve(status.LabelIdx, predIdx, cost, secs, ec, tc, pathDist) {
				b.checkMeeting(edgeId)
			}
			continue
		}

		endInfo, _ := da.GetNodeInfo(b.reader, edge.EndNode())
		if endInfo == nil {
			continue
		}
		sortCost := cost + b.potential(endInfo.Coordinate())
		idx := b.forward.add(da.EdgeLabel{
			EdgeId: edgeId, EndNode: edge.EndNode(), PredIdx: predIdx,
			Cost: cost, Secs: secs, SortCost: sortCost,
			EdgeCost: ec.Cost, EdgeSecs: ec.Secs, TransitionCost: tc.Cost, TransitionSecs: tc.Secs,
			Distance: b.destination.distance(endInfo.Coordinate()), PathDistance: pathDist, Mode: b.mode,
			Restrictions: edge.Restrictions(),
		}, tile)
		b.forward.adjacency.Add(idx, sortCost)
		b.checkMeeting(edgeId)
	}
}

/*
expandReverse labels the edges entering node. Each one is found as the opposing edge of an edge
leaving node; its reverse cost is the turn onto pred, pred itself and pred's reverse cost.
*/
func (b *BidirectionalAStar) expandReverse(node da.GraphId, pred *da.EdgeLabel, predIdx uint32,
	fromTransition bool) {
	nodeInfo, tile := da.GetNodeInfo(b.reader, node)
	if nodeInfo == nil || !b.costing.AllowedNode(nodeInfo) {
		return
	}
	predEdge, _ := da.GetDirectedEdge(b.reader, pred.EdgeId)
	if predEdge == nil {
		return
	}

	for i := uint32(0); i < nodeInfo.EdgeCount(); i++ {
		out := tile.Edge(nodeInfo.EdgeIndex() + i)

		if out.IsTransition() {
			if !fromTransition && b.allowTransition(b.limitsReverse, node, out, pred.Distance) {
				b.expandReverse(out.EndNode(), pred, predIdx, true)
			}
			continue
		}

		oppId := da.GetOpposingEdgeId(b.reader, tile.EdgeId(nodeInfo.EdgeIndex()+i))
		opp, oppTile := da.GetDirectedEdge(b.reader, oppId)
		if opp == nil {
			continue
		}
		status := b.reverse.edgeStatus.Get(oppId)
		if status.Set == da.Permanent || !b.costing.Allowed(opp) {
			continue
		}
		var tc costing.Cost
		if fromTransition {
			tc = b.costing.TransitionCost(nil, predEdge, nodeInfo)
		} else {
			tc = b.costing.TransitionCost(opp, predEdge, nodeInfo)
		}
		if tc.IsExcluded() {
			continue
		}
		// pred's own cost is not part of pred's reverse cost
		cost := pred.Cost + pred.EdgeCost + tc.Cost
		secs := pred.Secs + pred.EdgeSecs + tc.Secs
		ec := b.costing.EdgeCost(opp)
		pathDist := pred.PathDistance + predEdge.Length()

		if status.Set == da.Temporary {
			if b.reverse.improve(status.LabelIdx, predIdx, cost, secs, ec, tc, pathDist) {
				b.checkMeeting(oppId)
			}
			continue
		}

		startInfo, _ := da.GetNodeInfo(b.reader, out.EndNode())
		if startInfo == nil {
			continue
		}
		sortCost := cost - b.potential(nodeInfo.Coordinate())
		idx := b.reverse.add(da.EdgeLabel{
			EdgeId: oppId, EndNode: out.EndNode(), PredIdx: predIdx,
			Cost: cost, Secs: secs, SortCost: sortCost,
			EdgeCost: ec.Cost, EdgeSecs: ec.Secs, TransitionCost: tc.Cost, TransitionSecs: tc.Secs,
			Distance: b.origin.distance(startInfo.Coordinate()), PathDistance: pathDist, Mode: b.mode,
			Restrictions: opp.Restrictions(),
		}, oppTile)
		b.reverse.adjacency.Add(idx, sortCost)
		b.checkMeeting(oppId)
	}
}

func (b *BidirectionalAStar) allowTransition(limits []da.HierarchyLimits, node da.GraphId, edge *da.DirectedEdge,
	dist float64) bool {
	if edge.TransUp() {
		lim := levelLimits(limits, node)
		if lim == nil || !lim.AllowUpTransition() {
			return false
		}
		lim.UpTransitionCount++
		return true
	}
	lim := levelLimits(limits, edge.EndNode())
	return lim != nil && !lim.StopExpanding(dist)
}

// formPath joins the forward chain up to the meeting edge with the reverse chain after it.
func (b *BidirectionalAStar) formPath() []PathInfo {
	path := b.forward.formPath(b.bestFwdIdx)
	if len(path) == 0 {
		return nil
	}
	fwd := b.forward.labels.Get(b.bestFwdIdx)
	rev := b.reverse.labels.Get(b.bestRevIdx)
	totalCost := fwd.Cost + rev.Cost
	totalSecs := fwd.Secs + rev.Secs

	if rev.Destination {
		path[len(path)-1].Cost = totalCost
		path[len(path)-1].ElapsedTime = totalSecs
		return path
	}
	for idx := rev.PredIdx; idx != da.InvalidLabel; {
		l := b.reverse.labels.Get(idx)
		info := PathInfo{Mode: l.Mode, EdgeId: l.EdgeId, TripId: l.TripId, Cost: totalCost, ElapsedTime: totalSecs}
		if !l.Destination {
			info.Cost = totalCost - l.Cost
			info.ElapsedTime = totalSecs - l.Secs
		}
		path = append(path, info)
		idx = l.PredIdx
	}
	return path
}
