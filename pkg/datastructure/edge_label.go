package datastructure

import "math"

const InvalidLabel uint32 = math.MaxUint32

// EdgeLabel. per edge search bookkeeping. Labels are only ever created, improved in place, or bulk cleared.
type EdgeLabel struct {
	EdgeId  GraphId
	EndNode GraphId // node where expansion continues
	PredIdx uint32

	Cost     float64
	Secs     float64
	SortCost float64

	// cost of the edge itself and of the turn onto it, both included in Cost
	EdgeCost       float64
	EdgeSecs       float64
	TransitionCost float64
	TransitionSecs float64

	Distance     float64 // meters from EndNode to the search target
	PathDistance float64 // meters traveled including this edge

	Mode         TravelMode
	TripId       uint32
	Restrictions uint32

	Origin      bool
	Destination bool
}

func (l *EdgeLabel) Update(predIdx uint32, cost, secs, sortCost, edgeCost, edgeSecs, tc, ts, pathDistance float64) {
	l.PredIdx = predIdx
	l.Cost = cost
	l.Secs = secs
	l.SortCost = sortCost
	l.EdgeCost = edgeCost
	l.EdgeSecs = edgeSecs
	l.TransitionCost = tc
	l.TransitionSecs = ts
	l.PathDistance = pathDistance
}

// EdgeLabelStore. append-only label arena addressed by index.
type EdgeLabelStore struct {
	labels []EdgeLabel
}

func NewEdgeLabelStore(capacity int) *EdgeLabelStore {
	return &EdgeLabelStore{labels: make([]EdgeLabel, 0, capacity)}
}

func (s *EdgeLabelStore) Add(l EdgeLabel) uint32 {
	s.labels = append(s.labels, l)
	return uint32(len(s.labels) - 1)
}

// Get returns a pointer into the arena. It is invalidated by the next Add.
func (s *EdgeLabelStore) Get(idx uint32) *EdgeLabel {
	return &s.labels[idx]
}

func (s *EdgeLabelStore) SortCost(idx uint32) float64 {
	return s.labels[idx].SortCost
}

func (s *EdgeLabelStore) Len() int {
	return len(s.labels)
}

func (s *EdgeLabelStore) Clear() {
	s.labels = s.labels[:0]
}
