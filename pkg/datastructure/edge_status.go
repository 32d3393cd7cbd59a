package datastructure

type EdgeSet uint8

const (
	Unreached EdgeSet = iota
	Temporary
	Permanent
)

type EdgeStatusInfo struct {
	Set      EdgeSet
	LabelIdx uint32
}

/*
EdgeStatus. two level edge state store: one slice per tile, sized to the tile's edge count, plus the
last touched tile kept aside so consecutive lookups inside one tile skip the map.
*/
type EdgeStatus struct {
	tiles    map[GraphId][]EdgeStatusInfo
	lastTile GraphId
	last     []EdgeStatusInfo
}

func NewEdgeStatus() *EdgeStatus {
	return &EdgeStatus{
		tiles:    make(map[GraphId][]EdgeStatusInfo),
		lastTile: InvalidGraphId,
	}
}

func (es *EdgeStatus) slice(base GraphId) []EdgeStatusInfo {
	if base == es.lastTile {
		return es.last
	}
	s, ok := es.tiles[base]
	if !ok {
		return nil
	}
	es.lastTile, es.last = base, s
	return s
}

// unreachedSlice of n edges without labels.
func unreachedSlice(n int) []EdgeStatusInfo {
	s := make([]EdgeStatusInfo, n)
	for i := range s {
		s[i] = EdgeStatusInfo{Set: Unreached, LabelIdx: InvalidLabel}
	}
	return s
}

// Set records the state of id. tile is the tile holding the edge.
func (es *EdgeStatus) Set(id GraphId, set EdgeSet, labelIdx uint32, tile *Tile) {
	base := id.TileBase()
	s := es.slice(base)
	if s == nil {
		n := int(id.Index()) + 1
		if tile != nil && tile.EdgeCount() > n {
			n = tile.EdgeCount()
		}
		s = unreachedSlice(n)
		es.tiles[base] = s
		es.lastTile, es.last = base, s
	} else if int(id.Index()) >= len(s) {
		grown := unreachedSlice(int(id.Index()) + 1)
		copy(grown, s)
		s = grown
		es.tiles[base] = s
		es.lastTile, es.last = base, s
	}
	s[id.Index()] = EdgeStatusInfo{Set: set, LabelIdx: labelIdx}
}

// Update changes the state of an edge that already has a label.
func (es *EdgeStatus) Update(id GraphId, set EdgeSet) {
	s := es.slice(id.TileBase())
	if s == nil || int(id.Index()) >= len(s) {
		return
	}
	s[id.Index()].Set = set
}

func (es *EdgeStatus) Get(id GraphId) EdgeStatusInfo {
	s := es.slice(id.TileBase())
	if s == nil || int(id.Index()) >= len(s) {
		return EdgeStatusInfo{Set: Unreached, LabelIdx: InvalidLabel}
	}
	return s[id.Index()]
}

func (es *EdgeStatus) Clear() {
	clear(es.tiles)
	es.lastTile = InvalidGraphId
	es.last = nil
}
