package datastructure

import (
	"fmt"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/paulmach/osm"
)

type NodeSpec struct {
	Lat, Lon float64
	Level    uint8
	Access   Access // zero means ALL_ACCESS
	Type     NodeType
	StopId   uint32
}

type EdgeSpec struct {
	Length      float64 // meters. zero means the great-circle length between both nodes
	Speed       float64 // kph
	Class       pkg.OsmHighwayType
	Use         EdgeUse
	Access      Access
	WayId       osm.WayID
	Name        string
	Toll        bool
	DestOnly    bool
	Unreachable bool
	LineId      uint32
}

type builderNode struct {
	spec NodeSpec
	out  []int
}

type builderEdge struct {
	from, to  int
	spec      EdgeSpec
	transUp   bool
	transDown bool
	twin      int
}

// GraphBuilder lays nodes and edges out into tiles. Handles returned by Add* stay valid after Build.
type GraphBuilder struct {
	hierarchy    *TileHierarchy
	nodes        []builderNode
	edges        []builderEdge
	restrictions [][2]int

	nodeIds []GraphId
	edgeIds []GraphId
}

func NewGraphBuilder(hierarchy *TileHierarchy) *GraphBuilder {
	return &GraphBuilder{
		hierarchy: hierarchy,
		nodes:     make([]builderNode, 0),
		edges:     make([]builderEdge, 0),
	}
}

func (b *GraphBuilder) AddNode(spec NodeSpec) int {
	if spec.Access == NO_ACCESS {
		spec.Access = ALL_ACCESS
	}
	b.nodes = append(b.nodes, builderNode{spec: spec})
	return len(b.nodes) - 1
}

func (b *GraphBuilder) addEdge(e builderEdge) int {
	b.edges = append(b.edges, e)
	h := len(b.edges) - 1
	b.nodes[e.from].out = append(b.nodes[e.from].out, h)
	return h
}

// AddEdge adds a single directed edge. Build adds an inaccessible opposing edge if none is added explicitly.
func (b *GraphBuilder) AddEdge(from, to int, spec EdgeSpec) int {
	return b.addEdge(builderEdge{from: from, to: to, spec: spec, twin: -1})
}

// AddRoad adds both directions of a road. A oneway road has no access against its direction.
func (b *GraphBuilder) AddRoad(a, c int, spec EdgeSpec, oneway bool) (int, int) {
	back := spec
	if oneway {
		back.Access = NO_ACCESS
	}
	fwd := b.addEdge(builderEdge{from: a, to: c, spec: spec, twin: -1})
	rev := b.addEdge(builderEdge{from: c, to: a, spec: back, twin: fwd})
	b.edges[fwd].twin = rev
	return fwd, rev
}

// AddTransition links two copies of the same node on different hierarchy levels.
func (b *GraphBuilder) AddTransition(fine, coarse int) {
	spec := EdgeSpec{Access: ALL_ACCESS, Length: 0}
	up := b.addEdge(builderEdge{from: fine, to: coarse, spec: spec, transUp: true, twin: -1})
	down := b.addEdge(builderEdge{from: coarse, to: fine, spec: spec, transDown: true, twin: up})
	b.edges[up].twin = down
}

// Restrict forbids the turn from edge `from` onto edge `to`.
func (b *GraphBuilder) Restrict(from, to int) {
	b.restrictions = append(b.restrictions, [2]int{from, to})
}

func (b *GraphBuilder) NodeId(h int) GraphId {
	if h < 0 || h >= len(b.nodeIds) {
		return InvalidGraphId
	}
	return b.nodeIds[h]
}

func (b *GraphBuilder) EdgeId(h int) GraphId {
	if h < 0 || h >= len(b.edgeIds) {
		return InvalidGraphId
	}
	return b.edgeIds[h]
}

func (b *GraphBuilder) pairTwins() {
	n := len(b.edges)
	for h := 0; h < n; h++ {
		e := b.edges[h]
		if e.twin >= 0 {
			continue
		}
		for _, cand := range b.nodes[e.to].out {
			ce := b.edges[cand]
			if cand != h && ce.twin < 0 && ce.to == e.from && ce.transUp == e.transDown && ce.transDown == e.transUp {
				b.edges[h].twin = cand
				b.edges[cand].twin = h
				break
			}
		}
		if b.edges[h].twin >= 0 {
			continue
		}
		spec := e.spec
		spec.Access = NO_ACCESS
		twin := b.addEdge(builderEdge{from: e.to, to: e.from, spec: spec, transUp: e.transDown,
			transDown: e.transUp, twin: h})
		b.edges[h].twin = twin
	}
}

// Build lays the graph out into tiles served by a MemoryGraphReader.
func (b *GraphBuilder) Build() (*MemoryGraphReader, error) {
	b.pairTwins()

	tiles := make(map[GraphId]*Tile)
	order := make([]GraphId, 0)
	b.nodeIds = make([]GraphId, len(b.nodes))
	nodeTiles := make(map[GraphId][]int)

	for h, n := range b.nodes {
		base := b.hierarchy.TileId(n.spec.Lat, n.spec.Lon, n.spec.Level)
		if !base.IsValid() {
			return nil, fmt.Errorf("node %d: unknown hierarchy level %d", h, n.spec.Level)
		}
		if _, ok := tiles[base]; !ok {
			tiles[base] = NewTile(base)
			order = append(order, base)
		}
		b.nodeIds[h] = base.WithIndex(uint32(len(nodeTiles[base])))
		nodeTiles[base] = append(nodeTiles[base], h)
	}

	b.edgeIds = make([]GraphId, len(b.edges))
	localIdx := make([]uint32, len(b.edges))
	for _, base := range order {
		tile := tiles[base]
		for _, h := range nodeTiles[base] {
			n := b.nodes[h]
			if len(n.out) > maxTileIndex {
				return nil, fmt.Errorf("node %d has too many edges", h)
			}
			tile.nodes = append(tile.nodes, NodeInfo{
				lat:       n.spec.Lat,
				lon:       n.spec.Lon,
				edgeIndex: uint32(len(tile.edges)),
				edgeCount: uint32(len(n.out)),
				access:    n.spec.Access,
				nodeType:  n.spec.Type,
				stopId:    n.spec.StopId,
			})
			for k, eh := range n.out {
				b.edgeIds[eh] = base.WithIndex(uint32(len(tile.edges)))
				localIdx[eh] = uint32(k)
				tile.edges = append(tile.edges, DirectedEdge{})
				tile.edgeInfos = append(tile.edgeInfos, EdgeInfo{wayId: b.edges[eh].spec.WayId, name: b.edges[eh].spec.Name})
			}
		}
	}

	for h, e := range b.edges {
		from := b.nodes[e.from].spec
		to := b.nodes[e.to].spec
		a := geo.NewCoordinate(from.Lat, from.Lon)
		c := geo.NewCoordinate(to.Lat, to.Lon)

		de := DirectedEdge{
			endNode:       b.nodeIds[e.to],
			length:        e.spec.Length,
			speed:         e.spec.Speed,
			class:         e.spec.Class,
			use:           e.spec.Use,
			forwardAccess: e.spec.Access,
			reverseAccess: b.edges[e.twin].spec.Access,
			localIdx:      localIdx[h],
			oppIndex:      localIdx[e.twin],
			lineId:        e.spec.LineId,
		}
		if de.length == 0 && !e.transUp && !e.transDown {
			de.length = geo.DistanceMeters(a, c)
		}
		if de.length > 0 {
			de.beginHeading = geo.BearingTo(a, c)
			de.endHeading = de.beginHeading
		}
		de.setFlag(flagTransUp, e.transUp)
		de.setFlag(flagTransDown, e.transDown)
		de.setFlag(flagToll, e.spec.Toll)
		de.setFlag(flagDestOnly, e.spec.DestOnly)
		de.setFlag(flagUnreachable, e.spec.Unreachable)

		id := b.edgeIds[h]
		*tiles[id.TileBase()].Edge(id.Index()) = de
	}

	for _, r := range b.restrictions {
		from, to := b.edges[r[0]], b.edges[r[1]]
		if from.to != to.from {
			return nil, fmt.Errorf("restriction %d -> %d: edges are not adjacent", r[0], r[1])
		}
		if localIdx[r[1]] >= 32 {
			return nil, fmt.Errorf("restriction %d -> %d: local index out of range", r[0], r[1])
		}
		id := b.edgeIds[r[0]]
		tiles[id.TileBase()].Edge(id.Index()).restrictions |= 1 << localIdx[r[1]]
	}

	reader := NewMemoryGraphReader(b.hierarchy)
	for _, base := range order {
		reader.AddTile(tiles[base])
	}
	return reader, nil
}
