package datastructure

import (
	"math"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/paulmach/osm"
)

type Access uint16

const (
	AUTO_ACCESS Access = 1 << iota
	PEDESTRIAN_ACCESS
	BICYCLE_ACCESS
	TRUCK_ACCESS
	BUS_ACCESS
	TRANSIT_ACCESS

	NO_ACCESS      Access = 0
	VEHICLE_ACCESS        = AUTO_ACCESS | TRUCK_ACCESS | BUS_ACCESS
	ALL_ACCESS            = AUTO_ACCESS | PEDESTRIAN_ACCESS | BICYCLE_ACCESS | TRUCK_ACCESS | BUS_ACCESS | TRANSIT_ACCESS
)

type EdgeUse uint8

const (
	ROAD_USE EdgeUse = iota
	RAMP_USE
	FOOTWAY_USE
	CYCLEWAY_USE
	FERRY_USE
	TRANSIT_CONNECTION_USE
	BUS_USE
	RAIL_USE
)

// IsTransitLine reports whether the edge is ridden on a scheduled trip.
func (u EdgeUse) IsTransitLine() bool {
	return u == BUS_USE || u == RAIL_USE
}

type NodeType uint8

const (
	STREET_NODE NodeType = iota
	GATE_NODE
	TOLL_BOOTH_NODE
	TRANSIT_STOP_NODE
)

type TravelMode uint8

const (
	DRIVE TravelMode = iota
	PEDESTRIAN
	BICYCLE
	TRANSIT
)

func (m TravelMode) String() string {
	switch m {
	case DRIVE:
		return "drive"
	case PEDESTRIAN:
		return "pedestrian"
	case BICYCLE:
		return "bicycle"
	case TRANSIT:
		return "transit"
	default:
		return "unknown"
	}
}

type edgeFlags uint16

const (
	flagTransUp edgeFlags = 1 << iota
	flagTransDown
	flagToll
	flagDestOnly
	flagUnreachable
)

// DirectedEdge. immutable arc of a tile.
type DirectedEdge struct {
	endNode       GraphId
	length        float64 // meters
	speed         float64 // kph
	class         pkg.OsmHighwayType
	use           EdgeUse
	forwardAccess Access
	reverseAccess Access
	localIdx      uint32 // index among the start node's edges
	oppIndex      uint32 // index of the opposing edge among the end node's edges
	restrictions  uint32 // bit k: turning onto the end node's k-th edge is restricted
	beginHeading  float64
	endHeading    float64
	flags         edgeFlags
	lineId        uint32
}

func (e *DirectedEdge) EndNode() GraphId { return e.endNode }
func (e *DirectedEdge) Length() float64 { return e.length }
func (e *DirectedEdge) Speed() float64 { return e.speed }
func (e *DirectedEdge) Classification() pkg.OsmHighwayType { return e.class }
func (e *DirectedEdge) Use() EdgeUse { return e.use }
func (e *DirectedEdge) ForwardAccess() Access { return e.forwardAccess }
func (e *DirectedEdge) ReverseAccess() Access { return e.reverseAccess }
func (e *DirectedEdge) LocalIdx() uint32 { return e.localIdx }
func (e *DirectedEdge) OppIndex() uint32 { return e.oppIndex }
func (e *DirectedEdge) Restrictions() uint32 { return e.restrictions }
func (e *DirectedEdge) BeginHeading() float64 { return e.beginHeading }
func (e *DirectedEdge) EndHeading() float64 { return e.endHeading }
func (e *DirectedEdge) LineId() uint32 { return e.lineId }
func (e *DirectedEdge) TransUp() bool { return e.flags&flagTransUp != 0 }
func (e *DirectedEdge) TransDown() bool { return e.flags&flagTransDown != 0 }
func (e *DirectedEdge) IsTransition() bool { return e.flags&(flagTransUp|flagTransDown) != 0 }
func (e *DirectedEdge) Toll() bool { return e.flags&flagToll != 0 }
func (e *DirectedEdge) DestOnly() bool { return e.flags&flagDestOnly != 0 }

// Unreachable is set by connectivity analysis for edges in a structurally disconnected region.
func (e *DirectedEdge) Unreachable() bool { return e.flags&flagUnreachable != 0 }

func (e *DirectedEdge) IsRestricted(to *DirectedEdge) bool {
	return to.localIdx < 32 && e.restrictions&(1<<to.localIdx) != 0
}

func (e *DirectedEdge) setFlag(f edgeFlags, on bool) {
	if on {
		e.flags |= f
	} else {
		e.flags &^= f
	}
}

type NodeInfo struct {
	lat, lon  float64
	edgeIndex uint32
	edgeCount uint32
	access    Access
	nodeType  NodeType
	stopId    uint32
}

func (n *NodeInfo) Coordinate() geo.Coordinate { return geo.NewCoordinate(n.lat, n.lon) }
func (n *NodeInfo) EdgeIndex() uint32 { return n.edgeIndex }
func (n *NodeInfo) EdgeCount() uint32 { return n.edgeCount }
func (n *NodeInfo) Access() Access { return n.access }
func (n *NodeInfo) Type() NodeType { return n.nodeType }
func (n *NodeInfo) StopId() uint32 { return n.stopId }

type EdgeInfo struct {
	wayId osm.WayID
	name  string
}

func (ei *EdgeInfo) WayId() osm.WayID { return ei.wayId }
func (ei *EdgeInfo) Name() string { return ei.name }

// Tile. independently loadable cell of one hierarchy level.
type Tile struct {
	id        GraphId
	nodes     []NodeInfo
	edges     []DirectedEdge
	edgeInfos []EdgeInfo
}

func NewTile(id GraphId) *Tile {
	return &Tile{id: id.TileBase()}
}

func (t *Tile) Id() GraphId { return t.id }
func (t *Tile) NodeCount() int { return len(t.nodes) }
func (t *Tile) EdgeCount() int { return len(t.edges) }
func (t *Tile) NodeId(i uint32) GraphId { return t.id.WithIndex(i) }
func (t *Tile) EdgeId(i uint32) GraphId { return t.id.WithIndex(i) }

func (t *Tile) Node(i uint32) *NodeInfo {
	if int(i) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[i]
}

func (t *Tile) Edge(i uint32) *DirectedEdge {
	if int(i) >= len(t.edges) {
		return nil
	}
	return &t.edges[i]
}

func (t *Tile) EdgeInfo(i uint32) *EdgeInfo {
	if int(i) >= len(t.edgeInfos) {
		return nil
	}
	return &t.edgeInfos[i]
}

// ForOutEdges calls fn for every edge leaving node i, in local index order.
func (t *Tile) ForOutEdges(i uint32, fn func(id GraphId, e *DirectedEdge)) {
	n := t.Node(i)
	if n == nil {
		return
	}
	for k := n.edgeIndex; k < n.edgeIndex+n.edgeCount; k++ {
		fn(t.EdgeId(k), &t.edges[k])
	}
}

// MarkUnreachable flags edge i as part of a disconnected region.
func (t *Tile) MarkUnreachable(i uint32) {
	if e := t.Edge(i); e != nil {
		e.setFlag(flagUnreachable, true)
	}
}

type LevelInfo struct {
	Level    uint8
	Name     string
	TileSize float64 // degrees
}

// TileHierarchy. level metadata shared by every tile of a graph.
type TileHierarchy struct {
	levels []LevelInfo
}

func NewTileHierarchy(levels ...LevelInfo) *TileHierarchy {
	return &TileHierarchy{levels: levels}
}

// DefaultTileHierarchy: highway 4°, arterial 1°, local 0.25°, transit 0.25°.
func DefaultTileHierarchy() *TileHierarchy {
	return NewTileHierarchy(
		LevelInfo{Level: pkg.HIGHWAY_LEVEL, Name: "highway", TileSize: 4},
		LevelInfo{Level: pkg.ARTERIAL_LEVEL, Name: "arterial", TileSize: 1},
		LevelInfo{Level: pkg.LOCAL_LEVEL, Name: "local", TileSize: 0.25},
		LevelInfo{Level: pkg.TRANSIT_LEVEL, Name: "transit", TileSize: 0.25},
	)
}

func (h *TileHierarchy) NumLevels() int {
	return len(h.levels)
}

func (h *TileHierarchy) Levels() []LevelInfo {
	return h.levels
}

func (h *TileHierarchy) Level(level uint8) (LevelInfo, bool) {
	for _, l := range h.levels {
		if l.Level == level {
			return l, true
		}
	}
	return LevelInfo{}, false
}

// TileId of the tile covering (lat, lon) at level.
func (h *TileHierarchy) TileId(lat, lon float64, level uint8) GraphId {
	info, ok := h.Level(level)
	if !ok {
		return InvalidGraphId
	}
	cols := int(math.Ceil(360.0 / info.TileSize))
	row := int(math.Floor((lat + 90) / info.TileSize))
	col := int(math.Floor((lon + 180) / info.TileSize))
	if col >= cols {
		col = cols - 1
	}
	return NewGraphId(uint32(row*cols+col), level, 0)
}
