package datastructure

import (
	"cmp"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// GraphReader gives read-only access to graph tiles. Implementations must be safe for concurrent use.
type GraphReader interface {
	// GetGraphTile returns the tile containing id, or nil when it is unavailable.
	GetGraphTile(id GraphId) *Tile
	TileHierarchy() *TileHierarchy
}

func GetDirectedEdge(reader GraphReader, id GraphId) (*DirectedEdge, *Tile) {
	tile := reader.GetGraphTile(id)
	if tile == nil {
		return nil, nil
	}
	return tile.Edge(id.Index()), tile
}

func GetNodeInfo(reader GraphReader, id GraphId) (*NodeInfo, *Tile) {
	tile := reader.GetGraphTile(id)
	if tile == nil {
		return nil, nil
	}
	return tile.Node(id.Index()), tile
}

// GetOpposingEdgeId returns the edge running the other way between the same two nodes.
func GetOpposingEdgeId(reader GraphReader, id GraphId) GraphId {
	edge, _ := GetDirectedEdge(reader, id)
	if edge == nil {
		return InvalidGraphId
	}
	endNode, endTile := GetNodeInfo(reader, edge.EndNode())
	if endNode == nil || edge.OppIndex() >= endNode.EdgeCount() {
		return InvalidGraphId
	}
	return endTile.EdgeId(endNode.EdgeIndex() + edge.OppIndex())
}

// GetStartNode resolves the node an edge leaves from through its opposing edge.
func GetStartNode(reader GraphReader, id GraphId) GraphId {
	opp := GetOpposingEdgeId(reader, id)
	if !opp.IsValid() {
		return InvalidGraphId
	}
	oppEdge, _ := GetDirectedEdge(reader, opp)
	return oppEdge.EndNode()
}

// MemoryGraphReader serves tiles held in memory.
type MemoryGraphReader struct {
	mu        sync.RWMutex
	tiles     map[GraphId]*Tile
	hierarchy *TileHierarchy
}

func NewMemoryGraphReader(hierarchy *TileHierarchy) *MemoryGraphReader {
	return &MemoryGraphReader{
		tiles:     make(map[GraphId]*Tile),
		hierarchy: hierarchy,
	}
}

func (r *MemoryGraphReader) AddTile(t *Tile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiles[t.Id()] = t
}

func (r *MemoryGraphReader) GetGraphTile(id GraphId) *Tile {
	if !id.IsValid() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tiles[id.TileBase()]
}

func (r *MemoryGraphReader) TileHierarchy() *TileHierarchy {
	return r.hierarchy
}

// Tiles returns all tiles ordered by id.
func (r *MemoryGraphReader) Tiles() []*Tile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tiles := make([]*Tile, 0, len(r.tiles))
	for _, t := range r.tiles {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, func(a, b *Tile) int { return cmp.Compare(a.Id(), b.Id()) })
	return tiles
}

// AllTiles loads every tile reader can enumerate.
func AllTiles(reader GraphReader) ([]*Tile, error) {
	switch r := reader.(type) {
	case *TileStore:
		return r.Tiles()
	case *MemoryGraphReader:
		return r.Tiles(), nil
	}
	return nil, fmt.Errorf("graph reader %T cannot list its tiles", reader)
}
