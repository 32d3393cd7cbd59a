package datastructure

import "fmt"

// GraphId identifies a node or directed edge: 3 bits hierarchy level, 22 bits tile id, 21 bits index within the tile.
type GraphId uint64

const (
	levelBits = 3
	tileBits  = 22
	indexBits = 21

	maxLevel     = (1 << levelBits) - 1
	maxTileId    = (1 << tileBits) - 1
	maxTileIndex = (1 << indexBits) - 1

	InvalidGraphId GraphId = (1 << (levelBits + tileBits + indexBits)) - 1
)

func NewGraphId(tileId uint32, level uint8, index uint32) GraphId {
	return GraphId(uint64(level)&maxLevel |
		(uint64(tileId)&maxTileId)<<levelBits |
		(uint64(index)&maxTileIndex)<<(levelBits+tileBits))
}

func (g GraphId) Level() uint8 {
	return uint8(g & maxLevel)
}

func (g GraphId) TileId() uint32 {
	return uint32((g >> levelBits) & maxTileId)
}

func (g GraphId) Index() uint32 {
	return uint32((g >> (levelBits + tileBits)) & maxTileIndex)
}

// TileBase is the id of the tile that contains g.
func (g GraphId) TileBase() GraphId {
	return NewGraphId(g.TileId(), g.Level(), 0)
}

func (g GraphId) WithIndex(index uint32) GraphId {
	return NewGraphId(g.TileId(), g.Level(), index)
}

func (g GraphId) IsValid() bool {
	return g != InvalidGraphId
}

func (g GraphId) String() string {
	if !g.IsValid() {
		return "invalid"
	}
	return fmt.Sprintf("%d/%d/%d", g.Level(), g.TileId(), g.Index())
}
