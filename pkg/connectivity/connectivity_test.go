package connectivity

import (
	"testing"

	"github.com/lintang-b-s/tiledroute/pkg"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type network struct {
	b      *da.GraphBuilder
	reader *da.MemoryGraphReader
	// handles
	ring     []int
	island   [2]int
	oneway   int
	ringEdge int
}

// newNetwork: a four node ring, a two node island and a dead end reached by a one-way road.
func newNetwork(t *testing.T) network {
	t.Helper()
	b := da.NewGraphBuilder(da.DefaultTileHierarchy())
	road := da.EdgeSpec{Speed: 50, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}
	node := func(lat, lon float64) int {
		return b.AddNode(da.NodeSpec{Lat: lat, Lon: lon, Level: pkg.LOCAL_LEVEL})
	}

	n := network{b: b}
	n.ring = []int{node(1, 1), node(1, 1.001), node(1.001, 1.001), node(1.001, 1)}
	for i := range n.ring {
		fwd, _ := b.AddRoad(n.ring[i], n.ring[(i+1)%len(n.ring)], road, false)
		if i == 0 {
			n.ringEdge = fwd
		}
	}
	n.island = [2]int{node(1.5, 1.5), node(1.5, 1.501)}
	b.AddRoad(n.island[0], n.island[1], road, false)

	deadEnd := node(0.999, 1)
	n.oneway, _ = b.AddRoad(n.ring[0], deadEnd, road, true)

	reader, err := b.Build()
	require.NoError(t, err)
	n.reader = reader
	return n
}

func TestBuildComponents(t *testing.T) {
	n := newNetwork(t)
	m := Build(n.reader.Tiles(), nil)

	// ring, island and the dead end on its own
	assert.Equal(t, 3, m.NumComponents())

	ring, ok := m.Component(n.b.NodeId(n.ring[0]))
	require.True(t, ok)
	for _, h := range n.ring {
		c, _ := m.Component(n.b.NodeId(h))
		assert.Equal(t, ring, c)
	}
	assert.Equal(t, 4, m.ComponentSize(ring))

	island, _ := m.Component(n.b.NodeId(n.island[0]))
	assert.NotEqual(t, ring, island)
	assert.Equal(t, 2, m.ComponentSize(island))

	_, ok = m.Component(da.InvalidGraphId)
	assert.False(t, ok)
}

func TestRegions(t *testing.T) {
	n := newNetwork(t)
	m := Build(n.reader.Tiles(), nil)

	loc := &da.Location{Edges: []da.PathEdge{{Id: n.b.EdgeId(n.ringEdge), PercentAlong: 0.5}}}
	ring, _ := m.Component(n.b.NodeId(n.ring[0]))
	assert.Equal(t, []uint32{ring}, m.Regions(n.reader, loc))

	// the one-way road leaves the ring for the dead end
	loc = &da.Location{Edges: []da.PathEdge{{Id: n.b.EdgeId(n.oneway), PercentAlong: 0.5}}}
	assert.Len(t, m.Regions(n.reader, loc), 2)
}

func TestMarkUnreachable(t *testing.T) {
	n := newNetwork(t)
	m := Build(n.reader.Tiles(), nil)

	marked := m.MarkUnreachable(n.reader.Tiles(), 3)
	// both directions of the island road
	assert.Equal(t, 2, marked)

	ringEdge, _ := da.GetDirectedEdge(n.reader, n.b.EdgeId(n.ringEdge))
	assert.False(t, ringEdge.Unreachable())
	oneway, _ := da.GetDirectedEdge(n.reader, n.b.EdgeId(n.oneway))
	assert.False(t, oneway.Unreachable())
}
