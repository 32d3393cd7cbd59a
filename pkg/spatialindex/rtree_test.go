package spatialindex

import (
	"errors"
	"testing"

	"github.com/lintang-b-s/tiledroute/pkg"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCorrelator(t *testing.T) (*Correlator, *da.GraphBuilder, int, int) {
	t.Helper()
	b := da.NewGraphBuilder(da.DefaultTileHierarchy())
	n0 := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1, Level: pkg.LOCAL_LEVEL})
	n1 := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1.001, Level: pkg.LOCAL_LEVEL})
	n2 := b.AddNode(da.NodeSpec{Lat: 1.001, Lon: 1.001, Level: pkg.LOCAL_LEVEL})
	road := da.EdgeSpec{Speed: 50, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}
	east, west := b.AddRoad(n0, n1, road, false)
	b.AddRoad(n1, n2, da.EdgeSpec{Speed: 5, Class: pkg.UNCLASSIFIED, Use: da.FOOTWAY_USE,
		Access: da.PEDESTRIAN_ACCESS}, false)
	reader, err := b.Build()
	require.NoError(t, err)

	tree := NewRtree()
	tree.Build(reader, reader.Tiles(), 10, zap.NewNop())
	require.Equal(t, 4, tree.Len())
	return NewCorrelator(tree, reader, 50, 60, 8), b, east, west
}

func TestCorrelateBothDirections(t *testing.T) {
	c, b, east, west := newCorrelator(t)

	loc, err := c.Correlate(1.0001, 1.0005, nil, nil)
	require.NoError(t, err)
	require.Len(t, loc.Edges, 2)

	byId := map[da.GraphId]da.PathEdge{}
	for _, pe := range loc.Edges {
		byId[pe.Id] = pe
	}
	require.Contains(t, byId, b.EdgeId(east))
	require.Contains(t, byId, b.EdgeId(west))
	assert.InDelta(t, 0.5, byId[b.EdgeId(east)].PercentAlong, 0.01)
	assert.InDelta(t, 0.5, byId[b.EdgeId(west)].PercentAlong, 0.01)
	// about 11m north of the road
	assert.InDelta(t, 11.1, byId[b.EdgeId(east)].Distance, 0.5)
}

func TestCorrelateHeading(t *testing.T) {
	c, b, east, _ := newCorrelator(t)

	heading := 80.0
	loc, err := c.Correlate(1.0001, 1.0005, &heading, nil)
	require.NoError(t, err)
	require.Len(t, loc.Edges, 1)
	assert.Equal(t, b.EdgeId(east), loc.Edges[0].Id)
}

func TestCorrelateFilter(t *testing.T) {
	c, _, _, _ := newCorrelator(t)

	// next to the footway only
	carsOnly := func(e *da.DirectedEdge) bool { return e.ForwardAccess()&da.AUTO_ACCESS != 0 }
	_, err := c.Correlate(1.0008, 1.0011, nil, carsOnly)
	assert.True(t, errors.Is(err, ErrNoCandidates))

	loc, err := c.Correlate(1.0008, 1.0011, nil, nil)
	require.NoError(t, err)
	assert.Len(t, loc.Edges, 2)
}

func TestCorrelateNothingNearby(t *testing.T) {
	c, _, _, _ := newCorrelator(t)
	_, err := c.Correlate(2, 2, nil, nil)
	assert.True(t, errors.Is(err, ErrNoCandidates))
}
