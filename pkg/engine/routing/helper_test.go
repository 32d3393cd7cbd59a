package routing

import (
	"testing"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/stretchr/testify/require"
)

const gridStep = 0.001 // degrees, about 111m

type grid struct {
	b      *da.GraphBuilder
	reader *da.MemoryGraphReader
	nodes  [][]int
	coords map[int]geo.Coordinate
	// roads[[2]int{from, to}] is the edge handle from node handle `from` to `to`
	roads map[[2]int]int
}

// newGrid builds a rows x cols street grid on the local level. speed returns the speed of the road
// between two node handles.
func newGrid(t *testing.T, rows, cols int, speed func(a, b int) float64) *grid {
	t.Helper()
	g := &grid{
		b:      da.NewGraphBuilder(da.DefaultTileHierarchy()),
		coords: make(map[int]geo.Coordinate),
		roads:  make(map[[2]int]int),
	}
	g.nodes = make([][]int, rows)
	for r := 0; r < rows; r++ {
		g.nodes[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			lat, lon := 1+float64(r)*gridStep, 1+float64(c)*gridStep
			g.nodes[r][c] = g.b.AddNode(da.NodeSpec{Lat: lat, Lon: lon, Level: pkg.LOCAL_LEVEL})
			g.coords[g.nodes[r][c]] = geo.NewCoordinate(lat, lon)
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				g.addRoad(g.nodes[r][c], g.nodes[r][c+1], speed, false)
			}
			if r+1 < rows {
				g.addRoad(g.nodes[r][c], g.nodes[r+1][c], speed, false)
			}
		}
	}
	return g
}

func (g *grid) addRoad(a, c int, speed func(a, b int) float64, oneway bool) (int, int) {
	s := 50.0
	if speed != nil {
		s = speed(a, c)
	}
	fwd, rev := g.b.AddRoad(a, c, da.EdgeSpec{Speed: s, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}, oneway)
	g.roads[[2]int{a, c}] = fwd
	g.roads[[2]int{c, a}] = rev
	return fwd, rev
}

func (g *grid) build(t *testing.T) {
	t.Helper()
	reader, err := g.b.Build()
	require.NoError(t, err)
	g.reader = reader
}

// location on the road from a to c at pct, correlated to both directions of the road.
func (g *grid) location(a, c int, pct float64) *da.Location {
	p := geo.Interpolate(g.coords[a], g.coords[c], pct)
	loc := da.NewLocation(p.Lat, p.Lon)
	loc.Edges = append(loc.Edges, da.PathEdge{Id: g.b.EdgeId(g.roads[[2]int{a, c}]), PercentAlong: pct, Projected: p})
	if back, ok := g.roads[[2]int{c, a}]; ok {
		loc.Edges = append(loc.Edges, da.PathEdge{Id: g.b.EdgeId(back), PercentAlong: 1 - pct, Projected: p})
	}
	return &loc
}

func heapOptions() Options {
	opts := DefaultOptions()
	opts.Adjacency.Type = da.HEAP_ADJACENCY
	return opts
}

func newCosting(t *testing.T, name string) *costing.Costing {
	t.Helper()
	c, err := costing.NewDefaultFactory().Create(name, nil)
	require.NoError(t, err)
	return c
}

func pathCost(path []PathInfo) float64 {
	if len(path) == 0 {
		return -1
	}
	return path[len(path)-1].Cost
}

func pathEdges(path []PathInfo) []da.GraphId {
	ids := make([]da.GraphId, len(path))
	for i, p := range path {
		ids[i] = p.EdgeId
	}
	return ids
}
