package routing

import (
	"context"
	"testing"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAStarGrid(t *testing.T) {
	g := newGrid(t, 5, 5, nil)
	g.build(t)

	origin := g.location(g.nodes[0][0], g.nodes[0][1], 0.5)
	dest := g.location(g.nodes[4][3], g.nodes[4][4], 0.5)

	a := NewAStar(DefaultOptions(), nil)
	path := a.GetBestPath(context.Background(), origin, dest, g.reader,
		ModeCostings{da.DRIVE: newCosting(t, "auto")}, da.DRIVE)
	require.NotEmpty(t, path)

	assert.True(t, origin.HasEdge(path[0].EdgeId))
	assert.True(t, dest.HasEdge(path[len(path)-1].EdgeId))
	for i := 1; i < len(path); i++ {
		assert.GreaterOrEqual(t, path[i].Cost, path[i-1].Cost)
		assert.GreaterOrEqual(t, path[i].ElapsedTime, path[i-1].ElapsedTime)
	}
	assert.Greater(t, a.Stats().Iterations, 0)
}

func TestAStarSameEdge(t *testing.T) {
	g := newGrid(t, 2, 2, nil)
	g.build(t)
	a, c := g.nodes[0][0], g.nodes[0][1]
	edge := g.b.EdgeId(g.roads[[2]int{a, c}])

	origin := g.location(a, c, 0.2)
	dest := g.location(a, c, 0.7)
	auto := newCosting(t, "auto")

	path := NewAStar(DefaultOptions(), nil).GetBestPath(context.Background(), origin, dest, g.reader,
		ModeCostings{da.DRIVE: auto}, da.DRIVE)
	require.Len(t, path, 1)
	assert.Equal(t, edge, path[0].EdgeId)

	e, _ := da.GetDirectedEdge(g.reader, edge)
	assert.InDelta(t, auto.EdgeCost(e).Cost*0.5, path[0].Cost, 1e-9)
}

func TestAStarDestinationBehindOrigin(t *testing.T) {
	g := newGrid(t, 2, 2, nil)
	g.build(t)
	a, c := g.nodes[0][0], g.nodes[0][1]
	forward := g.b.EdgeId(g.roads[[2]int{a, c}])

	origin := &da.Location{Coordinate: g.coords[a], Edges: []da.PathEdge{{Id: forward, PercentAlong: 0.7}}}
	dest := &da.Location{Coordinate: g.coords[a], Edges: []da.PathEdge{{Id: forward, PercentAlong: 0.2}}}

	path := NewAStar(heapOptions(), nil).GetBestPath(context.Background(), origin, dest, g.reader,
		ModeCostings{da.DRIVE: newCosting(t, "auto")}, da.DRIVE)
	require.NotEmpty(t, path)
	// around the block and back onto the origin edge
	assert.Greater(t, len(path), 2)
	assert.Equal(t, forward, path[0].EdgeId)
	assert.Equal(t, forward, path[len(path)-1].EdgeId)
}

// A one way block a -> b -> c -> d -> a. The destination lies behind the origin on a -> b and a second
// origin candidate sits at the start of b -> c, in the same tile.
func TestAStarDestinationBehindOriginWithSecondCandidate(t *testing.T) {
	g := newGrid(t, 0, 0, nil)
	corners := []geo.Coordinate{
		geo.NewCoordinate(1, 1), geo.NewCoordinate(1, 1.001), geo.NewCoordinate(1.001, 1.001), geo.NewCoordinate(1.001, 1),
	}
	nodes := make([]int, len(corners))
	for i, c := range corners {
		nodes[i] = g.b.AddNode(da.NodeSpec{Lat: c.Lat, Lon: c.Lon, Level: pkg.LOCAL_LEVEL})
		g.coords[nodes[i]] = c
	}
	loop := make([]int, len(nodes))
	for i := range nodes {
		loop[i], _ = g.addRoad(nodes[i], nodes[(i+1)%len(nodes)], nil, true)
	}
	g.build(t)
	ab, bc := g.b.EdgeId(loop[0]), g.b.EdgeId(loop[1])

	tests := []struct {
		name string
		opts Options
	}{
		{"bucket", DefaultOptions()},
		{"heap", heapOptions()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := &da.Location{Coordinate: g.coords[nodes[0]], Edges: []da.PathEdge{
				{Id: ab, PercentAlong: 0.7},
				{Id: bc, PercentAlong: 0},
			}}
			dest := &da.Location{Coordinate: g.coords[nodes[0]], Edges: []da.PathEdge{{Id: ab, PercentAlong: 0.2}}}

			path := NewAStar(tt.opts, nil).GetBestPath(context.Background(), origin, dest, g.reader,
				ModeCostings{da.DRIVE: newCosting(t, "auto")}, da.DRIVE)
			require.NotEmpty(t, path)
			// b -> c, c -> d, d -> a, then back onto a -> b
			assert.Equal(t, []da.GraphId{bc, g.b.EdgeId(loop[2]), g.b.EdgeId(loop[3]), ab}, pathEdges(path))
		})
	}
}

func TestAStarPopsNonDecreasing(t *testing.T) {
	g := newGrid(t, 6, 6, func(a, b int) float64 { return float64(30 + (a*7+b*3)%50) })
	g.build(t)

	a := NewAStar(heapOptions(), nil)
	sortCosts := make([]float64, 0)
	a.SetExpansionCallback(func(e Expansion) {
		sortCosts = append(sortCosts, e.SortCost)
	})
	path := a.GetBestPath(context.Background(), g.location(g.nodes[0][0], g.nodes[0][1], 0.3),
		g.location(g.nodes[5][4], g.nodes[5][5], 0.6), g.reader, ModeCostings{da.DRIVE: newCosting(t, "auto")}, da.DRIVE)
	require.NotEmpty(t, path)
	require.NotEmpty(t, sortCosts)

	for i := 1; i < len(sortCosts); i++ {
		assert.GreaterOrEqual(t, sortCosts[i]+1e-6, sortCosts[i-1], "pop %d", i)
	}
}

func TestAStarClearIsIdempotent(t *testing.T) {
	g := newGrid(t, 5, 5, func(a, b int) float64 { return float64(20 + (a+b)%4*10) })
	g.build(t)
	origin := g.location(g.nodes[0][0], g.nodes[1][0], 0.5)
	dest := g.location(g.nodes[3][4], g.nodes[4][4], 0.5)
	costings := ModeCostings{da.DRIVE: newCosting(t, "auto")}

	a := NewAStar(DefaultOptions(), nil)
	first := a.GetBestPath(context.Background(), origin, dest, g.reader, costings, da.DRIVE)
	a.Clear()
	second := a.GetBestPath(context.Background(), origin, dest, g.reader, costings, da.DRIVE)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestAStarNoPath(t *testing.T) {
	g := newGrid(t, 2, 2, nil)
	island := g.b.AddNode(da.NodeSpec{Lat: 1.5, Lon: 1.5, Level: pkg.LOCAL_LEVEL})
	island2 := g.b.AddNode(da.NodeSpec{Lat: 1.5, Lon: 1.501, Level: pkg.LOCAL_LEVEL})
	g.coords[island] = geo.NewCoordinate(1.5, 1.5)
	g.coords[island2] = geo.NewCoordinate(1.5, 1.501)
	g.addRoad(island, island2, nil, false)
	g.build(t)

	a := NewAStar(DefaultOptions(), nil)
	path := a.GetBestPath(context.Background(), g.location(g.nodes[0][0], g.nodes[0][1], 0.5),
		g.location(island, island2, 0.5), g.reader, ModeCostings{da.DRIVE: newCosting(t, "auto")}, da.DRIVE)
	assert.Empty(t, path)
	assert.False(t, a.Stats().Interrupted)
}

func TestAStarInterrupted(t *testing.T) {
	g := newGrid(t, 5, 5, nil)
	g.build(t)
	origin := g.location(g.nodes[0][0], g.nodes[0][1], 0.5)
	dest := g.location(g.nodes[4][3], g.nodes[4][4], 0.5)
	costings := ModeCostings{da.DRIVE: newCosting(t, "auto")}

	opts := DefaultOptions()
	opts.MaxIterations = 2
	a := NewAStar(opts, nil)
	assert.Empty(t, a.GetBestPath(context.Background(), origin, dest, g.reader, costings, da.DRIVE))
	assert.True(t, a.Stats().Interrupted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a = NewAStar(DefaultOptions(), nil)
	assert.Empty(t, a.GetBestPath(ctx, origin, dest, g.reader, costings, da.DRIVE))
	assert.True(t, a.Stats().Interrupted)
}

func TestAStarOneWayBicycle(t *testing.T) {
	b := da.NewGraphBuilder(da.DefaultTileHierarchy())
	n0 := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1, Level: pkg.LOCAL_LEVEL})
	n1 := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1.001, Level: pkg.LOCAL_LEVEL})
	n2 := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1.002, Level: pkg.LOCAL_LEVEL})
	spec := da.EdgeSpec{Speed: 30, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}
	e01, _ := b.AddRoad(n0, n1, spec, false)
	// one-way from n2 to n1 only
	e21, e12 := b.AddRoad(n2, n1, spec, true)
	reader, err := b.Build()
	require.NoError(t, err)

	origin := &da.Location{Edges: []da.PathEdge{{Id: b.EdgeId(e01), PercentAlong: 0.5}}}
	dest := &da.Location{Edges: []da.PathEdge{{Id: b.EdgeId(e21), PercentAlong: 0.5}, {Id: b.EdgeId(e12), PercentAlong: 0.5}}}

	path := NewAStar(DefaultOptions(), nil).GetBestPath(context.Background(), origin, dest, reader,
		ModeCostings{da.BICYCLE: newCosting(t, "bicycle")}, da.BICYCLE)
	assert.Empty(t, path)
}

// explored returns every edge settled by a search.
func explored(t *testing.T, a *AStar, origin, dest *da.Location, reader da.GraphReader,
	costings ModeCostings) map[da.GraphId]bool {
	t.Helper()
	set := make(map[da.GraphId]bool)
	a.SetExpansionCallback(func(e Expansion) { set[e.EdgeId] = true })
	a.GetBestPath(context.Background(), origin, dest, reader, costings, da.DRIVE)
	a.Clear()
	return set
}

func TestAStarRelaxedLimitsWidenExpansion(t *testing.T) {
	b := da.NewGraphBuilder(da.DefaultTileHierarchy())
	spec := da.EdgeSpec{Speed: 50, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}
	local := make([]int, 10)
	for i := range local {
		local[i] = b.AddNode(da.NodeSpec{Lat: 1, Lon: 1 + float64(i)*gridStep, Level: pkg.LOCAL_LEVEL})
		arterial := b.AddNode(da.NodeSpec{Lat: 1, Lon: 1 + float64(i)*gridStep, Level: pkg.ARTERIAL_LEVEL})
		b.AddTransition(local[i], arterial)
	}
	first := -1
	for i := 0; i+1 < len(local); i++ {
		fwd, _ := b.AddRoad(local[i], local[i+1], spec, false)
		if first < 0 {
			first = fwd
		}
	}
	far0 := b.AddNode(da.NodeSpec{Lat: 1.1, Lon: 1.1, Level: pkg.LOCAL_LEVEL})
	far1 := b.AddNode(da.NodeSpec{Lat: 1.1, Lon: 1.101, Level: pkg.LOCAL_LEVEL})
	unreachable, _ := b.AddRoad(far0, far1, spec, false)
	reader, err := b.Build()
	require.NoError(t, err)

	origin := &da.Location{Edges: []da.PathEdge{{Id: b.EdgeId(first), PercentAlong: 0}}}
	dest := da.NewLocation(1.1, 1.1005)
	dest.Edges = []da.PathEdge{{Id: b.EdgeId(unreachable), PercentAlong: 0.5}}

	auto := newCosting(t, "auto")
	limits := da.DefaultHierarchyLimits()
	limits[pkg.LOCAL_LEVEL] = da.NewHierarchyLimits(2, 10)
	auto.SetHierarchyLimits(limits)

	a := NewAStar(heapOptions(), nil)
	strict := explored(t, a, origin, &dest, reader, ModeCostings{da.DRIVE: auto})

	relaxed := auto.Clone()
	relaxed.RelaxHierarchyLimits(a.Capabilities().RelaxFactor, a.Capabilities().ExpansionWithinFactor)
	wide := explored(t, a, origin, &dest, reader, ModeCostings{da.DRIVE: relaxed})

	for id := range strict {
		assert.True(t, wide[id], "edge %s explored only by the strict pass", id)
	}
	assert.Greater(t, len(wide), len(strict))
}

func TestAStarDisabledHighwayTransitionsKeepArterials(t *testing.T) {
	// local -> arterial -> local, no highway level at all
	b := da.NewGraphBuilder(da.DefaultTileHierarchy())
	local := func(lon float64) int {
		return b.AddNode(da.NodeSpec{Lat: 1, Lon: lon, Level: pkg.LOCAL_LEVEL})
	}
	arterial := func(lon float64) int {
		return b.AddNode(da.NodeSpec{Lat: 1, Lon: lon, Level: pkg.ARTERIAL_LEVEL})
	}
	street := da.EdgeSpec{Speed: 30, Class: pkg.RESIDENTIAL, Access: da.ALL_ACCESS}
	primary := da.EdgeSpec{Speed: 60, Class: pkg.PRIMARY, Access: da.ALL_ACCESS}

	l0, l1 := local(1), local(1.001)
	l2, l3 := local(1.01), local(1.011)
	a1, a2 := arterial(1.001), arterial(1.01)
	b.AddTransition(l1, a1)
	b.AddTransition(l2, a2)
	start, _ := b.AddRoad(l0, l1, street, false)
	mainRoad, _ := b.AddRoad(a1, a2, primary, false)
	end, _ := b.AddRoad(l2, l3, street, false)
	reader, err := b.Build()
	require.NoError(t, err)

	origin := &da.Location{Edges: []da.PathEdge{{Id: b.EdgeId(start), PercentAlong: 0}}}
	dest := &da.Location{Edges: []da.PathEdge{{Id: b.EdgeId(end), PercentAlong: 0.5}}}

	auto := newCosting(t, "auto")
	relaxed := auto.Clone()
	relaxed.RelaxHierarchyLimits(16, 4)
	disabled := relaxed.Clone()
	disabled.DisableHighwayTransitions()

	a := NewAStar(DefaultOptions(), nil)
	var paths [][]da.GraphId
	for _, c := range []*costing.Costing{auto, relaxed, disabled} {
		path := a.GetBestPath(context.Background(), origin, dest, reader, ModeCostings{da.DRIVE: c}, da.DRIVE)
		a.Clear()
		require.NotEmpty(t, path)
		paths = append(paths, pathEdges(path))
	}
	assert.Contains(t, paths[2], b.EdgeId(mainRoad))
	assert.Equal(t, paths[1], paths[2])
	assert.Equal(t, paths[0], paths[2])

	wide := explored(t, a, origin, dest, reader, ModeCostings{da.DRIVE: relaxed})
	narrow := explored(t, a, origin, dest, reader, ModeCostings{da.DRIVE: disabled})
	require.NotEmpty(t, wide)
	for id := range wide {
		assert.True(t, narrow[id], "edge %s explored only by the relaxed pass", id)
	}
}
