package connectivity

import (
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"go.uber.org/zap"
)

// Map. strongly connected components of a tiled graph, keyed by node. Edges without any access are
// ignored; transition edges join the copies of a node on different hierarchy levels.
type Map struct {
	nodes     []da.GraphId
	index     map[da.GraphId]int32
	component []uint32
	sizes     []int
}

// Build runs kosaraju's algorithm over every node of tiles.
func Build(tiles []*da.Tile, log *zap.Logger) *Map {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Map{index: make(map[da.GraphId]int32)}
	for _, t := range tiles {
		for i := 0; i < t.NodeCount(); i++ {
			id := t.NodeId(uint32(i))
			m.index[id] = int32(len(m.nodes))
			m.nodes = append(m.nodes, id)
		}
	}

	n := len(m.nodes)
	out := make([][]int32, n)
	in := make([][]int32, n)
	for _, t := range tiles {
		for i := 0; i < t.NodeCount(); i++ {
			from := m.index[t.NodeId(uint32(i))]
			t.ForOutEdges(uint32(i), func(_ da.GraphId, e *da.DirectedEdge) {
				if e.ForwardAccess() == da.NO_ACCESS {
					return
				}
				to, ok := m.index[e.EndNode()]
				if !ok {
					return
				}
				out[from] = append(out[from], to)
				in[to] = append(in[to], from)
			})
		}
	}

	order := make([]int32, 0, n)
	visited := make([]bool, n)
	for v := 0; v < n; v++ {
		if !visited[v] {
			order = dfs(int32(v), out, visited, order)
		}
	}

	// second pass on the transposed graph in reverse finishing order
	clear(visited)
	m.component = make([]uint32, n)
	component := make([]int32, 0)
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		if visited[v] {
			continue
		}
		component = dfs(v, in, visited, component[:0])
		id := uint32(len(m.sizes))
		for _, u := range component {
			m.component[u] = id
		}
		m.sizes = append(m.sizes, len(component))
	}

	log.Info("connectivity map built", zap.Int("nodes", n), zap.Int("components", len(m.sizes)))
	return m
}

// dfs appends every node reachable from v in finishing order.
func dfs(v int32, adj [][]int32, visited []bool, output []int32) []int32 {
	type frame struct {
		v    int32
		next int
	}
	visited[v] = true
	stack := []frame{{v: v}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(adj[top.v]) {
			u := adj[top.v][top.next]
			top.next++
			if !visited[u] {
				visited[u] = true
				stack = append(stack, frame{v: u})
			}
			continue
		}
		output = append(output, top.v)
		stack = stack[:len(stack)-1]
	}
	return output
}

func (m *Map) NumComponents() int {
	return len(m.sizes)
}

// Component of a node. ok is false for nodes outside the map.
func (m *Map) Component(node da.GraphId) (uint32, bool) {
	i, ok := m.index[node]
	if !ok {
		return 0, false
	}
	return m.component[i], true
}

func (m *Map) ComponentSize(c uint32) int {
	if int(c) >= len(m.sizes) {
		return 0
	}
	return m.sizes[c]
}

// Regions returns the components a location's candidate edges touch.
func (m *Map) Regions(reader da.GraphReader, loc *da.Location) []uint32 {
	seen := make(map[uint32]struct{})
	regions := make([]uint32, 0, 2)
	add := func(node da.GraphId) {
		c, ok := m.Component(node)
		if !ok {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		regions = append(regions, c)
	}
	for _, pe := range loc.Edges {
		edge, _ := da.GetDirectedEdge(reader, pe.Id)
		if edge == nil {
			continue
		}
		add(edge.EndNode())
		add(da.GetStartNode(reader, pe.Id))
	}
	return regions
}

// MarkUnreachable flags every edge whose both ends lie in components with fewer than minSize nodes.
// Returns the number of flagged edges.
func (m *Map) MarkUnreachable(tiles []*da.Tile, minSize int) int {
	marked := 0
	for _, t := range tiles {
		for i := 0; i < t.NodeCount(); i++ {
			from, ok := m.Component(t.NodeId(uint32(i)))
			if !ok || m.sizes[from] >= minSize {
				continue
			}
			t.ForOutEdges(uint32(i), func(id da.GraphId, e *da.DirectedEdge) {
				to, ok := m.Component(e.EndNode())
				if ok && m.sizes[to] < minSize {
					t.MarkUnreachable(id.Index())
					marked++
				}
			})
		}
	}
	return marked
}
