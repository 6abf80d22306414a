package store_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi_router/pkg/store"
	"poi_router/pkg/store/storetest"
)

func TestOutEdgesEmptyNode(t *testing.T) {
	g := newGraph(t)
	id, _ := g.AddNode(store.NewNode(1, 0, 0))
	out, err := g.OutEdges(id)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOutAndInEdges(t *testing.T) {
	g := storetest.Example(t)

	out, err := g.OutEdges(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, out)

	in, err := g.InEdges(3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{4, 5}, in)

	ns, err := g.OutNeighbors(0)
	require.NoError(t, err)
	assert.Equal(t, []store.Neighbor{{Node: 1, Edge: 0, Distance: 15, Cost: 15}, {Node: 2, Edge: 2, Distance: 40, Cost: 40}}, ns)
}

func TestOutNeighborsAndCosts(t *testing.T) {
	g := storetest.Example(t)
	ns, err := g.OutNeighborsAndCosts(1, 0)
	require.NoError(t, err)
	assert.Contains(t, ns, store.Neighbor{Node: 2, Edge: 3, Distance: 10, Cost: 100000})

	quarter := g.MaxTime() / 4
	ns, err = g.OutNeighborsAndCosts(1, quarter)
	require.NoError(t, err)
	assert.Contains(t, ns, store.Neighbor{Node: 2, Edge: 3, Distance: 10, Cost: 10000})
}

func TestAccessNeighborhoodKeepsMinimum(t *testing.T) {
	g := storetest.Example(t)
	e := store.NewEdge(1, 0, 1, 5)
	e.Costs = []int32{1}
	_, err := g.AddEdge(e)
	require.NoError(t, err)

	m, err := g.AccessNeighborhood(0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int32{1: 5, 2: 40}, m)

	m, err = g.AccessNeighborhoodAt(0, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int32{1: 1, 2: 40000}, m)
}

func TestChainVisitsEachIncidentEdgeOnce(t *testing.T) {
	const nodes = 12
	type pair struct{ from, to int64 }
	r := rand.New(rand.NewPCG(7, 7))

	var pairs []pair
	for range 60 {
		pairs = append(pairs, pair{r.Int64N(nodes), r.Int64N(nodes)})
	}
	// self-loops and parallel edges on purpose
	pairs = append(pairs, pair{3, 3}, pair{3, 3}, pair{4, 5}, pair{4, 5})

	for trial := range 5 {
		r.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
		g := newGraph(t)
		for i := range nodes {
			g.AddNode(store.NewNode(int64(i), storetest.NodeLat(i), storetest.NodeLon(i)))
		}
		want := make(map[int64][]int64)
		for i, p := range pairs {
			id, err := g.AddEdge(store.NewEdge(int64(i), p.from, p.to, 1))
			require.NoError(t, err)
			want[p.from] = append(want[p.from], id)
			if p.to != p.from {
				want[p.to] = append(want[p.to], id)
			}

			out, err := g.OutEdges(p.from)
			require.NoError(t, err)
			require.Contains(t, out, id, "trial %d: edge %d missing right after insert", trial, id)
		}
		for n := range int64(nodes) {
			got, err := g.IncidentEdges(n)
			require.NoError(t, err)
			assert.Equal(t, want[n], got, "trial %d node %d", trial, n)
		}
	}
}

func TestReverseGraphIsInvolution(t *testing.T) {
	g := storetest.Example(t)
	g.AddEdge(store.NewEdge(1, 2, 2, 3)) // self-loop

	before := make([]*store.Edge, g.NumberOfEdges())
	outBefore := make([][]int64, g.NumberOfNodes())
	inBefore := make([][]int64, g.NumberOfNodes())
	for id := range g.NumberOfEdges() {
		e, err := g.Edge(id)
		require.NoError(t, err)
		before[id] = e
	}
	for n := range g.NumberOfNodes() {
		outBefore[n], _ = g.OutEdges(n)
		inBefore[n], _ = g.InEdges(n)
	}

	g.ReverseGraph()
	for n := range g.NumberOfNodes() {
		out, err := g.OutEdges(n)
		require.NoError(t, err)
		assert.ElementsMatch(t, inBefore[n], out, "node %d", n)
	}
	e, _ := g.Edge(0)
	assert.Equal(t, int64(1), e.FromNode)
	assert.Equal(t, int64(0), e.ToNode)

	g.ReverseGraph()
	for id := range g.NumberOfEdges() {
		e, err := g.Edge(id)
		require.NoError(t, err)
		assert.Equal(t, before[id], e)
	}
	for n := range g.NumberOfNodes() {
		out, _ := g.OutEdges(n)
		assert.True(t, slices.Equal(outBefore[n], out))
	}
}
