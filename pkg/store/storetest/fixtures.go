// Package storetest builds the small graphs shared by the store, routing
// and API tests.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"poi_router/pkg/store"
)

// EdgeSpec describes one directed edge of a fixture graph.
type EdgeSpec struct {
	From, To int64
	Distance int32
	Costs    []int32
}

// Build creates a graph in a temp dir with n nodes laid out on a line
// near (1.3, 103.8) and the given edges.
func Build(t testing.TB, n int, edges []EdgeSpec, optFns ...func(*store.Options)) *store.Graph {
	t.Helper()
	g, err := store.New(t.TempDir(), optFns...)
	require.NoError(t, err)
	for i := range n {
		_, err := g.AddNode(store.NewNode(int64(1000+i), NodeLat(i), NodeLon(i)))
		require.NoError(t, err)
	}
	for i, e := range edges {
		edge := store.NewEdge(int64(5000+i), e.From, e.To, e.Distance)
		edge.Costs = e.Costs
		_, err := g.AddEdge(edge)
		require.NoError(t, err)
	}
	return g
}

// NodeLat and NodeLon give the position of fixture node i, already at
// stored precision.
func NodeLat(i int) float64 { return store.DecodeCoord(1_300_000 + int32(i%3)*1_000) }
func NodeLon(i int) float64 { return store.DecodeCoord(103_800_000 + int32(i/3)*1_000) }

func flat(c int32) []int32 { return []int32{c, c, c, c} }

// Example is the 6 node, 10 edge graph. Shortest distances from node 0
// are 0, 15, 25, 37, 57, 67. Costs are distance*1000 ms except edge 3
// (1->2), which costs 100000 in the first quarter of the day.
func Example(t testing.TB) *store.Graph {
	return Build(t, 6, []EdgeSpec{
		{0, 1, 15, flat(15000)},
		{1, 0, 15, flat(15000)},
		{0, 2, 40, flat(40000)},
		{1, 2, 10, []int32{100000, 10000, 10000, 10000}},
		{1, 3, 30, flat(30000)},
		{2, 3, 12, flat(12000)},
		{3, 4, 20, flat(20000)},
		{2, 4, 45, flat(45000)},
		{4, 5, 10, flat(10000)},
		{3, 5, 35, flat(35000)},
	})
}

// ExampleDistances are the shortest distances from node 0 in Example.
var ExampleDistances = map[int64]int64{0: 0, 1: 15, 2: 25, 3: 37, 4: 57, 5: 67}

// Example2 is the 7 node, 8 edge graph with minute costs. Edge 1 spans
// [2, 10], edge 2 spans [1, 2] and edge 7 spans [2, 15].
func Example2(t testing.TB) *store.Graph {
	return Build(t, 7, []EdgeSpec{
		{0, 1, 300, []int32{3, 3, 5, 4}},
		{0, 2, 200, []int32{2, 10, 6, 4}},
		{1, 3, 100, []int32{1, 2, 2, 1}},
		{2, 3, 400, []int32{4, 4, 4, 4}},
		{3, 4, 500, []int32{5, 3, 3, 5}},
		{4, 5, 200, []int32{2, 2, 2, 2}},
		{3, 6, 700, []int32{7, 8, 9, 7}},
		{5, 6, 200, []int32{2, 15, 8, 3}},
	}, func(o *store.Options) { o.TimeUnit = store.Minute })
}

// POI categories of ExamplePOI.
const (
	CategoryFood int32 = 1
	CategoryFuel int32 = 2
)

// ExamplePOI is the 10 node, 13 edge graph with four POIs. Travel times
// from node 0: node 2 (food, service 2) at 30, node 5 (fuel, service 3)
// at 31, node 9 (fuel, service 4) at 41, node 7 (food, service 1) at 50.
func ExamplePOI(t testing.TB) *store.Graph {
	t.Helper()
	g := Build(t, 10, []EdgeSpec{
		{0, 1, 1000, flat(10)},
		{1, 0, 1000, flat(10)},
		{1, 2, 2000, flat(20)},
		{2, 1, 2000, flat(20)},
		{0, 3, 1500, flat(15)},
		{3, 4, 1000, flat(10)},
		{4, 5, 600, flat(6)},
		{1, 6, 3000, flat(30)},
		{6, 7, 1000, flat(10)},
		{3, 8, 4000, flat(40)},
		{8, 9, 500, flat(5)},
		{5, 9, 1000, flat(10)},
		{7, 5, 500, flat(5)},
	})
	pois := []struct {
		id       int64
		category int32
		service  int32
	}{
		{2, CategoryFood, 2},
		{5, CategoryFuel, 3},
		{7, CategoryFood, 1},
		{9, CategoryFuel, 4},
	}
	for _, p := range pois {
		n, err := g.Node(p.id)
		require.NoError(t, err)
		n.Category = p.category
		n.Label = "poi"
		n.Costs = flat(p.service)
		require.NoError(t, g.UpdateNodeInfo(n))
	}
	return g
}
