package store_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi_router/pkg/store"
	"poi_router/pkg/store/storetest"
)

func newGraph(t *testing.T) *store.Graph {
	t.Helper()
	g, err := store.New(t.TempDir())
	require.NoError(t, err)
	return g
}

func TestExampleGraphSizes(t *testing.T) {
	tests := []struct {
		name         string
		build        func(testing.TB) *store.Graph
		nodes, edges int64
	}{
		{"example", storetest.Example, 6, 10},
		{"example2", storetest.Example2, 7, 8},
		{"examplePOI", storetest.ExamplePOI, 10, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build(t)
			assert.Equal(t, tt.nodes, g.NumberOfNodes())
			assert.Equal(t, tt.edges, g.NumberOfEdges())
		})
	}
}

func TestNodeRoundTrip(t *testing.T) {
	g := newGraph(t)
	n := store.NewNode(42, -23.550520, -46.633308)
	n.Category = 7
	n.Label = "Praça da Sé"
	n.Costs = []int32{1, 2, 3, 4}

	id, err := g.AddNode(n)
	require.NoError(t, err)
	got, err := g.Node(id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(42), got.ExternalID)
	assert.Equal(t, int32(7), got.Category)
	assert.Equal(t, -23.550520, got.Latitude)
	assert.Equal(t, -46.633308, got.Longitude)
	assert.Equal(t, "Praça da Sé", got.Label)
	assert.Equal(t, []int32{1, 2, 3, 4}, got.Costs)
	assert.Equal(t, store.None, got.FirstEdge)
	assert.True(t, got.IsPOI())
}

func TestLargeExternalIDRoundTrip(t *testing.T) {
	g := newGraph(t)
	id, err := g.AddNode(store.NewNode(11_000_000_000, 1, 1))
	require.NoError(t, err)
	got, err := g.Node(id)
	require.NoError(t, err)
	assert.Equal(t, int64(11_000_000_000), got.ExternalID)
}

func TestNodeNotFound(t *testing.T) {
	g := newGraph(t)
	_, err := g.Node(0)
	assert.ErrorIs(t, err, store.ErrNodeNotFound)
	_, err = g.Edge(-1)
	assert.ErrorIs(t, err, store.ErrEdgeNotFound)
}

func TestAddNodeRejectsBadCoordinates(t *testing.T) {
	g := newGraph(t)
	_, err := g.AddNode(store.NewNode(1, 91, 0))
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
	assert.Equal(t, int64(0), g.NumberOfNodes())
}

func TestAddEdgeUnknownEndpoint(t *testing.T) {
	g := newGraph(t)
	g.AddNode(store.NewNode(1, 0, 0))
	_, err := g.AddEdge(store.NewEdge(1, 0, 5, 10))
	assert.ErrorIs(t, err, store.ErrNodeNotFound)
}

func TestAddEdgeNegativeDistance(t *testing.T) {
	g := newGraph(t)
	g.AddNode(store.NewNode(1, 0, 0))
	g.AddNode(store.NewNode(2, 0, 1))
	_, err := g.AddEdge(store.NewEdge(1, 0, 1, -1))
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestAddNodeIgnoresCallerFirstEdge(t *testing.T) {
	g := newGraph(t)
	a, err := g.AddNode(&store.Node{Category: -1, Latitude: 1.3, Longitude: 103.8})
	require.NoError(t, err)
	b, err := g.AddNode(&store.Node{Category: -1, Latitude: 1.31, Longitude: 103.81, FirstEdge: 3})
	require.NoError(t, err)

	id, err := g.AddEdge(store.NewEdge(1, a, b, 10))
	require.NoError(t, err)
	for _, node := range []int64{a, b} {
		edges, err := g.IncidentEdges(node)
		require.NoError(t, err)
		assert.Equal(t, []int64{id}, edges, "node %d", node)
	}
	got, err := g.Edge(id)
	require.NoError(t, err)
	assert.Equal(t, store.None, got.FromNodeNext)
	assert.Equal(t, store.None, got.ToNodeNext)
}

func TestAddEdgeBrokenChainLeavesGraphUnchanged(t *testing.T) {
	g := newGraph(t)
	g.AddNode(store.NewNode(1, 0, 0))
	g.AddNode(store.NewNode(2, 0, 1))
	g.AddNode(store.NewNode(3, 1, 1))
	_, err := g.AddEdge(store.NewEdge(1, 0, 1, 10))
	require.NoError(t, err)

	c, err := g.Node(2)
	require.NoError(t, err)
	c.FirstEdge = 0 // edge 0 does not touch node 2
	require.NoError(t, g.UpdateNodeInfo(c))

	_, err = g.AddEdge(store.NewEdge(2, 2, 0, 5))
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
	assert.Equal(t, int64(1), g.NumberOfEdges())
	edges, err := g.IncidentEdges(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, edges)
}

func TestLabelLengthLimit(t *testing.T) {
	long := strings.Repeat("x", store.MaxLabelLength+1)
	g := newGraph(t)

	n := store.NewNode(1, 0, 0)
	n.Label = long
	_, err := g.AddNode(n)
	assert.ErrorIs(t, err, store.ErrLabelTooLong)
	assert.Equal(t, int64(0), g.NumberOfNodes())

	g.AddNode(store.NewNode(1, 0, 0))
	g.AddNode(store.NewNode(2, 0, 1))
	e := store.NewEdge(1, 0, 1, 10)
	e.Label = long
	_, err = g.AddEdge(e)
	assert.ErrorIs(t, err, store.ErrLabelTooLong)
	assert.Equal(t, int64(0), g.NumberOfEdges())

	got, err := g.Node(0)
	require.NoError(t, err)
	got.Label = long
	assert.ErrorIs(t, g.UpdateNodeInfo(got), store.ErrLabelTooLong)

	got.Label = strings.Repeat("x", store.MaxLabelLength)
	require.NoError(t, g.UpdateNodeInfo(got))
	require.NoError(t, g.Save(context.Background()))
	loaded, err := store.Open(context.Background(), g.Dir())
	require.NoError(t, err)
	n0, err := loaded.Node(0)
	require.NoError(t, err)
	assert.Len(t, n0.Label, store.MaxLabelLength)
}

func TestEdgeRoundTrip(t *testing.T) {
	g := newGraph(t)
	g.AddNode(store.NewNode(1, 1.3, 103.8))
	g.AddNode(store.NewNode(2, 1.31, 103.81))
	e := store.NewEdge(77, 0, 1, 1234)
	e.Label = "Bukit Timah Rd"
	e.Costs = []int32{5, 6}
	e.Geometry = [][2]float64{{1.3, 103.8}, {1.305, 103.805}, {1.31, 103.81}}
	id, err := g.AddEdge(e)
	require.NoError(t, err)

	got, err := g.Edge(id)
	require.NoError(t, err)
	assert.Equal(t, int64(77), got.ExternalID)
	assert.Equal(t, int64(0), got.FromNode)
	assert.Equal(t, int64(1), got.ToNode)
	assert.Equal(t, int32(1234), got.Distance)
	assert.Equal(t, "Bukit Timah Rd", got.Label)
	assert.Equal(t, []int32{5, 6}, got.Costs)
	assert.Equal(t, e.Geometry, got.Geometry)
	assert.Equal(t, store.None, got.FromNodeNext)
	assert.Equal(t, store.None, got.ToNodeNext)
}

func TestUpdateNodeInfo(t *testing.T) {
	g := newGraph(t)
	id, _ := g.AddNode(store.NewNode(1, 1.3, 103.8))

	n, err := g.Node(id)
	require.NoError(t, err)
	n.Label = "Raffles Place"
	n.Category = 3
	n.Costs = []int32{9, 9}
	n.Latitude, n.Longitude = 1.284, 103.851
	require.NoError(t, g.UpdateNodeInfo(n))

	got, err := g.Node(id)
	require.NoError(t, err)
	assert.Equal(t, "Raffles Place", got.Label)
	assert.Equal(t, int32(3), got.Category)
	assert.Equal(t, []int32{9, 9}, got.Costs)

	assert.True(t, g.HasNode(1.284, 103.851))
	assert.False(t, g.HasNode(1.3, 103.8))
	near, err := g.NearestNode(1.2841, 103.8511)
	require.NoError(t, err)
	assert.Equal(t, id, near.ID)
}

func TestUpdateEdgeInfoReplacesGeometry(t *testing.T) {
	g := storetest.Example(t)
	e, err := g.Edge(0)
	require.NoError(t, err)
	e.Geometry = [][2]float64{{1.3, 103.8}, {1.3005, 103.8}}
	e.Label = "link"
	require.NoError(t, g.UpdateEdgeInfo(e))

	got, err := g.Edge(0)
	require.NoError(t, err)
	assert.Equal(t, e.Geometry, got.Geometry)
	assert.Equal(t, "link", got.Label)

	require.NoError(t, g.SetEdgeGeometry(0, [][2]float64{{1, 2}}))
	geom, err := g.Geometry(0)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2}}, geom)
}

func TestFindEdge(t *testing.T) {
	g := storetest.Example(t)

	e, err := g.FindEdge(1, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)

	_, err = g.FindEdge(1, 2, 11)
	assert.ErrorIs(t, err, store.ErrEdgeNotFound)

	// parallel edge with a shorter distance
	p := store.NewEdge(99, 1, 2, 4)
	_, err = g.AddEdge(p)
	require.NoError(t, err)
	m, err := g.MinEdge(1, 2)
	require.NoError(t, err)
	assert.Equal(t, p.ID, m.ID)
}

func TestCategories(t *testing.T) {
	g := storetest.ExamplePOI(t)
	assert.Equal(t, []int32{storetest.CategoryFood, storetest.CategoryFuel}, g.POICategories())
	assert.Len(t, g.Categories(), 2)

	food := storetest.CategoryFood
	assert.Equal(t, []int64{2, 7}, g.POIs(&food))
	assert.Equal(t, []int64{2, 5, 7, 9}, g.POIs(nil))
	assert.True(t, g.IsPOI(5))
	assert.False(t, g.IsPOI(0))

	_, err := g.POI(0)
	assert.ErrorIs(t, err, store.ErrNodeNotFound)

	require.NoError(t, g.SetNodeCategory(0, 9))
	assert.Contains(t, g.POICategories(), int32(9))
}

func TestAddPOI(t *testing.T) {
	g := newGraph(t)
	id, err := g.AddPOI(1, 1.3, 103.8, 4, []store.LinearFunction{
		{StartTime: 0, EndTime: 100, StartCost: 10, EndCost: 20},
		{StartTime: 100, EndTime: 200, StartCost: 4, EndCost: 4},
	})
	require.NoError(t, err)
	n, err := g.POI(id)
	require.NoError(t, err)
	assert.Equal(t, []int32{15, 4}, n.Costs)
}

func TestEqual(t *testing.T) {
	a := storetest.Example(t)
	b := storetest.Example(t)
	assert.True(t, a.Equal(b))
	require.NoError(t, b.SetEdgeCosts(0, []int32{1}))
	assert.False(t, a.Equal(b))
}

func TestConcurrentNodeAppends(t *testing.T) {
	g := newGraph(t)
	errs := make(chan error, 4)
	for w := range 4 {
		go func() {
			r := rand.New(rand.NewPCG(uint64(w), 1))
			for range 250 {
				if _, err := g.AddNode(store.NewNode(int64(w), r.Float64(), r.Float64())); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}()
	}
	for range 4 {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int64(1000), g.NumberOfNodes())
	for id := range g.NumberOfNodes() {
		if _, err := g.Node(id); err != nil && !errors.Is(err, store.ErrNodeNotFound) {
			t.Fatalf("node %d: %v", id, err)
		}
	}
}
