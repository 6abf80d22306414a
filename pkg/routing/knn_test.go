package routing

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi_router/pkg/store"
	"poi_router/pkg/store/storetest"
)

func TestCategoryBoundsExamplePOI(t *testing.T) {
	g := storetest.ExamplePOI(t)
	cs := NewCategorySearch(g)

	got, err := cs.Bounds(context.Background(), 0, []int32{storetest.CategoryFood, storetest.CategoryFuel}, Lower)
	require.NoError(t, err)
	assert.Equal(t, []Bound{
		{Category: storetest.CategoryFood, POI: 2, TravelTime: 30, ServiceTime: 2, Cost: 32},
		{Category: storetest.CategoryFuel, POI: 5, TravelTime: 31, ServiceTime: 3, Cost: 34},
	}, got)

	all, err := cs.Bounds(context.Background(), 0, nil, Upper)
	require.NoError(t, err)
	assert.Equal(t, got, all, "flat costs give equal lower and upper bounds")
}

func TestCategoryBoundsSingleAndUnknown(t *testing.T) {
	g := storetest.ExamplePOI(t)
	cs := NewCategorySearch(g)

	got, err := cs.Bounds(context.Background(), 6, []int32{storetest.CategoryFood}, Lower)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].POI)
	assert.Equal(t, int64(11), got[0].Cost)

	got, err = cs.Bounds(context.Background(), 0, []int32{42}, Lower)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCategoryBoundsServiceTimeDecides(t *testing.T) {
	g := storetest.ExamplePOI(t)
	// make the near food POI slow to serve so the far one wins
	require.NoError(t, g.SetNodeCosts(2, []int32{100, 100}))
	got, err := NewCategorySearch(g).Bounds(context.Background(), 0, []int32{storetest.CategoryFood}, Lower)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].POI)
	assert.Equal(t, int64(51), got[0].Cost)
}

func TestComputeBounds(t *testing.T) {
	g := storetest.ExamplePOI(t)
	b, err := ComputeBounds(context.Background(), g)
	require.NoError(t, err)

	tests := []struct {
		node, dist, poi int64
	}{
		{0, 30, 2},
		{2, 0, 2},
		{6, 10, 7},
		{8, 5, 9},
		{4, 6, 5},
	}
	for _, tt := range tests {
		if b.Lower[tt.node] != tt.dist || b.LowerPOI[tt.node] != tt.poi {
			t.Errorf("node %d lower = (%d, poi %d), want (%d, poi %d)",
				tt.node, b.Lower[tt.node], b.LowerPOI[tt.node], tt.dist, tt.poi)
		}
	}
	assert.Equal(t, b.Lower, b.Upper)
}

func TestKNNExamplePOI(t *testing.T) {
	g := storetest.ExamplePOI(t)
	bounds, err := ComputeBounds(context.Background(), g)
	require.NoError(t, err)
	knn := NewKNN(g, bounds)

	got, err := knn.Search(context.Background(), 0, 0, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	var ids, times []int64
	for _, nn := range got {
		ids = append(ids, nn.ID)
		times = append(times, nn.TravelTime)
		assert.Equal(t, nn.ID, nn.Path.Nodes[len(nn.Path.Nodes)-1])
		assert.Equal(t, nn.TravelTime, nn.Path.TravelTime)
	}
	assert.Equal(t, []int64{2, 5, 9}, ids)
	assert.Equal(t, []int64{30, 31, 41}, times)

	all, err := knn.Search(context.Background(), 0, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4, "fewer than k POIs exist")

	none, err := knn.Search(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestKNNMatchesExhaustiveSearch(t *testing.T) {
	for seed := range uint64(6) {
		g := randomGraph(t, seed, 60, 240)
		r := rand.New(rand.NewPCG(seed, 99))
		for range 8 {
			require.NoError(t, g.SetNodeCategory(r.Int64N(60), r.Int32N(3)))
		}
		bounds, err := ComputeBounds(context.Background(), g)
		require.NoError(t, err)

		td := NewTimeDependent(g)
		var want []int64
		for _, p := range g.POIs(nil) {
			path, err := td.ShortestPath(context.Background(), 0, p, 0)
			if err != nil {
				continue
			}
			want = append(want, path.TravelTime)
		}
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

		const k = 4
		got, err := NewKNN(g, bounds).Search(context.Background(), 0, 0, k)
		require.NoError(t, err)
		require.LessOrEqual(t, len(got), k)
		require.Len(t, got, min(k, len(want)), "seed %d", seed)

		last := int64(math.MinInt64)
		for i, nn := range got {
			assert.GreaterOrEqual(t, nn.TravelTime, last, "seed %d: results not monotone", seed)
			assert.Equal(t, want[i], nn.TravelTime, "seed %d rank %d", seed, i)
			assert.True(t, g.IsPOI(nn.ID))
			last = nn.TravelTime
		}
	}
}

func TestKNNUnknownSource(t *testing.T) {
	g := storetest.ExamplePOI(t)
	bounds, err := ComputeBounds(context.Background(), g)
	require.NoError(t, err)
	_, err = NewKNN(g, bounds).Search(context.Background(), 100, 0, 1)
	assert.ErrorIs(t, err, store.ErrNodeNotFound)
}
