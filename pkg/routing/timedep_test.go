package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi_router/pkg/store"
	"poi_router/pkg/store/storetest"
)

func TestTimeDependentDependsOnDeparture(t *testing.T) {
	g := storetest.Example(t)
	td := NewTimeDependent(g)
	quarter := g.MaxTime() / 4

	tests := []struct {
		name      string
		departure int32
		nodes     []int64
		travel    int64
	}{
		// edge 1->2 is slow in the first quarter of the day
		{"night", 0, []int64{0, 1, 3, 4, 5}, 75000},
		{"morning", quarter, []int64{0, 1, 2, 3, 4, 5}, 67000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := td.ShortestPath(context.Background(), 0, 5, tt.departure)
			require.NoError(t, err)
			assert.Equal(t, tt.nodes, p.Nodes)
			assert.Equal(t, tt.travel, p.TravelTime)
			assert.Equal(t, tt.departure, p.Departure)
			assert.Equal(t, g.Arrival(tt.departure, int32(tt.travel)), p.Arrival)
			for _, s := range p.Steps {
				assert.NotEqual(t, store.None, s.EdgeID)
			}
		})
	}
}

func TestTimeDependentWrapsDeparture(t *testing.T) {
	g := storetest.Example(t)
	p, err := NewTimeDependent(g).ShortestPath(context.Background(), 0, 1, g.MaxTime()+10)
	require.NoError(t, err)
	assert.Equal(t, int32(10), p.Departure)
	assert.Equal(t, int32(15010), p.Arrival)
}

func TestTimeDependentSkipsEdgesWithoutCosts(t *testing.T) {
	g := storetest.Build(t, 3, []storetest.EdgeSpec{
		{From: 0, To: 1, Distance: 10},
		{From: 0, To: 2, Distance: 50, Costs: []int32{5}},
		{From: 2, To: 1, Distance: 50, Costs: []int32{5}},
	})
	p, err := NewTimeDependent(g).ShortestPath(context.Background(), 0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 1}, p.Nodes)
	assert.Equal(t, int64(10), p.TravelTime)

	g2 := storetest.Build(t, 2, []storetest.EdgeSpec{{From: 0, To: 1, Distance: 10}})
	_, err = NewTimeDependent(g2).ShortestPath(context.Background(), 0, 1, 0)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestTimeDependentExample2(t *testing.T) {
	g := storetest.Example2(t)
	td := NewTimeDependent(g)

	// bucket 0: 0->1->3 = 3+1, 0->2->3 = 2+4; then 3->4->5->6 = 5+2+2 vs 3->6 = 7
	p, err := td.ShortestPath(context.Background(), 0, 6, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 3, 6}, p.Nodes)
	assert.Equal(t, int64(11), p.TravelTime)
}
