package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	tests := []int64{None, 0, 1, segmentMask, segmentSize, segmentSize + 1, 3*segmentSize + 17, 1 << 40}
	for _, i := range tests {
		if got := Index(Segment(i), Offset(i)); got != i {
			t.Errorf("Index(Segment(%d), Offset(%d)) = %d", i, i, got)
		}
	}
	assert.Equal(t, int32(1), Segment(segmentSize))
	assert.Equal(t, int32(0), Offset(segmentSize))
}

func TestIntPoolStoreLoad(t *testing.T) {
	p := intPool{stride: 1}
	assert.Equal(t, None, p.store(nil))

	a := p.store([]int32{1, 2, 3})
	b := p.store([]int32{9})
	assert.Equal(t, int64(0), a)
	assert.Equal(t, int64(4), b)

	got, ok := p.load(a)
	require.True(t, ok)
	assert.Equal(t, []int32{1, 2, 3}, got)

	v, ok := p.at(b, 0)
	require.True(t, ok)
	assert.Equal(t, int32(9), v)

	_, ok = p.load(None)
	assert.False(t, ok)
	_, ok = p.load(99)
	assert.False(t, ok)
}

func TestIntPoolReplaceTombstones(t *testing.T) {
	p := intPool{stride: 1}
	old := p.store([]int32{5, 6})
	idx := p.replace(old, []int32{7, 8, 9})

	raw, _ := p.get(old)
	assert.Equal(t, int32(-2), raw)
	_, ok := p.load(old)
	assert.False(t, ok, "tombstoned entry must not be readable")

	got, ok := p.load(idx)
	require.True(t, ok)
	assert.Equal(t, []int32{7, 8, 9}, got)

	p.tombstone(old)
	raw, _ = p.get(old)
	assert.Equal(t, int32(-2), raw, "tombstone is idempotent")
}

func TestGeometryPoolStride(t *testing.T) {
	p := intPool{stride: 2}
	pts := [][2]float64{{1.3, 103.8}, {1.301, 103.801}}
	idx := p.store(encodeGeometry(pts))
	n, ok := p.length(idx)
	require.True(t, ok)
	assert.Equal(t, 2, n)
	vals, ok := p.load(idx)
	require.True(t, ok)
	assert.Equal(t, pts, decodeGeometry(vals))
}

func TestStringPool(t *testing.T) {
	var p stringPool
	assert.Equal(t, None, p.store(""))
	i := p.store("Orchard Road")
	s, ok := p.load(i)
	require.True(t, ok)
	assert.Equal(t, "Orchard Road", s)
	_, ok = p.load(None)
	assert.False(t, ok)
}

func TestSetEdgeCostsTombstonesOldEntry(t *testing.T) {
	g, err := New(t.TempDir())
	require.NoError(t, err)
	a, _ := g.AddNode(NewNode(1, 1.3, 103.8))
	b, _ := g.AddNode(NewNode(2, 1.31, 103.81))
	e := NewEdge(1, a, b, 100)
	e.Costs = []int32{10, 20}
	id, err := g.AddEdge(e)
	require.NoError(t, err)

	old := e.CostsIndex
	require.NoError(t, g.SetEdgeCosts(id, []int32{30, 40, 50}))

	raw, _ := g.edgeCosts.get(old)
	assert.Less(t, raw, int32(0))

	got, err := g.Edge(id)
	require.NoError(t, err)
	assert.Equal(t, []int32{30, 40, 50}, got.Costs)
	assert.NotEqual(t, old, got.CostsIndex)
}

func TestInvalidEdgeRecord(t *testing.T) {
	g, err := New(t.TempDir())
	require.NoError(t, err)
	g.AddNode(NewNode(1, 0, 0))
	// an all-zero block is what an unset record looks like
	g.edges.appendBlock(make([]int32, edgeBlockSize))

	_, err = g.Edge(0)
	require.Error(t, err)
	var rec *InvalidRecordError
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, "edge", rec.Kind)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
