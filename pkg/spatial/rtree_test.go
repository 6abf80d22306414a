package spatial

import (
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func collect(t *RTree, b orb.Bound) []int64 {
	var ids []int64
	t.Search(b, func(id int64, _ orb.Point) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestRTreeInsertSearchDelete(t *testing.T) {
	tr := NewRTree()
	tr.Insert(0, orb.Point{103.800, 1.300})
	tr.Insert(1, orb.Point{103.801, 1.300})
	tr.Insert(2, orb.Point{103.900, 1.400})
	assert.Equal(t, 3, tr.Len())

	near := orb.Bound{Min: orb.Point{103.799, 1.299}, Max: orb.Point{103.802, 1.301}}
	assert.Equal(t, []int64{0, 1}, collect(tr, near))

	tr.Delete(1, orb.Point{103.801, 1.300})
	assert.Equal(t, []int64{0}, collect(tr, near))
	assert.Equal(t, 2, tr.Len())
}

func TestRTreeSearchStopsEarly(t *testing.T) {
	tr := NewRTree()
	for i := range int64(10) {
		tr.Insert(i, orb.Point{float64(i) * 0.001, 0})
	}
	calls := 0
	tr.Search(orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}, func(int64, orb.Point) bool {
		calls++
		return calls < 3
	})
	assert.Equal(t, 3, calls)
}

func TestRTreeReportsPoint(t *testing.T) {
	tr := NewRTree()
	p := orb.Point{-46.633, -23.550}
	tr.Insert(7, p)
	tr.Search(orb.Bound{Min: p, Max: p}, func(id int64, got orb.Point) bool {
		assert.Equal(t, int64(7), id)
		assert.Equal(t, p, got)
		return true
	})
}
