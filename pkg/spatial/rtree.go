// Package spatial provides the point index used to map coordinates to
// graph nodes.
package spatial

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// RTree indexes node ids by their (lon, lat) point. It is safe for
// concurrent use.
type RTree struct {
	mu   sync.RWMutex
	tree rtree.RTreeG[int64]
}

// NewRTree returns an empty index.
func NewRTree() *RTree {
	return &RTree{}
}

// Insert adds id at p.
func (t *RTree) Insert(id int64, p orb.Point) {
	t.mu.Lock()
	t.tree.Insert(p, p, id)
	t.mu.Unlock()
}

// Delete removes id previously inserted at p.
func (t *RTree) Delete(id int64, p orb.Point) {
	t.mu.Lock()
	t.tree.Delete(p, p, id)
	t.mu.Unlock()
}

// Search calls iter for every entry inside b until iter returns false.
func (t *RTree) Search(b orb.Bound, iter func(id int64, p orb.Point) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.tree.Search(b.Min, b.Max, func(min, _ [2]float64, id int64) bool {
		return iter(id, orb.Point(min))
	})
}

// Len returns the number of indexed points.
func (t *RTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Len()
}
