package store

import (
	"maps"
	"slices"
)

// AddPOI appends a POI node whose service costs are sampled from fns.
func (g *Graph) AddPOI(externalID int64, lat, lon float64, category int32, fns []LinearFunction) (int64, error) {
	n := NewNode(externalID, lat, lon)
	n.Category = category
	n.Costs = FromLinearFunctions(fns)
	return g.AddNode(n)
}

// IsPOI reports whether the node at id carries a category.
func (g *Graph) IsPOI(id int64) bool {
	block, err := g.nodeBlock(id)
	return err == nil && block[nodeCategory] >= 0
}

// Category returns the category of the node at id.
func (g *Graph) Category(id int64) (int32, error) {
	block, err := g.nodeBlock(id)
	if err != nil {
		return -1, err
	}
	return block[nodeCategory], nil
}

// POI returns the node at id when it is a POI, or ErrNodeNotFound.
func (g *Graph) POI(id int64) (*Node, error) {
	n, err := g.Node(id)
	if err != nil {
		return nil, err
	}
	if !n.IsPOI() {
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// forEachCategory calls fn with the id and category of every POI.
func (g *Graph) forEachCategory(fn func(id int64, category int32)) {
	g.nodes.mu.RLock()
	defer g.nodes.mu.RUnlock()
	data := g.nodes.data
	for pos := 0; pos+nodeBlockSize <= len(data); pos += nodeBlockSize {
		if c := data[pos+nodeCategory]; c >= 0 {
			fn(int64(pos/nodeBlockSize), c)
		}
	}
}

// Categories returns the set of POI categories present in the graph.
func (g *Graph) Categories() map[int32]struct{} {
	set := make(map[int32]struct{})
	g.forEachCategory(func(_ int64, c int32) {
		set[c] = struct{}{}
	})
	return set
}

// POICategories returns the POI categories in ascending order.
func (g *Graph) POICategories() []int32 {
	return slices.Sorted(maps.Keys(g.Categories()))
}

// POIs returns the ids of POIs, restricted to category when it is non-nil.
func (g *Graph) POIs(category *int32) []int64 {
	var ids []int64
	g.forEachCategory(func(id int64, c int32) {
		if category == nil || c == *category {
			ids = append(ids, id)
		}
	})
	return ids
}
