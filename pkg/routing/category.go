package routing

import (
	"context"
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"poi_router/pkg/store"
)

// Mode selects which end of each cost vector a bound search uses.
type Mode uint8

const (
	// Lower weighs edges and services by their cheapest bucket.
	Lower Mode = iota
	// Upper weighs edges and services by their most expensive bucket.
	Upper
)

func (m Mode) String() string {
	if m == Upper {
		return "upper"
	}
	return "lower"
}

// Bound is the cheapest POI of one category reachable from the source:
// Cost = TravelTime + ServiceTime.
type Bound struct {
	Category    int32
	POI         int64
	TravelTime  int64
	ServiceTime int32
	Cost        int64
}

// CategorySearch finds, per POI category, the POI with the smallest
// travel plus service time.
type CategorySearch struct {
	g *store.Graph
}

// NewCategorySearch returns a bound search over g.
func NewCategorySearch(g *store.Graph) *CategorySearch {
	return &CategorySearch{g: g}
}

func edgeWeight(g *store.Graph, edge int64, mode Mode) (int32, bool) {
	if mode == Upper {
		return g.EdgeUpperCost(edge)
	}
	return g.EdgeLowerCost(edge)
}

func serviceTime(g *store.Graph, node int64, mode Mode) (int32, error) {
	if mode == Upper {
		return g.POIUpperCost(node)
	}
	return g.POILowerCost(node)
}

// Bounds returns one Bound per requested category that is reachable from
// src, in request order. An empty request means every category in the
// graph. The search ends once every category is bounded and the frontier
// is past the largest bound.
func (cs *CategorySearch) Bounds(ctx context.Context, src int64, categories []int32, mode Mode) ([]Bound, error) {
	if err := checkNode(cs.g, src); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		categories = cs.g.POICategories()
	}
	wanted := make(map[int32]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	found := make(map[int32]*Bound, len(wanted))
	upper := int64(math.MaxInt64)
	settled := roaring64.New()
	dist := map[int64]int64{src: 0}
	var pq MinHeap
	pq.Push(PQItem{Node: src})

	for pops := 1; pq.Len() > 0; pops++ {
		if pops%pollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		item := pq.Pop()
		u := uint64(item.Node)
		if settled.Contains(u) || item.Dist > dist[item.Node] {
			continue
		}
		if len(found) == len(wanted) && item.Dist > upper {
			break
		}
		settled.Add(u)

		if c, err := cs.g.Category(item.Node); err != nil {
			return nil, err
		} else if wanted[c] {
			service, err := serviceTime(cs.g, item.Node, mode)
			if err != nil {
				return nil, err
			}
			cost := item.Dist + int64(service)
			if b, ok := found[c]; !ok || cost < b.Cost {
				found[c] = &Bound{Category: c, POI: item.Node, TravelTime: item.Dist, ServiceTime: service, Cost: cost}
				upper = maxBound(found)
			}
		}

		ns, err := cs.g.OutNeighbors(item.Node)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if settled.Contains(uint64(n.Node)) {
				continue
			}
			w, ok := edgeWeight(cs.g, n.Edge, mode)
			if !ok {
				continue
			}
			d := item.Dist + int64(w)
			if old, seen := dist[n.Node]; !seen || d < old {
				dist[n.Node] = d
				pq.Push(PQItem{Node: n.Node, Dist: d})
			}
		}
	}

	out := make([]Bound, 0, len(found))
	for _, c := range categories {
		if b, ok := found[c]; ok {
			out = append(out, *b)
			delete(found, c)
		}
	}
	return out, nil
}

func maxBound(found map[int32]*Bound) int64 {
	var m int64
	for _, b := range found {
		m = max(m, b.Cost)
	}
	return m
}
