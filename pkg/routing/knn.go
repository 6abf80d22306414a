package routing

import (
	"context"
	"math"
	"slices"

	"poi_router/pkg/store"
)

// NearestNeighbor is one KNN result.
type NearestNeighbor struct {
	ID         int64
	TravelTime int64
	Arrival    int32
	Path       *Path
}

// KNN finds the k POIs with the smallest time-dependent travel time from a
// source by incremental network expansion. Precomputed per-node bounds to
// the nearest POI prune the expansion.
type KNN struct {
	g      *store.Graph
	bounds *POIBounds
}

// NewKNN returns a KNN search over g using precomputed bounds.
func NewKNN(g *store.Graph, bounds *POIBounds) *KNN {
	return &KNN{g: g, bounds: bounds}
}

// Search returns at most k POIs reachable from src leaving at departure,
// in non-decreasing travel time.
func (k *KNN) Search(ctx context.Context, src int64, departure int32, n int) ([]NearestNeighbor, error) {
	if err := checkNode(k.g, src); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	departure = k.g.Arrival(departure, 0)

	s := newSearchState(k.g.NumberOfNodes())
	s.dist[src] = 0
	s.arrival[src] = departure
	s.pq.Push(PQItem{Node: src, Time: departure})

	// upper-bound candidates keyed by POI
	candidates := make(map[int64]int64)
	kth := int64(math.MaxInt64)

	var out []NearestNeighbor
	for len(out) < n {
		item, ok, err := s.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if k.g.IsPOI(item.Node) {
			p, err := s.path(k.g, src, item.Node, false)
			if err != nil {
				return nil, err
			}
			p.Departure, p.Arrival = departure, item.Time
			out = append(out, NearestNeighbor{ID: item.Node, TravelTime: item.Dist, Arrival: item.Time, Path: p})
			if len(out) == n {
				break
			}
		}

		if ub, poi := k.bounds.upper(item.Node); ub != unreached {
			if c, ok := candidates[poi]; !ok || item.Dist+ub < c {
				candidates[poi] = item.Dist + ub
				kth = kthSmallest(candidates, n)
			}
		}

		ns, err := k.g.OutNeighborsAndCosts(item.Node, item.Time)
		if err != nil {
			return nil, err
		}
		for _, nb := range ns {
			if s.settled[nb.Node] {
				continue
			}
			d := item.Dist + int64(nb.Cost)
			if lb := k.bounds.lower(nb.Node); lb == unreached || d+lb > kth {
				continue
			}
			s.relax(nb.Node, d, k.g.Arrival(item.Time, nb.Cost),
				parentEntry{node: item.Node, edge: nb.Edge, distance: nb.Distance, cost: nb.Cost})
		}
	}
	return out, nil
}

// kthSmallest returns the k-th smallest candidate value, or MaxInt64 while
// fewer than k candidates exist.
func kthSmallest(candidates map[int64]int64, k int) int64 {
	if len(candidates) < k {
		return math.MaxInt64
	}
	vals := make([]int64, 0, len(candidates))
	for _, v := range candidates {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return vals[k-1]
}
