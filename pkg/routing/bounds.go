package routing

import (
	"context"

	"poi_router/pkg/store"
)

// POIBounds holds, for every node, the travel time to its nearest POI
// under the cheapest (Lower) and the most expensive (Upper) bucket of each
// edge. Unreachable entries are math.MaxInt64 with POI id -1.
type POIBounds struct {
	Lower    []int64
	Upper    []int64
	LowerPOI []int64
	UpperPOI []int64
}

func (b *POIBounds) lower(node int64) int64 {
	if node >= int64(len(b.Lower)) {
		return unreached
	}
	return b.Lower[node]
}

func (b *POIBounds) upper(node int64) (int64, int64) {
	if node >= int64(len(b.Upper)) {
		return unreached, store.None
	}
	return b.Upper[node], b.UpperPOI[node]
}

// ComputeBounds runs one reverse multi-source search per mode, seeded with
// every POI of g.
func ComputeBounds(ctx context.Context, g *store.Graph) (*POIBounds, error) {
	lower, lowerPOI, err := nearestPOI(ctx, g, Lower)
	if err != nil {
		return nil, err
	}
	upper, upperPOI, err := nearestPOI(ctx, g, Upper)
	if err != nil {
		return nil, err
	}
	return &POIBounds{Lower: lower, Upper: upper, LowerPOI: lowerPOI, UpperPOI: upperPOI}, nil
}

func nearestPOI(ctx context.Context, g *store.Graph, mode Mode) ([]int64, []int64, error) {
	s := newSearchState(g.NumberOfNodes())
	origin := make([]int64, g.NumberOfNodes())
	for i := range origin {
		origin[i] = store.None
	}
	for _, p := range g.POIs(nil) {
		s.dist[p] = 0
		origin[p] = p
		s.pq.Push(PQItem{Node: p})
	}

	for {
		item, ok, err := s.next(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return s.dist, origin, nil
		}
		ns, err := g.InNeighbors(item.Node)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range ns {
			w, ok := edgeWeight(g, n.Edge, mode)
			if !ok {
				continue
			}
			if s.relax(n.Node, item.Dist+int64(w), 0, parentEntry{node: item.Node, edge: n.Edge}) {
				origin[n.Node] = origin[item.Node]
			}
		}
	}
}
