package routing

import (
	"context"

	"poi_router/pkg/store"
)

// Dijkstra searches by edge distance.
type Dijkstra struct {
	g *store.Graph
}

// NewDijkstra returns a distance search over g.
func NewDijkstra(g *store.Graph) *Dijkstra {
	return &Dijkstra{g: g}
}

func (d *Dijkstra) run(ctx context.Context, src, dst int64) (*searchState, error) {
	if err := checkNode(d.g, src); err != nil {
		return nil, err
	}
	s := newSearchState(d.g.NumberOfNodes())
	s.dist[src] = 0
	s.pq.Push(PQItem{Node: src})

	for {
		item, ok, err := s.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok || item.Node == dst {
			return s, nil
		}
		ns, err := d.g.OutNeighbors(item.Node)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			s.relax(n.Node, item.Dist+int64(n.Distance), 0,
				parentEntry{node: item.Node, edge: store.None, distance: n.Distance, cost: n.Distance})
		}
	}
}

// ShortestPaths returns the distance in millimeters from src to every
// reachable node.
func (d *Dijkstra) ShortestPaths(ctx context.Context, src int64) (map[int64]int64, error) {
	s, err := d.run(ctx, src, store.None)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64)
	for v, dist := range s.dist {
		if dist != unreached {
			out[int64(v)] = dist
		}
	}
	return out, nil
}

// ShortestPath returns the shortest path by distance from src to dst. The
// search stops as soon as dst is settled.
func (d *Dijkstra) ShortestPath(ctx context.Context, src, dst int64) (*Path, error) {
	if err := checkNode(d.g, dst); err != nil {
		return nil, err
	}
	s, err := d.run(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	if s.dist[dst] == unreached {
		return nil, ErrNoRoute
	}
	return s.path(d.g, src, dst, true)
}
