package routing

import (
	"context"

	"poi_router/pkg/store"
)

// TimeDependent searches by travel time, evaluating each edge at the time
// of day it is entered. Edges without costs cannot be traversed.
//
// Optimality holds only for FIFO cost vectors, which are not checked.
type TimeDependent struct {
	g *store.Graph
}

// NewTimeDependent returns a time-dependent search over g.
func NewTimeDependent(g *store.Graph) *TimeDependent {
	return &TimeDependent{g: g}
}

// ShortestPath returns the fastest path from src to dst leaving at
// departure.
func (td *TimeDependent) ShortestPath(ctx context.Context, src, dst int64, departure int32) (*Path, error) {
	if err := checkNode(td.g, src); err != nil {
		return nil, err
	}
	if err := checkNode(td.g, dst); err != nil {
		return nil, err
	}
	departure = td.g.Arrival(departure, 0)

	s := newSearchState(td.g.NumberOfNodes())
	s.dist[src] = 0
	s.arrival[src] = departure
	s.pq.Push(PQItem{Node: src, Time: departure})

	for {
		item, ok, err := s.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoRoute
		}
		if item.Node == dst {
			break
		}
		ns, err := td.g.OutNeighborsAndCosts(item.Node, item.Time)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			s.relax(n.Node, item.Dist+int64(n.Cost), td.g.Arrival(item.Time, n.Cost),
				parentEntry{node: item.Node, edge: n.Edge, distance: n.Distance, cost: n.Cost})
		}
	}

	p, err := s.path(td.g, src, dst, false)
	if err != nil {
		return nil, err
	}
	p.Departure = departure
	p.Arrival = s.arrival[dst]
	return p, nil
}
