package routing

import (
	"context"
	"errors"
	"math"

	"poi_router/pkg/store"
)

// ErrNoRoute is returned when no route exists between the two nodes.
var ErrNoRoute = errors.New("no route found")

// pollEvery is how many heap pops pass between context checks.
const pollEvery = 100

const unreached = math.MaxInt64

// Step is one edge of a path. EdgeID is -1 when no stored edge matches the
// step.
type Step struct {
	From     int64
	To       int64
	EdgeID   int64
	Distance int32
	Cost     int32
	Label    string
}

// Path is a route between two nodes. Distance is in millimeters and
// TravelTime in the graph's time unit; distance searches report the
// distance as travel time.
type Path struct {
	Nodes      []int64
	Steps      []Step
	Distance   int64
	TravelTime int64
	Departure  int32
	Arrival    int32
}

// parentEntry records how a node was reached.
type parentEntry struct {
	node     int64
	edge     int64
	distance int32
	cost     int32
}

// searchState tracks tentative costs and settled nodes for one query.
type searchState struct {
	dist    []int64
	arrival []int32
	settled []bool
	parent  []parentEntry
	pq      MinHeap
	pops    int
}

func newSearchState(n int64) *searchState {
	s := &searchState{
		dist:    make([]int64, n),
		arrival: make([]int32, n),
		settled: make([]bool, n),
		parent:  make([]parentEntry, n),
		pq:      MinHeap{items: make([]PQItem, 0, 256)},
	}
	for i := range s.dist {
		s.dist[i] = unreached
		s.parent[i] = parentEntry{node: store.None, edge: store.None}
	}
	return s
}

// next pops the closest unsettled node and marks it settled. It returns
// false once the frontier is empty.
func (s *searchState) next(ctx context.Context) (PQItem, bool, error) {
	for s.pq.Len() > 0 {
		s.pops++
		if s.pops%pollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return PQItem{}, false, err
			}
		}
		item := s.pq.Pop()
		if item.Dist > s.dist[item.Node] || s.settled[item.Node] {
			continue // stale entry
		}
		s.settled[item.Node] = true
		return item, true, nil
	}
	return PQItem{}, false, nil
}

// relax lowers the tentative cost of v and pushes it when strictly better.
func (s *searchState) relax(v int64, d int64, t int32, p parentEntry) bool {
	if s.settled[v] || d >= s.dist[v] {
		return false
	}
	s.dist[v] = d
	s.arrival[v] = t
	s.parent[v] = p
	s.pq.Push(PQItem{Node: v, Dist: d, Time: t})
	return true
}

// path walks parents back from dst. When resolve is set, the edge of each
// step is looked up by (from, to, distance).
func (s *searchState) path(g *store.Graph, src, dst int64, resolve bool) (*Path, error) {
	var steps []Step
	for v := dst; v != src; {
		p := s.parent[v]
		step := Step{From: p.node, To: v, EdgeID: p.edge, Distance: p.distance, Cost: p.cost}
		if resolve {
			e, err := g.FindEdge(p.node, v, p.distance)
			switch {
			case errors.Is(err, store.ErrEdgeNotFound):
				step.EdgeID = store.None
			case err != nil:
				return nil, err
			default:
				step.EdgeID = e.ID
				step.Label = e.Label
			}
		} else if p.edge != store.None {
			if e, err := g.Edge(p.edge); err == nil {
				step.Label = e.Label
			}
		}
		steps = append(steps, step)
		v = p.node
	}

	path := &Path{Nodes: make([]int64, 0, len(steps)+1)}
	path.Nodes = append(path.Nodes, src)
	for i := len(steps) - 1; i >= 0; i-- {
		path.Steps = append(path.Steps, steps[i])
		path.Nodes = append(path.Nodes, steps[i].To)
		path.Distance += int64(steps[i].Distance)
		path.TravelTime += int64(steps[i].Cost)
	}
	return path, nil
}

func checkNode(g *store.Graph, id int64) error {
	_, err := g.Node(id)
	return err
}
