package store

import "fmt"

// Neighbor is one step out of a node: the edge taken, the node reached,
// the edge length and the cost of the step. Cost equals Distance unless
// the neighbor was evaluated at a time of day.
type Neighbor struct {
	Node     int64
	Edge     int64
	Distance int32
	Cost     int32
}

// link appends e at the tail of both endpoint chains. A self-loop is
// linked once, through its from-side pointer.
func (g *Graph) link(e *Edge) error {
	if err := g.linkAt(e.FromNode, e.ID); err != nil {
		return err
	}
	if e.ToNode == e.FromNode {
		return nil
	}
	return g.linkAt(e.ToNode, e.ID)
}

func (g *Graph) linkAt(node, edge int64) error {
	first, err := g.firstEdge(node)
	if err != nil {
		return err
	}
	if first == None {
		g.setFirstEdge(node, edge)
		return nil
	}

	var tail *Edge
	if err := g.walk(node, func(e *Edge) bool {
		tail = e
		return true
	}); err != nil {
		return err
	}
	tail.setNext(node, edge)
	g.setNext(tail)
	return nil
}

// walk visits every edge incident to node in chain order until fn returns
// false. A chain longer than the edge count or one that reaches an edge not
// touching node is reported as an invalid record.
func (g *Graph) walk(node int64, fn func(e *Edge) bool) error {
	cur, err := g.firstEdge(node)
	if err != nil {
		return err
	}
	limit := g.NumberOfEdges() + 1
	for steps := int64(0); cur != None; steps++ {
		if steps >= limit {
			return &InvalidRecordError{Kind: "node", ID: node, Reason: "adjacency chain does not terminate"}
		}
		e, err := g.edgeRecord(cur)
		if err != nil {
			return fmt.Errorf("chain of node %d: %w", node, err)
		}
		if e.FromNode != node && e.ToNode != node {
			return &InvalidRecordError{Kind: "node", ID: node, Reason: fmt.Sprintf("chain reaches foreign edge %d", e.ID)}
		}
		if !fn(e) {
			return nil
		}
		cur = e.next(node)
	}
	return nil
}

// IncidentEdges returns every edge touching node, in chain order.
func (g *Graph) IncidentEdges(node int64) ([]int64, error) {
	ids := []int64{}
	err := g.walk(node, func(e *Edge) bool {
		ids = append(ids, e.ID)
		return true
	})
	return ids, err
}

// OutEdges returns the ids of edges leaving node.
func (g *Graph) OutEdges(node int64) ([]int64, error) {
	ids := []int64{}
	err := g.walk(node, func(e *Edge) bool {
		if e.FromNode == node {
			ids = append(ids, e.ID)
		}
		return true
	})
	return ids, err
}

// InEdges returns the ids of edges entering node.
func (g *Graph) InEdges(node int64) ([]int64, error) {
	ids := []int64{}
	err := g.walk(node, func(e *Edge) bool {
		if e.ToNode == node {
			ids = append(ids, e.ID)
		}
		return true
	})
	return ids, err
}

// OutNeighbors returns the out-neighbors of node weighted by distance.
func (g *Graph) OutNeighbors(node int64) ([]Neighbor, error) {
	var out []Neighbor
	err := g.walk(node, func(e *Edge) bool {
		if e.FromNode == node {
			out = append(out, Neighbor{Node: e.ToNode, Edge: e.ID, Distance: e.Distance, Cost: e.Distance})
		}
		return true
	})
	return out, err
}

// OutNeighborsAndCosts returns the out-neighbors of node weighted by the
// edge cost at time t. Edges without a cost vector are left out.
func (g *Graph) OutNeighborsAndCosts(node int64, t int32) ([]Neighbor, error) {
	var out []Neighbor
	err := g.walk(node, func(e *Edge) bool {
		if e.FromNode != node {
			return true
		}
		if c, ok := g.edgeCostAt(e.CostsIndex, t); ok {
			out = append(out, Neighbor{Node: e.ToNode, Edge: e.ID, Distance: e.Distance, Cost: c})
		}
		return true
	})
	return out, err
}

// InNeighbors returns the nodes with an edge into node, weighted by
// distance.
func (g *Graph) InNeighbors(node int64) ([]Neighbor, error) {
	var out []Neighbor
	err := g.walk(node, func(e *Edge) bool {
		if e.ToNode == node {
			out = append(out, Neighbor{Node: e.FromNode, Edge: e.ID, Distance: e.Distance, Cost: e.Distance})
		}
		return true
	})
	return out, err
}

// AccessNeighborhood maps each out-neighbor of node to the shortest
// distance among the parallel edges reaching it.
func (g *Graph) AccessNeighborhood(node int64) (map[int64]int32, error) {
	ns, err := g.OutNeighbors(node)
	if err != nil {
		return nil, err
	}
	return minByNode(ns), nil
}

// AccessNeighborhoodAt is AccessNeighborhood weighted by edge cost at t.
func (g *Graph) AccessNeighborhoodAt(node int64, t int32) (map[int64]int32, error) {
	ns, err := g.OutNeighborsAndCosts(node, t)
	if err != nil {
		return nil, err
	}
	return minByNode(ns), nil
}

func minByNode(ns []Neighbor) map[int64]int32 {
	m := make(map[int64]int32, len(ns))
	for _, n := range ns {
		if c, ok := m[n.Node]; !ok || n.Cost < c {
			m[n.Node] = n.Cost
		}
	}
	return m
}

// ReverseGraph swaps the endpoints and chain pointers of every edge so
// out-edges become in-edges. Calling it twice restores the graph.
func (g *Graph) ReverseGraph() {
	g.edges.mu.Lock()
	defer g.edges.mu.Unlock()
	data := g.edges.data
	for pos := 0; pos+edgeBlockSize <= len(data); pos += edgeBlockSize {
		b := data[pos : pos+edgeBlockSize]
		if b[edgeFrom] == b[edgeTo] && b[edgeFrom+1] == b[edgeTo+1] {
			// self-loops are chained through the from-side pointer only
			continue
		}
		b[edgeFrom], b[edgeTo] = b[edgeTo], b[edgeFrom]
		b[edgeFrom+1], b[edgeTo+1] = b[edgeTo+1], b[edgeFrom+1]
		b[edgeFromNext], b[edgeToNext] = b[edgeToNext], b[edgeFromNext]
		b[edgeFromNext+1], b[edgeToNext+1] = b[edgeToNext+1], b[edgeFromNext+1]
	}
}
