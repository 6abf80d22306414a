package store

import (
	"fmt"
	"slices"
	"strings"
)

// TimeUnit is the granularity of travel and service costs. All costs and
// clock times of a graph share one unit.
type TimeUnit uint8

const (
	Millisecond TimeUnit = iota
	Second
	Minute
	Hour
)

// MaxTime returns the length of one daily cycle in u, or 0 for an unknown
// unit.
func (u TimeUnit) MaxTime() int32 {
	switch u {
	case Millisecond:
		return 86_400_000
	case Second:
		return 86_400
	case Minute:
		return 1_440
	case Hour:
		return 24
	}
	return 0
}

func (u TimeUnit) String() string {
	switch u {
	case Millisecond:
		return "ms"
	case Second:
		return "s"
	case Minute:
		return "min"
	case Hour:
		return "h"
	}
	return fmt.Sprintf("TimeUnit(%d)", uint8(u))
}

// ParseTimeUnit accepts the names printed by String.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ms", "millisecond", "milliseconds":
		return Millisecond, nil
	case "s", "second", "seconds":
		return Second, nil
	case "min", "minute", "minutes":
		return Minute, nil
	case "h", "hour", "hours":
		return Hour, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", s)
}

func (u *TimeUnit) UnmarshalText(b []byte) error {
	v, err := ParseTimeUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// MaxTime returns the cycle length of the graph's time unit.
func (g *Graph) MaxTime() int32 {
	return g.opts.TimeUnit.MaxTime()
}

// normalize folds t into [0, maxTime).
func normalize(t, maxTime int32) int32 {
	t %= maxTime
	if t < 0 {
		t += maxTime
	}
	return t
}

// Bucket returns the index of the bucket containing t when the cycle is
// split into n equal buckets.
func Bucket(t, maxTime int32, n int) int {
	if n <= 0 {
		return 0
	}
	width := maxTime / int32(n)
	if width <= 0 {
		width = 1
	}
	b := int(normalize(t, maxTime) / width)
	return min(b, n-1)
}

// Arrival advances the daily clock from departure by travel, wrapping at
// the end of the cycle.
func (g *Graph) Arrival(departure, travel int32) int32 {
	maxTime := int64(g.MaxTime())
	return int32(((int64(departure)+int64(travel))%maxTime + maxTime) % maxTime)
}

func (g *Graph) edgeCostAt(costsIdx int64, t int32) (int32, bool) {
	n, ok := g.edgeCosts.length(costsIdx)
	if !ok || n == 0 {
		return 0, false
	}
	return g.edgeCosts.at(costsIdx, Bucket(t, g.MaxTime(), n))
}

// EdgeCost returns the traversal cost of e when entered at time t. It
// reports false when the edge has no cost vector.
func (g *Graph) EdgeCost(e *Edge, t int32) (int32, bool) {
	return g.edgeCostAt(e.CostsIndex, t)
}

// EdgeCostByID is EdgeCost for an edge id.
func (g *Graph) EdgeCostByID(id int64, t int32) (int32, bool) {
	block, err := g.edgeBlock(id)
	if err != nil {
		return 0, false
	}
	return g.edgeCostAt(getIndex(block[edgeCosts:]), t)
}

// EdgeCosts returns the cost vector of an edge.
func (g *Graph) EdgeCosts(id int64) ([]int32, bool) {
	block, err := g.edgeBlock(id)
	if err != nil {
		return nil, false
	}
	return g.edgeCosts.load(getIndex(block[edgeCosts:]))
}

// EdgeLowerCost returns the smallest bucket cost of an edge.
func (g *Graph) EdgeLowerCost(id int64) (int32, bool) {
	costs, ok := g.EdgeCosts(id)
	if !ok {
		return 0, false
	}
	return MinCost(costs), true
}

// EdgeUpperCost returns the largest bucket cost of an edge.
func (g *Graph) EdgeUpperCost(id int64) (int32, bool) {
	costs, ok := g.EdgeCosts(id)
	if !ok {
		return 0, false
	}
	return MaxCost(costs), true
}

// SetEdgeCosts replaces the cost vector of an edge. The previous entry is
// tombstoned.
func (g *Graph) SetEdgeCosts(id int64, costs []int32) error {
	block, err := g.edgeBlock(id)
	if err != nil {
		return err
	}
	idx := g.edgeCosts.replace(getIndex(block[edgeCosts:]), costs)
	g.edges.write(id*edgeBlockSize+edgeCosts, Segment(idx), Offset(idx))
	return nil
}

// SetNodeCosts replaces the service cost vector of a node.
func (g *Graph) SetNodeCosts(id int64, costs []int32) error {
	block, err := g.nodeBlock(id)
	if err != nil {
		return err
	}
	idx := g.nodeCosts.replace(getIndex(block[nodeCosts:]), costs)
	g.nodes.write(id*nodeBlockSize+nodeCosts, Segment(idx), Offset(idx))
	return nil
}

func (g *Graph) nodeCostVector(id int64) ([]int32, error) {
	block, err := g.nodeBlock(id)
	if err != nil {
		return nil, err
	}
	costs, _ := g.nodeCosts.load(getIndex(block[nodeCosts:]))
	return costs, nil
}

// POICost returns the service time of a POI reached at time t. A node
// without a cost vector is served instantly.
func (g *Graph) POICost(id int64, t int32) (int32, error) {
	costs, err := g.nodeCostVector(id)
	if err != nil || len(costs) == 0 {
		return 0, err
	}
	fns := ToLinearFunctions(costs, g.MaxTime())
	t = normalize(t, g.MaxTime())
	for _, f := range fns {
		if f.EndTime > t {
			return f.Eval(t), nil
		}
	}
	return fns[len(fns)-1].Eval(t), nil
}

// POIBaseCost is the service time of a POI at the start of the cycle.
func (g *Graph) POIBaseCost(id int64) (int32, error) {
	return g.POICost(id, 0)
}

// POILowerCost and POIUpperCost bound the service time of a node over the
// whole cycle. Nodes without costs yield 0.
func (g *Graph) POILowerCost(id int64) (int32, error) {
	costs, err := g.nodeCostVector(id)
	if err != nil || len(costs) == 0 {
		return 0, err
	}
	return MinCost(costs), nil
}

func (g *Graph) POIUpperCost(id int64) (int32, error) {
	costs, err := g.nodeCostVector(id)
	if err != nil || len(costs) == 0 {
		return 0, err
	}
	return MaxCost(costs), nil
}

// MinCost returns the smallest value of costs, or 0 when empty.
func MinCost(costs []int32) int32 {
	if len(costs) == 0 {
		return 0
	}
	return slices.Min(costs)
}

// MaxCost returns the largest value of costs, or 0 when empty.
func MaxCost(costs []int32) int32 {
	if len(costs) == 0 {
		return 0
	}
	return slices.Max(costs)
}

// LinearFunction is one piece of a piecewise-linear cost function over
// [StartTime, EndTime).
type LinearFunction struct {
	StartTime int32
	EndTime   int32
	StartCost int32
	EndCost   int32
}

// Eval interpolates the cost at t.
func (f LinearFunction) Eval(t int32) int32 {
	if f.EndTime == f.StartTime || f.StartCost == f.EndCost {
		return f.StartCost
	}
	span := int64(f.EndTime - f.StartTime)
	return f.StartCost + int32(int64(f.EndCost-f.StartCost)*int64(t-f.StartTime)/span)
}

// ToLinearFunctions spreads a cost vector of length L over ceil(L/2)
// flat pieces of equal width. Piece i costs costs[i].
func ToLinearFunctions(costs []int32, maxTime int32) []LinearFunction {
	if len(costs) == 0 {
		return nil
	}
	n := (len(costs) + 1) / 2
	width := maxTime / int32(n)
	fns := make([]LinearFunction, n)
	for i := range fns {
		start := int32(i) * width
		end := start + width
		if i == n-1 {
			end = maxTime
		}
		fns[i] = LinearFunction{StartTime: start, EndTime: end, StartCost: costs[i], EndCost: costs[i]}
	}
	return fns
}

// FromLinearFunctions turns each piece into one bucket cost, the mean of
// its start and end costs.
func FromLinearFunctions(fns []LinearFunction) []int32 {
	costs := make([]int32, len(fns))
	for i, f := range fns {
		costs[i] = int32((int64(f.StartCost) + int64(f.EndCost)) / 2)
	}
	return costs
}
