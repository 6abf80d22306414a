// Package importer loads road networks from OpenStreetMap PBF extracts and
// points of interest from delimited text into a store.Graph.
package importer

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"poi_router/pkg/geo"
	"poi_router/pkg/logging"
	"poi_router/pkg/store"
)

// carHighways maps highway tag values accessible by car to a free-flow
// speed in km/h.
var carHighways = map[string]float64{
	"motorway":       100,
	"motorway_link":  60,
	"trunk":          80,
	"trunk_link":     50,
	"primary":        60,
	"primary_link":   40,
	"secondary":      50,
	"secondary_link": 40,
	"tertiary":       40,
	"tertiary_link":  30,
	"unclassified":   30,
	"residential":    30,
	"living_street":  10,
	"service":        15,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if _, ok := carHighways[tags.Find("highway")]; !ok {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		forward = false
		backward = false
	}

	return forward, backward
}

// speedOf returns the speed in km/h for a way, honouring a numeric maxspeed
// tag when present.
func speedOf(tags osm.Tags) float64 {
	var v float64
	if _, err := fmt.Sscanf(tags.Find("maxspeed"), "%g", &v); err == nil && v > 0 {
		return v
	}
	return carHighways[tags.Find("highway")]
}

// way is a drivable way collected during the first pass.
type way struct {
	ID       osm.WayID
	Nodes    []osm.NodeID
	Forward  bool
	Backward bool
	Speed    float64
	Name     string
}

// OSMOptions configures ImportOSM.
type OSMOptions struct {
	// Bound keeps only road segments with both ends inside it when non-empty.
	Bound orb.Bound
	// LargestComponent drops everything outside the largest weakly
	// connected component.
	LargestComponent bool
	// Buckets is the length of the cost vector written on each edge.
	Buckets int
	Logger  *logging.Logger
}

// DefaultOSMOptions keeps every component and writes one cost bucket.
func DefaultOSMOptions() OSMOptions {
	return OSMOptions{Buckets: 1, Logger: logging.Noop()}
}

// Network is the intermediate result of reading a PBF file: drivable ways
// and the coordinates of every node they reference.
type Network struct {
	Ways   []way
	Coords map[osm.NodeID]orb.Point
}

// OSMStats summarises an import run.
type OSMStats struct {
	Ways, Nodes, Edges int
	Skipped            int
}

// ReadNetwork scans a PBF file twice: ways first, then the coordinates of
// the nodes those ways reference.
func ReadNetwork(ctx context.Context, rs io.ReadSeeker, logger *logging.Logger) (*Network, error) {
	if logger == nil {
		logger = logging.Noop()
	}
	referenced := make(map[osm.NodeID]struct{})
	var ways []way

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}
		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, way{
			ID:       w.ID,
			Nodes:    ids,
			Forward:  fwd,
			Backward: bwd,
			Speed:    speedOf(w.Tags),
			Name:     w.Tags.Find("name"),
		})
	}
	err := scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	logger.LogImport(ctx, "ways", len(ways), nil)

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]orb.Point, len(referenced))
	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; needed {
			coords[n.ID] = orb.Point{n.Lon, n.Lat}
		}
	}
	err = scanner.Err()
	scanner.Close()
	if err != nil {
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	logger.LogImport(ctx, "nodes", len(coords), nil)

	return &Network{Ways: ways, Coords: coords}, nil
}

// ImportOSM reads a PBF file and appends its road network to g.
func ImportOSM(ctx context.Context, g *store.Graph, rs io.ReadSeeker, opts OSMOptions) (OSMStats, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	net, err := ReadNetwork(ctx, rs, opts.Logger)
	if err != nil {
		return OSMStats{}, err
	}
	return Build(ctx, g, net, opts)
}

// segment is a directed road piece between two junctions.
type segment struct {
	from, to osm.NodeID
	shape    []orb.Point
	meters   float64
	speed    float64
	wayID    osm.WayID
	name     string
}

// Build turns a Network into graph nodes and edges. Only junctions and way
// ends become graph nodes; the points between them become edge geometry.
func Build(ctx context.Context, g *store.Graph, net *Network, opts OSMOptions) (OSMStats, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.Buckets < 1 {
		opts.Buckets = 1
	}
	stats := OSMStats{Ways: len(net.Ways)}
	useBound := !opts.Bound.IsZero()

	// A node is a junction when two ways meet there or a way ends there.
	uses := make(map[osm.NodeID]int)
	for _, w := range net.Ways {
		for i, id := range w.Nodes {
			uses[id]++
			if i == 0 || i == len(w.Nodes)-1 {
				uses[id]++
			}
		}
	}

	var segs []segment
	for _, w := range net.Ways {
		start := 0
		var shape []orb.Point
		meters := 0.0
		ok := true
		for i := 1; i < len(w.Nodes); i++ {
			a, aok := net.Coords[w.Nodes[i-1]]
			b, bok := net.Coords[w.Nodes[i]]
			if !aok || !bok || (useBound && (!opts.Bound.Contains(a) || !opts.Bound.Contains(b))) {
				ok = false
			}
			meters += geo.Distance(a, b)
			if uses[w.Nodes[i]] < 2 && i < len(w.Nodes)-1 {
				shape = append(shape, b)
				continue
			}
			if ok {
				s := segment{
					from: w.Nodes[start], to: w.Nodes[i],
					shape: shape, meters: meters,
					speed: w.Speed, wayID: w.ID, name: w.Name,
				}
				if w.Forward {
					segs = append(segs, s)
				}
				if w.Backward {
					segs = append(segs, s.reversed())
				}
			} else {
				stats.Skipped++
			}
			start, shape, meters, ok = i, nil, 0, true
		}
	}

	if opts.LargestComponent {
		before := len(segs)
		segs = largestComponent(segs)
		opts.Logger.InfoContext(ctx, "kept largest component", "segments", len(segs), "dropped", before-len(segs))
	}

	ids := make(map[osm.NodeID]int64)
	nodeFor := func(osmID osm.NodeID) (int64, error) {
		if id, ok := ids[osmID]; ok {
			return id, nil
		}
		p := net.Coords[osmID]
		id, err := g.AddNode(store.NewNode(int64(osmID), p.Lat(), p.Lon()))
		if err != nil {
			return 0, fmt.Errorf("add node %d: %w", osmID, err)
		}
		ids[osmID] = id
		return id, nil
	}

	perSecond := float64(g.MaxTime()) / 86400
	for i, s := range segs {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		from, err := nodeFor(s.from)
		if err != nil {
			return stats, err
		}
		to, err := nodeFor(s.to)
		if err != nil {
			return stats, err
		}
		mm := int32(math.Round(s.meters * 1000))
		if mm == 0 {
			mm = 1 // avoid zero-weight edges
		}
		e := store.NewEdge(int64(s.wayID), from, to, mm)
		e.Label = s.name
		e.Costs = flatCosts(travelTime(s.meters, s.speed, perSecond), opts.Buckets)
		for _, p := range s.shape {
			e.Geometry = append(e.Geometry, [2]float64{p.Lat(), p.Lon()})
		}
		if _, err := g.AddEdge(e); err != nil {
			return stats, fmt.Errorf("add edge from way %d: %w", s.wayID, err)
		}
		stats.Edges++
	}
	stats.Nodes = len(ids)

	if stats.Skipped > 0 {
		opts.Logger.WarnContext(ctx, "skipped segments with missing or out-of-bound nodes", "count", stats.Skipped)
	}
	opts.Logger.LogImport(ctx, "edges", stats.Edges, nil)
	return stats, nil
}

func (s segment) reversed() segment {
	r := s
	r.from, r.to = s.to, s.from
	r.shape = make([]orb.Point, len(s.shape))
	for i, p := range s.shape {
		r.shape[len(s.shape)-1-i] = p
	}
	return r
}

// travelTime converts a length at a speed into time units, at least 1.
func travelTime(meters, kmh, unitsPerSecond float64) int32 {
	if kmh <= 0 {
		kmh = 30
	}
	t := int32(math.Round(meters / (kmh / 3.6) * unitsPerSecond))
	return max(t, 1)
}

func flatCosts(c int32, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// largestComponent keeps the segments of the largest weakly connected
// component, using union-find over segment endpoints.
func largestComponent(segs []segment) []segment {
	parent := make(map[osm.NodeID]osm.NodeID)
	var find func(osm.NodeID) osm.NodeID
	find = func(x osm.NodeID) osm.NodeID {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p != x {
			p = find(p)
			parent[x] = p
		}
		return p
	}
	for _, s := range segs {
		a, b := find(s.from), find(s.to)
		if a != b {
			parent[a] = b
		}
	}

	size := make(map[osm.NodeID]int)
	for x := range parent {
		size[find(x)]++
	}
	var best osm.NodeID
	bestSize := 0
	for r, n := range size {
		if n > bestSize || (n == bestSize && r < best) {
			best, bestSize = r, n
		}
	}

	out := segs[:0]
	for _, s := range segs {
		if find(s.from) == best {
			out = append(out, s)
		}
	}
	return out
}
