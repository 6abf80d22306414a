package store

import (
	"math"

	"github.com/paulmach/orb"

	"poi_router/pkg/geo"
)

// SpatialIndex maps node ids to their positions. Points are [lon, lat].
type SpatialIndex interface {
	Insert(id int64, p orb.Point)
	Delete(id int64, p orb.Point)
	Search(b orb.Bound, iter func(id int64, p orb.Point) bool)
	Len() int
}

// initialRadius is where the nearest-node search starts, in meters.
const initialRadius = 100.0

// NearestNode returns the node closest to (lat, lon) by geodesic distance.
// The search radius starts at 100 m and doubles until a node lies within
// it.
func (g *Graph) NearestNode(lat, lon float64) (*Node, error) {
	if g.spatial.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	q := orb.Point{lon, lat}
	var (
		ids   []int64
		dists []float64
	)
	for radius := initialRadius; len(ids) == 0; radius *= 2 {
		g.spatial.Search(geo.BoundAround(q, radius), func(id int64, p orb.Point) bool {
			if d := g.opts.Distance(q, p); d < radius {
				ids = append(ids, id)
				dists = append(dists, d)
			}
			return true
		})
		if radius > geo.HalfCircumferenceMeters {
			break
		}
	}
	if len(ids) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(ids) == 1 {
		return g.Node(ids[0])
	}
	best, bestDist := ids[0], math.Inf(1)
	for i, id := range ids {
		if dists[i] < bestDist {
			best, bestDist = id, dists[i]
		}
	}
	return g.Node(best)
}

// HasNode reports whether a node sits exactly at (lat, lon) after
// fixed-point encoding.
func (g *Graph) HasNode(lat, lon float64) bool {
	_, ok := g.exactNode(lat, lon)
	return ok
}

func (g *Graph) exactNode(lat, lon float64) (int64, bool) {
	g.coordMu.RLock()
	defer g.coordMu.RUnlock()
	id, ok := g.coords[coordKey(EncodeCoord(lat), EncodeCoord(lon))]
	return id, ok
}

// NodeID returns the node at (lat, lon), falling back to the nearest node.
func (g *Graph) NodeID(lat, lon float64) (int64, error) {
	if id, ok := g.exactNode(lat, lon); ok {
		return id, nil
	}
	n, err := g.NearestNode(lat, lon)
	if err != nil {
		return None, err
	}
	return n.ID, nil
}

// NodesInBound returns the ids of nodes inside b.
func (g *Graph) NodesInBound(b orb.Bound) []int64 {
	var ids []int64
	g.spatial.Search(b, func(id int64, _ orb.Point) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// BBox returns the bounding box of all nodes. It is computed on first use
// and extended as nodes are added.
func (g *Graph) BBox() orb.Bound {
	g.bboxMu.Lock()
	defer g.bboxMu.Unlock()
	if g.bboxValid {
		return g.bbox
	}
	g.bbox = g.computeBBox()
	g.bboxValid = true
	return g.bbox
}

func (g *Graph) computeBBox() orb.Bound {
	g.nodes.mu.RLock()
	defer g.nodes.mu.RUnlock()
	data := g.nodes.data
	if len(data) < nodeBlockSize {
		return orb.Bound{}
	}
	first := orb.Point{DecodeCoord(data[nodeLon]), DecodeCoord(data[nodeLat])}
	b := first.Bound()
	for pos := nodeBlockSize; pos+nodeBlockSize <= len(data); pos += nodeBlockSize {
		b = b.Extend(orb.Point{DecodeCoord(data[pos+nodeLon]), DecodeCoord(data[pos+nodeLat])})
	}
	return b
}
