// Package store is the flat-array road graph: fixed-size node and edge
// blocks, length-prefixed pools for labels, cost vectors and geometries,
// and the embedded adjacency chains the routing engines walk.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/paulmach/orb"

	"poi_router/pkg/codec"
	"poi_router/pkg/geo"
	"poi_router/pkg/logging"
	"poi_router/pkg/spatial"
)

const (
	// DefaultBlockSize is the number of elements per compressed file block.
	DefaultBlockSize = 4096
	// MaxLabelLength is the longest node or edge label, in bytes.
	MaxLabelLength = 1 << 20
)

// DistanceFunc returns the geodesic distance in meters between two points.
type DistanceFunc func(a, b orb.Point) float64

// Options configures a Graph.
type Options struct {
	// Codec compresses every persisted file.
	Codec codec.Type
	// BlockSize is the number of ints or strings per compressed block.
	BlockSize int
	// TimeUnit selects the length of the daily cost cycle.
	TimeUnit TimeUnit
	Logger   *logging.Logger
	// NewSpatial builds the point index; it is called again on Load.
	NewSpatial func() SpatialIndex
	Distance   DistanceFunc
}

// DefaultOptions returns gzip files with 4096-element blocks, millisecond
// costs, an R-tree point index and haversine distance.
func DefaultOptions() Options {
	return Options{
		Codec:     codec.Gzip,
		BlockSize: DefaultBlockSize,
		TimeUnit:  Millisecond,
		Logger:    logging.Noop(),
		NewSpatial: func() SpatialIndex {
			return spatial.NewRTree()
		},
		Distance: geo.Distance,
	}
}

// Graph is an in-memory graph bound to a directory for Save and Load.
//
// Appends to different collections may run concurrently. Two edges that
// share an endpoint must not be added concurrently: chain linking is not
// atomic across the node and edge arrays.
type Graph struct {
	dir  string
	opts Options

	nodes      intList
	edges      intList
	nodeLabels stringPool
	edgeLabels stringPool
	nodeCosts  intPool
	edgeCosts  intPool
	points     intPool

	coordMu sync.RWMutex
	coords  map[int64]int64

	spatial SpatialIndex

	bboxMu    sync.Mutex
	bbox      orb.Bound
	bboxValid bool
}

// New returns an empty graph that persists to dir.
func New(dir string, optFns ...func(*Options)) (*Graph, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BlockSize <= 0 || opts.BlockSize > codec.MaxBlockSize/4 {
		return nil, fmt.Errorf("store: block size must be in [1, %d], got %d", codec.MaxBlockSize/4, opts.BlockSize)
	}
	if _, err := codec.New(opts.Codec); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if opts.TimeUnit.MaxTime() == 0 {
		return nil, fmt.Errorf("store: unknown time unit %d", opts.TimeUnit)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.NewSpatial == nil {
		opts.NewSpatial = func() SpatialIndex { return spatial.NewRTree() }
	}
	if opts.Distance == nil {
		opts.Distance = geo.Distance
	}
	g := &Graph{dir: dir, opts: opts}
	g.resetIndexes()
	return g, nil
}

func (g *Graph) resetIndexes() {
	g.nodeCosts.stride = 1
	g.edgeCosts.stride = 1
	g.points.stride = 2
	g.coordMu.Lock()
	g.coords = make(map[int64]int64)
	g.coordMu.Unlock()
	g.spatial = g.opts.NewSpatial()
	g.bboxMu.Lock()
	g.bboxValid = false
	g.bboxMu.Unlock()
}

// Dir returns the directory the graph persists to.
func (g *Graph) Dir() string { return g.dir }

// Options returns the configuration the graph was created with.
func (g *Graph) Options() Options { return g.opts }

// NumberOfNodes returns the node count.
func (g *Graph) NumberOfNodes() int64 {
	return g.nodes.size() / nodeBlockSize
}

// NumberOfEdges returns the edge count.
func (g *Graph) NumberOfEdges() int64 {
	return g.edges.size() / edgeBlockSize
}

// AddNode appends n, assigns its id and registers its coordinates. The
// label and costs are stored in the pools before the block is written. A new
// node has no incident edges, so n.FirstEdge is reset to None.
func (g *Graph) AddNode(n *Node) (int64, error) {
	n.FirstEdge = None
	if err := n.validate(); err != nil {
		return None, err
	}
	n.LabelIndex = g.nodeLabels.store(n.Label)
	n.CostsIndex = g.nodeCosts.store(n.Costs)

	var block [nodeBlockSize]int32
	n.encode(block[:])
	n.ID = g.nodes.appendBlock(block[:]) / nodeBlockSize

	g.indexNode(n.ID, block[nodeLat], block[nodeLon])
	return n.ID, nil
}

func coordKey(lat, lon int32) int64 {
	return int64(lat)<<32 | int64(uint32(lon))
}

func (g *Graph) indexNode(id int64, lat, lon int32) {
	g.coordMu.Lock()
	key := coordKey(lat, lon)
	if _, ok := g.coords[key]; !ok {
		g.coords[key] = id
	}
	g.coordMu.Unlock()

	p := orb.Point{DecodeCoord(lon), DecodeCoord(lat)}
	g.spatial.Insert(id, p)

	g.bboxMu.Lock()
	if g.bboxValid {
		g.bbox = g.bbox.Extend(p)
	}
	g.bboxMu.Unlock()
}

func (g *Graph) unindexNode(id int64, lat, lon int32) {
	g.coordMu.Lock()
	key := coordKey(lat, lon)
	if g.coords[key] == id {
		delete(g.coords, key)
	}
	g.coordMu.Unlock()

	g.spatial.Delete(id, orb.Point{DecodeCoord(lon), DecodeCoord(lat)})

	g.bboxMu.Lock()
	g.bboxValid = false
	g.bboxMu.Unlock()
}

func (g *Graph) nodeBlock(id int64) ([nodeBlockSize]int32, error) {
	var block [nodeBlockSize]int32
	if id < 0 || !g.nodes.read(block[:], id*nodeBlockSize) {
		return block, fmt.Errorf("node %d: %w", id, ErrNodeNotFound)
	}
	return block, nil
}

// Node returns the node at id with its label and costs resolved.
func (g *Graph) Node(id int64) (*Node, error) {
	block, err := g.nodeBlock(id)
	if err != nil {
		return nil, err
	}
	n := decodeNode(id, block[:])
	if err := n.validate(); err != nil {
		return nil, err
	}
	n.Label, _ = g.nodeLabels.load(n.LabelIndex)
	n.Costs, _ = g.nodeCosts.load(n.CostsIndex)
	return n, nil
}

// UpdateNodeInfo rewrites the node at n.ID in place. A changed label is
// appended as a new label entry, changed costs replace the old entry,
// and changed coordinates are moved in the point indexes.
func (g *Graph) UpdateNodeInfo(n *Node) error {
	block, err := g.nodeBlock(n.ID)
	if err != nil {
		return err
	}
	if err := n.validate(); err != nil {
		return err
	}
	old := decodeNode(n.ID, block[:])
	oldLabel, _ := g.nodeLabels.load(old.LabelIndex)
	oldCosts, _ := g.nodeCosts.load(old.CostsIndex)

	n.LabelIndex = old.LabelIndex
	if n.Label != oldLabel {
		n.LabelIndex = g.nodeLabels.store(n.Label)
	}
	n.CostsIndex = old.CostsIndex
	if !slices.Equal(n.Costs, oldCosts) {
		n.CostsIndex = g.nodeCosts.replace(old.CostsIndex, n.Costs)
	}

	n.encode(block[:])
	g.nodes.write(n.ID*nodeBlockSize, block[:]...)

	oldLat, oldLon := EncodeCoord(old.Latitude), EncodeCoord(old.Longitude)
	if block[nodeLat] != oldLat || block[nodeLon] != oldLon {
		g.unindexNode(n.ID, oldLat, oldLon)
		g.indexNode(n.ID, block[nodeLat], block[nodeLon])
	}
	return nil
}

// SetNodeCategory changes the POI category of a node.
func (g *Graph) SetNodeCategory(id int64, category int32) error {
	if _, err := g.nodeBlock(id); err != nil {
		return err
	}
	g.nodes.write(id*nodeBlockSize+nodeCategory, category)
	return nil
}

func (g *Graph) setFirstEdge(node, edge int64) {
	g.nodes.write(node*nodeBlockSize+nodeFirstEdge, Segment(edge), Offset(edge))
}

func (g *Graph) firstEdge(node int64) (int64, error) {
	block, err := g.nodeBlock(node)
	if err != nil {
		return None, err
	}
	return getIndex(block[nodeFirstEdge:]), nil
}

// AddEdge appends e, assigns its id and links it into the adjacency chains
// of both endpoints. Both chains are checked first, so a failed call leaves
// the graph unchanged.
func (g *Graph) AddEdge(e *Edge) (int64, error) {
	n := g.NumberOfNodes()
	if e.FromNode < 0 || e.FromNode >= n {
		return None, fmt.Errorf("edge from %d: %w", e.FromNode, ErrNodeNotFound)
	}
	if e.ToNode < 0 || e.ToNode >= n {
		return None, fmt.Errorf("edge to %d: %w", e.ToNode, ErrNodeNotFound)
	}
	e.FromNodeNext, e.ToNodeNext = None, None
	if err := e.validate(); err != nil {
		return None, err
	}
	for _, node := range []int64{e.FromNode, e.ToNode} {
		if err := g.walk(node, func(*Edge) bool { return true }); err != nil {
			return None, fmt.Errorf("link edge: %w", err)
		}
	}
	e.LabelIndex = g.edgeLabels.store(e.Label)
	e.CostsIndex = g.edgeCosts.store(e.Costs)
	e.GeometryIndex = g.points.store(encodeGeometry(e.Geometry))

	var block [edgeBlockSize]int32
	e.encode(block[:])
	e.ID = g.edges.appendBlock(block[:]) / edgeBlockSize

	if err := g.link(e); err != nil {
		return e.ID, fmt.Errorf("link edge %d: %w", e.ID, err)
	}
	return e.ID, nil
}

func (g *Graph) edgeBlock(id int64) ([edgeBlockSize]int32, error) {
	var block [edgeBlockSize]int32
	if id < 0 || !g.edges.read(block[:], id*edgeBlockSize) {
		return block, fmt.Errorf("edge %d: %w", id, ErrEdgeNotFound)
	}
	return block, nil
}

// edgeRecord decodes and validates an edge without touching the pools.
func (g *Graph) edgeRecord(id int64) (*Edge, error) {
	block, err := g.edgeBlock(id)
	if err != nil {
		return nil, err
	}
	e := decodeEdge(id, block[:])
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Edge returns the edge at id with label, costs and geometry resolved.
func (g *Graph) Edge(id int64) (*Edge, error) {
	e, err := g.edgeRecord(id)
	if err != nil {
		return nil, err
	}
	e.Label, _ = g.edgeLabels.load(e.LabelIndex)
	e.Costs, _ = g.edgeCosts.load(e.CostsIndex)
	if pts, ok := g.points.load(e.GeometryIndex); ok {
		e.Geometry = decodeGeometry(pts)
	}
	return e, nil
}

// UpdateEdgeInfo rewrites the edge at e.ID in place, including its
// endpoints and chain pointers.
func (g *Graph) UpdateEdgeInfo(e *Edge) error {
	block, err := g.edgeBlock(e.ID)
	if err != nil {
		return err
	}
	if err := e.validate(); err != nil {
		return err
	}
	old := decodeEdge(e.ID, block[:])
	oldLabel, _ := g.edgeLabels.load(old.LabelIndex)
	oldCosts, _ := g.edgeCosts.load(old.CostsIndex)
	oldGeom, _ := g.points.load(old.GeometryIndex)

	e.LabelIndex = old.LabelIndex
	if e.Label != oldLabel {
		e.LabelIndex = g.edgeLabels.store(e.Label)
	}
	e.CostsIndex = old.CostsIndex
	if !slices.Equal(e.Costs, oldCosts) {
		e.CostsIndex = g.edgeCosts.replace(old.CostsIndex, e.Costs)
	}
	e.GeometryIndex = old.GeometryIndex
	if geom := encodeGeometry(e.Geometry); !slices.Equal(geom, oldGeom) {
		e.GeometryIndex = g.points.replace(old.GeometryIndex, geom)
	}

	e.encode(block[:])
	g.edges.write(e.ID*edgeBlockSize, block[:]...)
	return nil
}

func (g *Graph) setNext(edge *Edge) {
	g.edges.write(edge.ID*edgeBlockSize+edgeFromNext,
		Segment(edge.FromNodeNext), Offset(edge.FromNodeNext),
		Segment(edge.ToNodeNext), Offset(edge.ToNodeNext))
}

// SetEdgeGeometry replaces the polyline of an edge. Points are (lat, lon).
func (g *Graph) SetEdgeGeometry(id int64, points [][2]float64) error {
	e, err := g.edgeRecord(id)
	if err != nil {
		return err
	}
	idx := g.points.replace(e.GeometryIndex, encodeGeometry(points))
	g.edges.write(id*edgeBlockSize+edgeGeometry, Segment(idx), Offset(idx))
	return nil
}

// Geometry returns the polyline of an edge, or nil when it has none.
func (g *Graph) Geometry(id int64) ([][2]float64, error) {
	e, err := g.edgeRecord(id)
	if err != nil {
		return nil, err
	}
	pts, ok := g.points.load(e.GeometryIndex)
	if !ok {
		return nil, nil
	}
	return decodeGeometry(pts), nil
}

// FindEdge returns the first out-edge of from that reaches to with the
// given distance. Parallel edges of equal distance are not told apart.
func (g *Graph) FindEdge(from, to int64, distance int32) (*Edge, error) {
	var found *Edge
	err := g.walk(from, func(e *Edge) bool {
		if e.FromNode == from && e.ToNode == to && e.Distance == distance {
			found = e
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%d -> %d (%d mm): %w", from, to, distance, ErrEdgeNotFound)
	}
	return g.Edge(found.ID)
}

// MinEdge returns the shortest out-edge of from that reaches to.
func (g *Graph) MinEdge(from, to int64) (*Edge, error) {
	var best *Edge
	err := g.walk(from, func(e *Edge) bool {
		if e.FromNode == from && e.ToNode == to && (best == nil || e.Distance < best.Distance) {
			best = e
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, fmt.Errorf("%d -> %d: %w", from, to, ErrEdgeNotFound)
	}
	return g.Edge(best.ID)
}

// Equal reports whether both graphs hold identical records and pools.
func (g *Graph) Equal(other *Graph) bool {
	return slices.Equal(g.nodes.snapshot(), other.nodes.snapshot()) &&
		slices.Equal(g.edges.snapshot(), other.edges.snapshot()) &&
		slices.Equal(g.nodeLabels.snapshot(), other.nodeLabels.snapshot()) &&
		slices.Equal(g.edgeLabels.snapshot(), other.edgeLabels.snapshot()) &&
		slices.Equal(g.nodeCosts.snapshot(), other.nodeCosts.snapshot()) &&
		slices.Equal(g.edgeCosts.snapshot(), other.edgeCosts.snapshot()) &&
		slices.Equal(g.points.snapshot(), other.points.snapshot())
}
