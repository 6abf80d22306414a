package store

import "fmt"

// edgeBlockSize is the number of int32 fields in one edge record.
const edgeBlockSize = 17

const (
	edgeExt      = 0
	edgeFrom     = 2
	edgeTo       = 4
	edgeFromNext = 6
	edgeToNext   = 8
	edgeDistance = 10
	edgeCosts    = 11
	edgeGeometry = 13
	edgeLabel    = 15
)

// Edge is a materialized edge record. Distance is in millimeters.
type Edge struct {
	ID            int64
	ExternalID    int64
	FromNode      int64
	ToNode        int64
	FromNodeNext  int64
	ToNodeNext    int64
	Distance      int32
	Label         string
	Costs         []int32
	Geometry      [][2]float64 // (lat, lon) pairs
	CostsIndex    int64
	GeometryIndex int64
	LabelIndex    int64
}

// NewEdge returns an unlinked edge from -> to.
func NewEdge(externalID, from, to int64, distance int32) *Edge {
	return &Edge{
		ID:            None,
		ExternalID:    externalID,
		FromNode:      from,
		ToNode:        to,
		FromNodeNext:  None,
		ToNodeNext:    None,
		Distance:      distance,
		CostsIndex:    None,
		GeometryIndex: None,
		LabelIndex:    None,
	}
}

// Other returns the endpoint opposite node.
func (e *Edge) Other(node int64) int64 {
	if e.FromNode == node {
		return e.ToNode
	}
	return e.FromNode
}

// next returns the chain pointer that continues node's adjacency list.
func (e *Edge) next(node int64) int64 {
	if e.FromNode == node {
		return e.FromNodeNext
	}
	return e.ToNodeNext
}

func (e *Edge) setNext(node, next int64) {
	if e.FromNode == node {
		e.FromNodeNext = next
	} else {
		e.ToNodeNext = next
	}
}

func (e *Edge) encode(dst []int32) {
	putIndex(dst[edgeExt:], e.ExternalID)
	putIndex(dst[edgeFrom:], e.FromNode)
	putIndex(dst[edgeTo:], e.ToNode)
	putIndex(dst[edgeFromNext:], e.FromNodeNext)
	putIndex(dst[edgeToNext:], e.ToNodeNext)
	dst[edgeDistance] = e.Distance
	putIndex(dst[edgeCosts:], e.CostsIndex)
	putIndex(dst[edgeGeometry:], e.GeometryIndex)
	putIndex(dst[edgeLabel:], e.LabelIndex)
}

func decodeEdge(id int64, src []int32) *Edge {
	return &Edge{
		ID:            id,
		ExternalID:    getIndex(src[edgeExt:]),
		FromNode:      getIndex(src[edgeFrom:]),
		ToNode:        getIndex(src[edgeTo:]),
		FromNodeNext:  getIndex(src[edgeFromNext:]),
		ToNodeNext:    getIndex(src[edgeToNext:]),
		Distance:      src[edgeDistance],
		CostsIndex:    getIndex(src[edgeCosts:]),
		GeometryIndex: getIndex(src[edgeGeometry:]),
		LabelIndex:    getIndex(src[edgeLabel:]),
	}
}

// validate enforces distance >= 0 and rejects the all-zero link pattern of
// an unset record.
func (e *Edge) validate() error {
	if e.Distance < 0 {
		return &InvalidRecordError{Kind: "edge", ID: e.ID, Reason: "negative distance"}
	}
	if e.FromNode == 0 && e.ToNode == 0 && e.FromNodeNext == 0 && e.ToNodeNext == 0 {
		return &InvalidRecordError{Kind: "edge", ID: e.ID, Reason: "unset record"}
	}
	if e.FromNode < 0 || e.ToNode < 0 {
		return &InvalidRecordError{Kind: "edge", ID: e.ID, Reason: "missing endpoint"}
	}
	if len(e.Label) > MaxLabelLength {
		return fmt.Errorf("edge %d label of %d bytes: %w", e.ID, len(e.Label), ErrLabelTooLong)
	}
	return nil
}

func encodeGeometry(points [][2]float64) []int32 {
	vals := make([]int32, 0, 2*len(points))
	for _, p := range points {
		vals = append(vals, EncodeCoord(p[0]), EncodeCoord(p[1]))
	}
	return vals
}

func decodeGeometry(vals []int32) [][2]float64 {
	points := make([][2]float64, len(vals)/2)
	for i := range points {
		points[i] = [2]float64{DecodeCoord(vals[2*i]), DecodeCoord(vals[2*i+1])}
	}
	return points
}
