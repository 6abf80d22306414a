package store

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// nodeBlockSize is the number of int32 fields in one node record.
const nodeBlockSize = 11

const (
	nodeExt       = 0
	nodeCategory  = 2
	nodeLat       = 3
	nodeLon       = 4
	nodeFirstEdge = 5
	nodeLabel     = 7
	nodeCosts     = 9
)

// coordScale converts degrees to the fixed-point integers stored in a
// node block.
const coordScale = 1e6

// EncodeCoord converts a latitude or longitude to its stored form.
func EncodeCoord(deg float64) int32 {
	return int32(math.Round(deg * coordScale))
}

// DecodeCoord is the inverse of EncodeCoord.
func DecodeCoord(v int32) float64 {
	return float64(v) / coordScale
}

// Node is a materialized node record. Costs and Label are resolved from
// the pools; CostsIndex and LabelIndex carry the raw pointers.
type Node struct {
	ID         int64
	ExternalID int64
	Category   int32 // negative when the node is not a POI
	Latitude   float64
	Longitude  float64
	FirstEdge  int64
	Label      string
	Costs      []int32
	LabelIndex int64
	CostsIndex int64
}

// NewNode returns a non-POI node at lat, lon with no edges.
func NewNode(externalID int64, lat, lon float64) *Node {
	return &Node{
		ID:         None,
		ExternalID: externalID,
		Category:   -1,
		Latitude:   lat,
		Longitude:  lon,
		FirstEdge:  None,
		LabelIndex: None,
		CostsIndex: None,
	}
}

// IsPOI reports whether the node carries a category.
func (n *Node) IsPOI() bool {
	return n.Category >= 0
}

// Point returns the node position as an orb point ([lon, lat]).
func (n *Node) Point() orb.Point {
	return orb.Point{n.Longitude, n.Latitude}
}

func (n *Node) encode(dst []int32) {
	putIndex(dst[nodeExt:], n.ExternalID)
	dst[nodeCategory] = n.Category
	dst[nodeLat] = EncodeCoord(n.Latitude)
	dst[nodeLon] = EncodeCoord(n.Longitude)
	putIndex(dst[nodeFirstEdge:], n.FirstEdge)
	putIndex(dst[nodeLabel:], n.LabelIndex)
	putIndex(dst[nodeCosts:], n.CostsIndex)
}

func decodeNode(id int64, src []int32) *Node {
	return &Node{
		ID:         id,
		ExternalID: getIndex(src[nodeExt:]),
		Category:   src[nodeCategory],
		Latitude:   DecodeCoord(src[nodeLat]),
		Longitude:  DecodeCoord(src[nodeLon]),
		FirstEdge:  getIndex(src[nodeFirstEdge:]),
		LabelIndex: getIndex(src[nodeLabel:]),
		CostsIndex: getIndex(src[nodeCosts:]),
	}
}

func (n *Node) validate() error {
	if lat := n.Latitude; lat < -90 || lat > 90 || math.IsNaN(lat) {
		return &InvalidRecordError{Kind: "node", ID: n.ID, Reason: fmt.Sprintf("latitude %v out of range", lat)}
	}
	if lon := n.Longitude; lon < -180 || lon > 180 || math.IsNaN(lon) {
		return &InvalidRecordError{Kind: "node", ID: n.ID, Reason: fmt.Sprintf("longitude %v out of range", lon)}
	}
	if n.FirstEdge < None {
		return &InvalidRecordError{Kind: "node", ID: n.ID, Reason: "negative first edge"}
	}
	if len(n.Label) > MaxLabelLength {
		return fmt.Errorf("node %d label of %d bytes: %w", n.ID, len(n.Label), ErrLabelTooLong)
	}
	return nil
}
