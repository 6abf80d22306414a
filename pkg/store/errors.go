package store

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRecord = errors.New("store: invalid record")
	ErrNodeNotFound  = errors.New("store: node not found")
	ErrEdgeNotFound  = errors.New("store: edge not found")
	ErrEmptyIndex    = errors.New("store: spatial index is empty")
	ErrCorruptFile   = errors.New("store: corrupt graph file")
	ErrLabelTooLong  = errors.New("store: label exceeds MaxLabelLength")
)

// ErrTimeUnitMismatch is returned by Load when the files were saved with a
// different TimeUnit than the graph is configured for.
var ErrTimeUnitMismatch = errors.New("store: time unit mismatch")

// InvalidRecordError reports a node or edge whose decoded fields violate
// the record invariants. It matches ErrInvalidRecord under errors.Is.
type InvalidRecordError struct {
	Kind   string // "node" or "edge"
	ID     int64
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("store: invalid %s %d: %s", e.Kind, e.ID, e.Reason)
}

func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}
