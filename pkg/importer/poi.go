package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"poi_router/pkg/logging"
	"poi_router/pkg/store"
)

// POI row columns: category;externalId;lat;lon;label.
const (
	colCategory = iota
	colExternalID
	colLat
	colLon
	colLabel
	poiColumns
)

var columnNames = [poiColumns]string{"category", "externalId", "lat", "lon", "label"}

// ParseError reports a malformed field in a POI file. Line is 1-based.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ServiceCostBuckets is the length of the cost vector shared by imported POIs.
const ServiceCostBuckets = 96

// RandomServiceCosts draws n service times uniformly from [lo, hi).
func RandomServiceCosts(r *rand.Rand, n int, lo, hi int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = lo + r.Int32N(hi-lo)
	}
	return out
}

// POIOptions configures ImportPOIs.
type POIOptions struct {
	// Costs is the service cost vector given to every imported POI.
	Costs  []int32
	Logger *logging.Logger
}

// ImportPOIs reads semicolon separated POI rows and marks the graph node
// nearest to each one as a POI with the row's category and label. The first
// malformed row aborts the run with a *ParseError; rows before it stay
// applied. It returns the number of rows applied.
func ImportPOIs(ctx context.Context, g *store.Graph, r io.Reader, opts POIOptions) (int, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read poi row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < poiColumns {
			return n, &ParseError{Line: line, Field: columnNames[len(rec)], Err: errors.New("missing field")}
		}

		category, err := parseInt32(rec, colCategory, line)
		if err != nil {
			return n, err
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(rec[colExternalID]), 10, 64); err != nil {
			return n, &ParseError{Line: line, Field: columnNames[colExternalID], Err: err}
		}
		lat, err := parseFloat(rec, colLat, line)
		if err != nil {
			return n, err
		}
		lon, err := parseFloat(rec, colLon, line)
		if err != nil {
			return n, err
		}

		node, err := g.NearestNode(lat, lon)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		node.Category = category
		node.Label = rec[colLabel]
		node.Costs = opts.Costs
		if err := g.UpdateNodeInfo(node); err != nil {
			return n, fmt.Errorf("line %d: update node %d: %w", line, node.ID, err)
		}
		n++
	}
	opts.Logger.LogImport(ctx, "pois", n, nil)
	return n, nil
}

func parseInt32(rec []string, col, line int) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(rec[col]), 10, 32)
	if err != nil {
		return 0, &ParseError{Line: line, Field: columnNames[col], Err: err}
	}
	return int32(v), nil
}

func parseFloat(rec []string, col, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
	if err != nil {
		return 0, &ParseError{Line: line, Field: columnNames[col], Err: err}
	}
	return v, nil
}
